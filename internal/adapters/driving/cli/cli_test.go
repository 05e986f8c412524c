package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/custodia-labs/cmtap/internal/adapters/driven/config/tapconfig"
	"github.com/custodia-labs/cmtap/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/cmtap/internal/connectors/campaignmonitor"
	"github.com/custodia-labs/cmtap/internal/core/domain"
	"github.com/custodia-labs/cmtap/internal/core/ports/driven"
)

// stubFetcher serves one page per (stream, parent).
type stubFetcher struct {
	pages    map[string][]domain.Record
	requests []domain.PageRequest
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{pages: make(map[string][]domain.Record)}
}

func (f *stubFetcher) serve(stream, parent string, records ...string) {
	out := make([]domain.Record, len(records))
	for i, r := range records {
		out[i] = domain.Record(r)
	}
	f.pages[stream+"/"+parent] = out
}

func (f *stubFetcher) FetchPage(_ context.Context, req domain.PageRequest) (*domain.Page, error) {
	f.requests = append(f.requests, req)
	if req.Page > 1 {
		return &domain.Page{PageNumber: req.Page, TotalPages: 1}, nil
	}
	records := f.pages[req.Stream.ID+"/"+req.ParentID]
	return &domain.Page{Results: records, TotalRecords: len(records), TotalPages: 1, PageNumber: 1}, nil
}

// setupCLI installs test services and restores globals afterwards.
func setupCLI(t *testing.T, fetcher driven.PageFetcher, store driven.BookmarkStore) *memory.ConfigStore {
	t.Helper()

	settings := memory.NewConfigStore(map[string]any{
		"api_key":   "key-1234",
		"client_id": "client-1",
	})

	old := deps
	Configure(Services{
		Settings: settings,
		OpenStore: func(context.Context, *tapconfig.Config) (driven.BookmarkStore, driven.RunLock, error) {
			return store, nil, nil
		},
		NewFetcher: func(campaignmonitor.Config) (driven.PageFetcher, error) {
			return fetcher, nil
		},
	})

	t.Cleanup(func() {
		deps = old
		configPath, statePath, catalogPath, streamIDs, verbose = "", "", "", nil, false
		historyLimit = 10
	})
	return settings
}

// execute runs the root command and returns stdout and stderr.
func execute(args ...string) (string, string, error) {
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}()

	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// messages parses Singer output into "TYPE stream" strings.
func messages(t *testing.T, out string) []string {
	t.Helper()
	var got []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		require.True(t, gjson.Valid(line), line)
		msg := gjson.Get(line, "type").String()
		if stream := gjson.Get(line, "stream").String(); stream != "" {
			msg += " " + stream
		}
		got = append(got, msg)
	}
	return got
}

func count(items []string, want string) int {
	n := 0
	for _, it := range items {
		if it == want {
			n++
		}
	}
	return n
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}
