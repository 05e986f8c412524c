package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/cmtap/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/cmtap/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/cmtap/internal/core/domain"
)

func seededStore() *memory.BookmarkStore {
	b := domain.NewBookmarks()
	b.Set("opens", "c1", "2024-03-01T12:00:00+00:00")
	b.Set("clicks", "c1", "2024-03-02T12:00:00+00:00")
	return memory.NewBookmarkStore(b)
}

func TestStateShow(t *testing.T) {
	setupCLI(t, newStubFetcher(), seededStore())

	stdout, _, err := execute("state", "show")
	require.NoError(t, err)
	assert.JSONEq(t, `{"bookmarks":{
		"opens":{"c1":"2024-03-01T12:00:00+00:00"},
		"clicks":{"c1":"2024-03-02T12:00:00+00:00"}
	}}`, stdout)
}

func TestStateReset_Streams(t *testing.T) {
	store := seededStore()
	setupCLI(t, newStubFetcher(), store)

	stdout, _, err := execute("state", "reset", "opens")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Bookmarks reset for: [opens]")

	b, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"clicks"}, b.Streams())
}

func TestStateReset_All(t *testing.T) {
	store := seededStore()
	setupCLI(t, newStubFetcher(), store)

	stdout, _, err := execute("state", "reset")
	require.NoError(t, err)
	assert.Contains(t, stdout, "All bookmarks reset.")

	b, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, b)
}

func TestStateReset_UnknownStream(t *testing.T) {
	store := seededStore()
	setupCLI(t, newStubFetcher(), store)

	_, _, err := execute("state", "reset", "forwards")
	assert.ErrorIs(t, err, domain.ErrUnknownStream)
	assert.Zero(t, store.Saves())
}

func TestStateHistory_Unsupported(t *testing.T) {
	setupCLI(t, newStubFetcher(), seededStore())

	_, _, err := execute("state", "history")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStateHistory_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	store, err := sqlite.NewStore(path)
	require.NoError(t, err)
	setupCLI(t, newStubFetcher(), store)

	stdout, _, err := execute("state", "history")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No checkpoints recorded.")

	// The command closes the store; reopen for the next run.
	store, err = sqlite.NewStore(path)
	require.NoError(t, err)
	b := domain.NewBookmarks()
	b.Set("opens", "c1", "2024-03-01T12:00:00+00:00")
	require.NoError(t, store.Save(context.Background(), b))
	b.Set("opens", "c2", "2024-03-01T13:00:00+00:00")
	require.NoError(t, store.Save(context.Background(), b))
	setupCLI(t, newStubFetcher(), store)

	stdout, _, err = execute("state", "history", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "1 streams, 2 bookmarks")
	assert.NotContains(t, stdout, "1 streams, 1 bookmarks")
}
