package singer

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/cmtap/internal/catalog"
	"github.com/custodia-labs/cmtap/internal/core/domain"
)

func lines(buf *bytes.Buffer) []string {
	out := strings.TrimSpace(buf.String())
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

func newTestWriter(buf *bytes.Buffer) *Writer {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return NewWriter(buf, catalog.Schema).WithClock(func() time.Time { return fixed })
}

func TestWriter_Schema(t *testing.T) {
	var buf bytes.Buffer
	w := newTestWriter(&buf)

	opens, ok := catalog.Default().Get(catalog.StreamOpens)
	require.True(t, ok)
	require.NoError(t, w.WriteSchema(context.Background(), opens))
	require.NoError(t, w.Flush())

	got := lines(&buf)
	require.Len(t, got, 1)

	var msg Message
	require.NoError(t, json.Unmarshal([]byte(got[0]), &msg))
	assert.Equal(t, TypeSchema, msg.Type)
	assert.Equal(t, "opens", msg.Stream)
	assert.Equal(t, []string{"EmailAddress"}, msg.KeyProperties)
	assert.Equal(t, []string{"Date"}, msg.BookmarkProperties)
	assert.True(t, json.Valid(msg.Schema))
}

func TestWriter_SchemaUnknownStream(t *testing.T) {
	var buf bytes.Buffer
	err := newTestWriter(&buf).WriteSchema(context.Background(), domain.StreamDefinition{ID: "lists"})
	assert.ErrorIs(t, err, domain.ErrUnknownStream)
}

func TestWriter_RecordsBufferedUntilState(t *testing.T) {
	var buf bytes.Buffer
	w := newTestWriter(&buf)

	records := []domain.Record{
		domain.Record(`{"b":1,"a":2}`),
		domain.Record(`{"b":3,"a":4}`),
	}
	require.NoError(t, w.WriteRecords(context.Background(), "opens", records))
	assert.Empty(t, buf.String(), "records stay buffered")

	bookmarks := domain.NewBookmarks()
	bookmarks.Set("opens", "c1", "2024-03-01T12:00:00+00:00")
	require.NoError(t, w.WriteState(context.Background(), bookmarks))

	got := lines(&buf)
	require.Len(t, got, 3)
	assert.Equal(t,
		`{"type":"RECORD","stream":"opens","record":{"b":1,"a":2},"time_extracted":"2024-03-01T12:00:00Z"}`,
		got[0])
	assert.Equal(t,
		`{"type":"STATE","value":{"bookmarks":{"opens":{"c1":"2024-03-01T12:00:00+00:00"}}}}`,
		got[2])
}

func TestWriter_EmptyState(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newTestWriter(&buf).WriteState(context.Background(), nil))
	assert.Equal(t, `{"type":"STATE","value":{"bookmarks":{}}}`, strings.TrimSpace(buf.String()))
}
