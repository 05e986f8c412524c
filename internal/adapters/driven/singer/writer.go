// Package singer writes the extracted record stream as Singer protocol
// messages, one JSON object per line.
package singer

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/custodia-labs/cmtap/internal/core/domain"
	"github.com/custodia-labs/cmtap/internal/core/ports/driven"
)

// Ensure Writer implements the interface.
var _ driven.RecordSink = (*Writer)(nil)

// Message types.
const (
	TypeSchema = "SCHEMA"
	TypeRecord = "RECORD"
	TypeState  = "STATE"
)

// Message is one Singer protocol line.
type Message struct {
	Type               string          `json:"type"`
	Stream             string          `json:"stream,omitempty"`
	Record             json.RawMessage `json:"record,omitempty"`
	TimeExtracted      string          `json:"time_extracted,omitempty"`
	Schema             json.RawMessage `json:"schema,omitempty"`
	KeyProperties      []string        `json:"key_properties,omitempty"`
	BookmarkProperties []string        `json:"bookmark_properties,omitempty"`
	Value              any             `json:"value,omitempty"`
}

// SchemaFunc returns the JSON schema of a stream.
type SchemaFunc func(streamID string) (json.RawMessage, error)

// Writer buffers messages and flushes them at every STATE message.
type Writer struct {
	mu     sync.Mutex
	out    *bufio.Writer
	schema SchemaFunc
	now    func() time.Time
}

// NewWriter creates a writer on w using schema to declare streams.
func NewWriter(w io.Writer, schema SchemaFunc) *Writer {
	return &Writer{
		out:    bufio.NewWriter(w),
		schema: schema,
		now:    time.Now,
	}
}

// WithClock overrides the time source for time_extracted.
func (w *Writer) WithClock(now func() time.Time) *Writer {
	w.now = now
	return w
}

// WriteSchema declares a stream with its schema and key properties.
func (w *Writer) WriteSchema(_ context.Context, stream domain.StreamDefinition) error {
	schema, err := w.schema(stream.ID)
	if err != nil {
		return err
	}

	msg := Message{
		Type:          TypeSchema,
		Stream:        stream.ID,
		Schema:        schema,
		KeyProperties: stream.PrimaryKey,
	}
	if stream.BookmarkKey != "" {
		msg.BookmarkProperties = []string{stream.BookmarkKey}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.write(msg)
}

// WriteRecords emits one RECORD message per record.
func (w *Writer) WriteRecords(_ context.Context, streamID string, records []domain.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	extracted := w.now().UTC().Format(time.RFC3339)
	for _, r := range records {
		if err := w.write(Message{
			Type:          TypeRecord,
			Stream:        streamID,
			Record:        json.RawMessage(r),
			TimeExtracted: extracted,
		}); err != nil {
			return err
		}
	}
	return nil
}

// WriteState emits the bookmarks and flushes everything buffered.
func (w *Writer) WriteState(_ context.Context, bookmarks domain.Bookmarks) error {
	if bookmarks == nil {
		bookmarks = domain.NewBookmarks()
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.write(Message{Type: TypeState, Value: domain.State{Bookmarks: bookmarks}}); err != nil {
		return err
	}
	return w.out.Flush()
}

// Flush writes out any buffered messages.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.out.Flush()
}

func (w *Writer) write(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s message: %w", msg.Type, err)
	}
	if _, err := w.out.Write(data); err != nil {
		return err
	}
	return w.out.WriteByte('\n')
}
