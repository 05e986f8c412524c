package driven

import (
	"context"

	"github.com/custodia-labs/cmtap/internal/core/domain"
)

// RecordSink receives the extracted record stream.
type RecordSink interface {
	// WriteSchema declares a stream before any of its records.
	WriteSchema(ctx context.Context, stream domain.StreamDefinition) error

	// WriteRecords emits records tagged with the stream id.
	WriteRecords(ctx context.Context, streamID string, records []domain.Record) error

	// WriteState emits the serialised bookmarks and flushes everything
	// written so far.
	WriteState(ctx context.Context, bookmarks domain.Bookmarks) error
}
