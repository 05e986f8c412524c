package driving

import "context"

// SyncOrchestrator coordinates extraction of the selected streams.
type SyncOrchestrator interface {
	// Sync extracts the given streams. Full streams run first; incremental
	// streams run per parent and checkpoint after every parent.
	Sync(ctx context.Context, streamIDs []string) error

	// SyncAll extracts every stream in the catalog.
	SyncAll(ctx context.Context) error

	// Status returns the progress of the current (or last) run.
	Status(ctx context.Context) (*SyncStatus, error)
}

// SyncStatus represents the current state of a sync run.
type SyncStatus struct {
	// Running indicates if a run is currently in progress.
	Running bool

	// Stream is the stream being extracted.
	Stream string

	// ParentID is the parent being extracted, empty for client-scoped streams.
	ParentID string

	// RecordsEmitted is the count of records written to the sink.
	RecordsEmitted int

	// Checkpoints is the number of bookmark flushes performed.
	Checkpoints int
}
