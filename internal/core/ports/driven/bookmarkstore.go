package driven

import (
	"context"

	"github.com/custodia-labs/cmtap/internal/core/domain"
)

// BookmarkStore persists incremental progress.
type BookmarkStore interface {
	// Load returns the persisted bookmarks, or empty bookmarks when none exist.
	Load(ctx context.Context) (domain.Bookmarks, error)

	// Save durably replaces the persisted bookmarks. It returns only once the
	// write is durable.
	Save(ctx context.Context, bookmarks domain.Bookmarks) error

	// Close releases resources.
	Close() error
}

// RunLock gives one process exclusive use of a bookmark store.
type RunLock interface {
	// Acquire takes the named lock. It returns domain.ErrLockHeld when
	// another process holds it.
	Acquire(ctx context.Context, name string) error

	// Release gives the lock up. Safe to call when not held.
	Release(ctx context.Context, name string) error

	// Extend refreshes the lock's expiry. It returns domain.ErrLockHeld
	// when the lock is no longer held by this process.
	Extend(ctx context.Context, name string) error
}

// CheckpointHistory lists past bookmark snapshots, newest first.
type CheckpointHistory interface {
	History(ctx context.Context, limit int) ([]domain.Checkpoint, error)
}
