package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/custodia-labs/cmtap/internal/core/domain"
	"github.com/custodia-labs/cmtap/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.BookmarkStore     = (*BookmarkStore)(nil)
	_ driven.CheckpointHistory = (*BookmarkStore)(nil)
)

// DefaultHistoryRuns is how many runs keep a checkpoint row.
const DefaultHistoryRuns = 20

// BookmarkStore implements driven.BookmarkStore using PostgreSQL.
type BookmarkStore struct {
	db          *sql.DB
	runID       string
	historyRuns int

	// saved mirrors the persisted bookmarks once known.
	saved domain.Bookmarks
}

// NewBookmarkStore creates a store on an open, migrated database.
func NewBookmarkStore(db *sql.DB) *BookmarkStore {
	return &BookmarkStore{db: db, runID: uuid.NewString(), historyRuns: DefaultHistoryRuns}
}

// SetHistoryRuns sets how many runs keep a checkpoint. Values below one
// keep only the current run.
func (s *BookmarkStore) SetHistoryRuns(n int) {
	if n < 1 {
		n = 1
	}
	s.historyRuns = n
}

// Open connects to dsn and returns a store that owns the connection.
func Open(ctx context.Context, dsn string) (*BookmarkStore, error) {
	db, err := Connect(ctx, DefaultConfig(dsn))
	if err != nil {
		return nil, err
	}
	return NewBookmarkStore(db), nil
}

// RunID returns the id stamped on checkpoints saved by this store.
func (s *BookmarkStore) RunID() string {
	return s.runID
}

// Load returns the current bookmarks.
func (s *BookmarkStore) Load(ctx context.Context) (domain.Bookmarks, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT stream, parent_id, watermark FROM bookmarks`)
	if err != nil {
		return nil, fmt.Errorf("query bookmarks: %w", err)
	}
	defer rows.Close()

	b := domain.NewBookmarks()
	for rows.Next() {
		var stream, parent, watermark string
		if err := rows.Scan(&stream, &parent, &watermark); err != nil {
			return nil, fmt.Errorf("scan bookmark: %w", err)
		}
		b.Set(stream, parent, domain.Watermark(watermark))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	s.saved = b.Clone()
	return b, nil
}

// Save persists bookmarks and the run's checkpoint in one transaction.
// After a Load or Save only changed pairs are written; otherwise the stored
// set is replaced. Each run keeps one checkpoint row and only the most recent
// runs are retained.
func (s *BookmarkStore) Save(ctx context.Context, bookmarks domain.Bookmarks) error {
	state, err := domain.MarshalState(bookmarks)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	err = transaction(ctx, s.db, func(tx *sql.Tx) error {
		prev := s.saved
		if prev == nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM bookmarks`); err != nil {
				return fmt.Errorf("clear bookmarks: %w", err)
			}
		}
		changed, removed := bookmarks.Diff(prev)

		for _, e := range removed {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM bookmarks WHERE stream = $1 AND parent_id = $2`, e.Stream, e.Parent); err != nil {
				return fmt.Errorf("remove bookmark %s/%s: %w", e.Stream, e.Parent, err)
			}
		}

		for _, e := range changed {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO bookmarks (stream, parent_id, watermark, updated_at)
				VALUES ($1, $2, $3, NOW())
				ON CONFLICT (stream, parent_id) DO UPDATE SET
					watermark = EXCLUDED.watermark,
					updated_at = NOW()
			`, e.Stream, e.Parent, string(e.Watermark)); err != nil {
				return fmt.Errorf("save bookmark %s/%s: %w", e.Stream, e.Parent, err)
			}
		}

		// One row per run; re-inserting moves it to the newest id.
		if _, err := tx.ExecContext(ctx, `DELETE FROM checkpoints WHERE run_id = $1`, s.runID); err != nil {
			return fmt.Errorf("replace checkpoint: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO checkpoints (run_id, state) VALUES ($1, $2)
		`, s.runID, string(state)); err != nil {
			return fmt.Errorf("record checkpoint: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM checkpoints WHERE id NOT IN (
				SELECT id FROM checkpoints ORDER BY id DESC LIMIT $1
			)
		`, s.historyRuns); err != nil {
			return fmt.Errorf("prune checkpoints: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.saved = bookmarks.Clone()
	return nil
}

// History returns up to limit checkpoints, newest first. A limit of zero or
// less returns all of them.
func (s *BookmarkStore) History(ctx context.Context, limit int) ([]domain.Checkpoint, error) {
	query := `SELECT run_id, state, saved_at FROM checkpoints ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query checkpoints: %w", err)
	}
	defer rows.Close()

	var out []domain.Checkpoint
	for rows.Next() {
		var cp domain.Checkpoint
		var state []byte
		if err := rows.Scan(&cp.RunID, &state, &cp.SavedAt); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		if cp.Bookmarks, err = domain.UnmarshalState(state); err != nil {
			return nil, fmt.Errorf("decode checkpoint: %w", err)
		}
		out = append(out, cp)
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (s *BookmarkStore) Close() error {
	return s.db.Close()
}
