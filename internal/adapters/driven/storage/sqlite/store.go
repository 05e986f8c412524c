package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/cmtap/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/cmtap/internal/core/domain"
	"github.com/custodia-labs/cmtap/internal/core/ports/driven"
)

// DefaultFileName is the database file name inside the data directory.
const DefaultFileName = "state.db"

// DefaultHistoryRuns is how many runs keep a checkpoint row.
const DefaultHistoryRuns = 20

// Ensure Store implements the interfaces.
var (
	_ driven.BookmarkStore     = (*Store)(nil)
	_ driven.CheckpointHistory = (*Store)(nil)
)

// Store is a SQLite-backed bookmark store. Every Save updates the current
// bookmarks and the checkpoint row tagged with the run id.
type Store struct {
	db          *sql.DB
	path        string
	runID       string
	historyRuns int

	// saved mirrors the persisted bookmarks once known.
	saved domain.Bookmarks
}

// NewStore opens (creating if needed) the database at path and migrates it.
// If path is empty, defaults to ~/.cmtap/state.db.
func NewStore(path string) (*Store, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, ".cmtap", DefaultFileName)
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// WAL with full sync so a committed checkpoint survives a crash
	db, err := sql.Open("sqlite",
		path+"?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:          db,
		path:        path,
		runID:       uuid.NewString(),
		historyRuns: DefaultHistoryRuns,
	}

	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// migrate applies pending goose migrations.
func (s *Store) migrate(ctx context.Context) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db, migrations.FS)
	if err != nil {
		return fmt.Errorf("creating migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return err
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// RunID returns the id stamped on checkpoints saved by this store.
func (s *Store) RunID() string {
	return s.runID
}

// SetHistoryRuns sets how many runs keep a checkpoint. Values below one
// keep only the current run.
func (s *Store) SetHistoryRuns(n int) {
	if n < 1 {
		n = 1
	}
	s.historyRuns = n
}

// Load returns the current bookmarks.
func (s *Store) Load(ctx context.Context) (domain.Bookmarks, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT stream, parent_id, watermark FROM bookmarks`)
	if err != nil {
		return nil, fmt.Errorf("querying bookmarks: %w", err)
	}
	defer rows.Close()

	b := domain.NewBookmarks()
	for rows.Next() {
		var stream, parent, watermark string
		if err := rows.Scan(&stream, &parent, &watermark); err != nil {
			return nil, fmt.Errorf("scanning bookmark: %w", err)
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
// set is replaced. Each run keeps a single checkpoint row holding its latest
// snapshot, and only the most recent runs are retained.
func (s *Store) Save(ctx context.Context, bookmarks domain.Bookmarks) error {
	state, err := domain.MarshalState(bookmarks)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	prev := s.saved
	if prev == nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM bookmarks`); err != nil {
			return fmt.Errorf("clearing bookmarks: %w", err)
		}
	}
	changed, removed := bookmarks.Diff(prev)

	for _, e := range removed {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM bookmarks WHERE stream = ? AND parent_id = ?`, e.Stream, e.Parent); err != nil {
			return fmt.Errorf("removing bookmark %s/%s: %w", e.Stream, e.Parent, err)
		}
	}

	now := time.Now().UTC()
	if len(changed) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO bookmarks (stream, parent_id, watermark, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(stream, parent_id) DO UPDATE SET
				watermark = excluded.watermark,
				updated_at = excluded.updated_at
		`)
		if err != nil {
			return fmt.Errorf("preparing bookmark upsert: %w", err)
		}
		defer stmt.Close()

		for _, e := range changed {
			if _, err := stmt.ExecContext(ctx, e.Stream, e.Parent, string(e.Watermark), now); err != nil {
				return fmt.Errorf("saving bookmark %s/%s: %w", e.Stream, e.Parent, err)
			}
		}
	}

	// One row per run; re-inserting moves it to the newest id.
	if _, err := tx.ExecContext(ctx, `DELETE FROM checkpoints WHERE run_id = ?`, s.runID); err != nil {
		return fmt.Errorf("replacing checkpoint: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO checkpoints (run_id, state, saved_at) VALUES (?, ?, ?)
	`, s.runID, string(state), now); err != nil {
		return fmt.Errorf("recording checkpoint: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM checkpoints WHERE id NOT IN (
			SELECT id FROM checkpoints ORDER BY id DESC LIMIT ?
		)
	`, s.historyRuns); err != nil {
		return fmt.Errorf("pruning checkpoints: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing bookmarks: %w", err)
	}
	s.saved = bookmarks.Clone()
	return nil
}

// History returns up to limit checkpoints, newest first. A limit of zero or
// less returns all of them.
func (s *Store) History(ctx context.Context, limit int) ([]domain.Checkpoint, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, state, saved_at FROM checkpoints
		ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying checkpoints: %w", err)
	}
	defer rows.Close()

	var out []domain.Checkpoint
	for rows.Next() {
		var cp domain.Checkpoint
		var state string
		if err := rows.Scan(&cp.RunID, &state, &cp.SavedAt); err != nil {
			return nil, fmt.Errorf("scanning checkpoint: %w", err)
		}
		if cp.Bookmarks, err = domain.UnmarshalState([]byte(state)); err != nil {
			return nil, fmt.Errorf("decoding checkpoint: %w", err)
		}
		out = append(out, cp)
	}
	return out, rows.Err()
}
