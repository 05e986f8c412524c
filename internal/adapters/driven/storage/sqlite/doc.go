// Package sqlite provides a SQLite-based implementation of the bookmark store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. Two tables are kept:
//
//   - bookmarks: the current (stream, parent) → watermark mapping
//   - checkpoints: the latest snapshot of each recent run, tagged with its run id
//
// Saves after a Load only touch the bookmark rows that changed. Checkpoints
// keep one row per run and are pruned to the newest DefaultHistoryRuns runs.
//
// # Schema
//
// The database schema is managed through goose migrations embedded from the
// migrations/ directory.
//
// # Data Location
//
// By default, the database is stored at ~/.cmtap/state.db
//
// # Durability
//
// Each Save is a single transaction in WAL mode with synchronous=FULL, so a
// checkpoint that returned is on disk.
package sqlite
