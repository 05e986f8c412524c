// Package file provides a BookmarkStore backed by a Singer state.json file.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/cmtap/internal/core/domain"
	"github.com/custodia-labs/cmtap/internal/core/ports/driven"
)

// Ensure BookmarkStore implements the interface.
var _ driven.BookmarkStore = (*BookmarkStore)(nil)

// DefaultFileName is the state file name inside the data directory.
const DefaultFileName = "state.json"

// BookmarkStore reads and writes {"bookmarks": {...}} to a JSON file.
// Every Save replaces the file atomically and syncs it to disk.
type BookmarkStore struct {
	path string
}

// NewBookmarkStore creates a store at path. An empty path uses
// ~/.cmtap/state.json.
func NewBookmarkStore(path string) (*BookmarkStore, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, ".cmtap", DefaultFileName)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	return &BookmarkStore{path: path}, nil
}

// Path returns the state file path.
func (s *BookmarkStore) Path() string {
	return s.path
}

// Load reads the state file. A missing file yields empty bookmarks.
func (s *BookmarkStore) Load(_ context.Context) (domain.Bookmarks, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.NewBookmarks(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	b, err := domain.UnmarshalState(data)
	if err != nil {
		return nil, fmt.Errorf("parsing state file %s: %w", s.path, err)
	}
	return b, nil
}

// Save writes the bookmarks to a temp file, syncs it, and renames it over
// the state file.
func (s *BookmarkStore) Save(_ context.Context, bookmarks domain.Bookmarks) error {
	data, err := domain.MarshalState(bookmarks)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".state-*.json")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}

// Close is a no-op.
func (s *BookmarkStore) Close() error {
	return nil
}
