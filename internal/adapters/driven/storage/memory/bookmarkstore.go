package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/cmtap/internal/core/domain"
	"github.com/custodia-labs/cmtap/internal/core/ports/driven"
)

// Ensure BookmarkStore implements the interface.
var _ driven.BookmarkStore = (*BookmarkStore)(nil)

// BookmarkStore is an in-memory implementation of driven.BookmarkStore.
// State lives only as long as the process; it backs dry runs and tests.
type BookmarkStore struct {
	mu        sync.RWMutex
	bookmarks domain.Bookmarks
	saves     int
}

// NewBookmarkStore creates a store seeded with initial, which may be nil.
func NewBookmarkStore(initial domain.Bookmarks) *BookmarkStore {
	if initial == nil {
		initial = domain.NewBookmarks()
	}
	return &BookmarkStore{bookmarks: initial.Clone()}
}

// Load returns a copy of the stored bookmarks.
func (s *BookmarkStore) Load(_ context.Context) (domain.Bookmarks, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bookmarks.Clone(), nil
}

// Save replaces the stored bookmarks with a copy.
func (s *BookmarkStore) Save(_ context.Context, bookmarks domain.Bookmarks) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookmarks = bookmarks.Clone()
	s.saves++
	return nil
}

// Saves returns how many times Save has been called.
func (s *BookmarkStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// Close is a no-op.
func (s *BookmarkStore) Close() error {
	return nil
}
