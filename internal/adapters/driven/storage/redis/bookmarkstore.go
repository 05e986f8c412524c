package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/cmtap/internal/core/domain"
	"github.com/custodia-labs/cmtap/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.BookmarkStore = (*BookmarkStore)(nil)

const statePrefix = "cmtap:state:"

// DefaultStateKey is used when no key is configured.
const DefaultStateKey = "default"

// BookmarkStore implements driven.BookmarkStore on a single Redis key.
type BookmarkStore struct {
	client *redis.Client
	key    string
}

// NewBookmarkStore creates a store that keeps its state under name.
func NewBookmarkStore(client *redis.Client, name string) *BookmarkStore {
	if name == "" {
		name = DefaultStateKey
	}
	return &BookmarkStore{client: client, key: statePrefix + name}
}

// Key returns the Redis key holding the state.
func (s *BookmarkStore) Key() string {
	return s.key
}

// Load returns the stored bookmarks, or empty bookmarks when the key is unset.
func (s *BookmarkStore) Load(ctx context.Context) (domain.Bookmarks, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.NewBookmarks(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", s.key, err)
	}

	b, err := domain.UnmarshalState(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.key, err)
	}
	return b, nil
}

// Save replaces the stored bookmarks. SET is atomic and, with AOF fsync
// enabled on the server, durable once acknowledged.
func (s *BookmarkStore) Save(ctx context.Context, bookmarks domain.Bookmarks) error {
	data, err := domain.MarshalState(bookmarks)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", s.key, err)
	}
	return nil
}

// Close closes the underlying client.
func (s *BookmarkStore) Close() error {
	return s.client.Close()
}
