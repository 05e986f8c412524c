package driven

import (
	"context"

	"github.com/custodia-labs/cmtap/internal/core/domain"
)

// PageFetcher performs one logical page fetch.
// It is the only port permitted to perform network I/O.
type PageFetcher interface {
	// FetchPage fetches page req.Page of req.Stream, scoped to req.ParentID
	// and filtered by req.Since when set.
	FetchPage(ctx context.Context, req domain.PageRequest) (*domain.Page, error)
}

// PageFetcherFunc adapts a function to PageFetcher.
type PageFetcherFunc func(ctx context.Context, req domain.PageRequest) (*domain.Page, error)

// FetchPage calls f.
func (f PageFetcherFunc) FetchPage(ctx context.Context, req domain.PageRequest) (*domain.Page, error) {
	return f(ctx, req)
}
