package services

import (
	"context"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/custodia-labs/cmtap/internal/core/domain"
	"github.com/custodia-labs/cmtap/internal/core/ports/driven"
	"github.com/custodia-labs/cmtap/internal/logger"
)

// InitialTotalPagesGuess is the page count assumed before the first response,
// large enough that the loop always fetches at least once.
const InitialTotalPagesGuess = 2

// ParentForeignKey is the field injected into records fetched per parent.
const ParentForeignKey = "campaign_id"

// Pass is one extraction of a (stream, parent) pair.
type Pass struct {
	// Stream is the stream being extracted.
	Stream domain.StreamDefinition

	// ParentID scopes the fetches. Empty for client-scoped streams.
	ParentID string

	// Watermark filters incremental streams. Ignored for full streams.
	Watermark domain.Watermark

	// Discard fetches without emitting, used to collect parents for an
	// unselected parent producer.
	Discard bool
}

// PassResult summarises a completed pass.
type PassResult struct {
	// Pages is the number of fetches issued.
	Pages int

	// Records is the number of records accepted (and emitted unless discarded).
	Records int

	// Latest is the maximum bookmark value among accepted records.
	Latest time.Time

	// ParentIDs are the ids read from a parent producer's records, in order.
	ParentIDs []string
}

// PaginationDriver drives a PageFetcher across the pages of one pass.
type PaginationDriver struct {
	fetcher driven.PageFetcher
	sink    driven.RecordSink
	order   domain.OrderDirection
}

// NewPaginationDriver creates a driver. order describes how the server sorts
// incremental pages.
func NewPaginationDriver(fetcher driven.PageFetcher, sink driven.RecordSink, order domain.OrderDirection) *PaginationDriver {
	if order == "" {
		order = domain.OrderDescending
	}
	return &PaginationDriver{fetcher: fetcher, sink: sink, order: order}
}

// Order returns the page order the driver assumes.
func (d *PaginationDriver) Order() domain.OrderDirection {
	return d.order
}

// Run fetches pages until the server reports no more, or, for incremental
// streams, an empty page arrives or the filter signals stop. The next page requested is always
// the server-reported page number plus one.
func (d *PaginationDriver) Run(ctx context.Context, pass Pass) (*PassResult, error) {
	stream := pass.Stream
	since := ""
	if stream.IsIncremental() {
		var err error
		if since, err = pass.Watermark.RequestDate(); err != nil {
			return nil, err
		}
	}

	result := &PassResult{}
	current, total := 1, InitialTotalPagesGuess
	for current <= total {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := d.fetcher.FetchPage(ctx, domain.PageRequest{
			Stream:   stream,
			ParentID: pass.ParentID,
			Page:     current,
			Since:    since,
		})
		if err != nil {
			return nil, fmt.Errorf("fetch %s page %d: %w", stream.ID, current, err)
		}
		result.Pages++

		if result.Pages == 1 {
			logger.Info("%s: %d records reported by server", stream.ID, page.TotalRecords)
		}
		total = page.TotalPages
		current = page.PageNumber + 1

		// Full streams walk every reported page; an empty page only ends
		// incremental passes.
		if len(page.Results) == 0 && stream.IsIncremental() {
			break
		}

		records := page.Results
		stop := false
		if stream.IsIncremental() {
			stop, records, err = FilterNewRecords(records, pass.Watermark, stream.BookmarkKey, d.order)
			if err != nil {
				return nil, fmt.Errorf("filter %s: %w", stream.ID, err)
			}
			latest, err := LatestRecordTime(records, stream.BookmarkKey)
			if err != nil {
				return nil, fmt.Errorf("filter %s: %w", stream.ID, err)
			}
			if latest.After(result.Latest) {
				result.Latest = latest
			}
		}

		if stream.ParentProducer {
			for _, r := range records {
				id := gjson.GetBytes(r, stream.ParentIDField)
				if !id.Exists() || id.String() == "" {
					return nil, fmt.Errorf("%w: %s record without %s",
						domain.ErrMalformedResponse, stream.ID, stream.ParentIDField)
				}
				result.ParentIDs = append(result.ParentIDs, id.String())
			}
		}

		if stream.Scope == domain.ScopeParent && pass.ParentID != "" {
			if records, err = injectParent(records, pass.ParentID); err != nil {
				return nil, fmt.Errorf("inject %s: %w", ParentForeignKey, err)
			}
		}

		result.Records += len(records)
		if !pass.Discard && len(records) > 0 {
			if err := d.sink.WriteRecords(ctx, stream.ID, records); err != nil {
				return nil, fmt.Errorf("write %s records: %w", stream.ID, err)
			}
		}

		if stop {
			logger.Debug("%s: reached watermark %s on page %d", stream.ID, pass.Watermark, page.PageNumber)
			break
		}
	}
	return result, nil
}

// injectParent returns copies of records with the parent foreign key set.
func injectParent(records []domain.Record, parentID string) ([]domain.Record, error) {
	out := make([]domain.Record, len(records))
	for i, r := range records {
		b, err := sjson.SetBytes([]byte(r), ParentForeignKey, parentID)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}
