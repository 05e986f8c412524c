package campaignmonitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/cmtap/internal/core/domain"
	"github.com/custodia-labs/cmtap/internal/core/ports/driven"
	"github.com/custodia-labs/cmtap/internal/logger"
)

// Ensure RetryingFetcher implements the interface.
var _ driven.PageFetcher = (*RetryingFetcher)(nil)

const (
	// DefaultMaxAttempts is the total number of attempts per page.
	DefaultMaxAttempts = 5

	// DefaultInitialBackoff is the wait after the first server error.
	DefaultInitialBackoff = 10 * time.Second

	// DefaultBackoffMultiplier grows the wait after each failed attempt.
	DefaultBackoffMultiplier = 1.5
)

// RetryPolicy is a pure exponential backoff without jitter.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	Multiplier     float64
}

// DefaultRetryPolicy returns 5 attempts, 10s initial wait, factor 1.5.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    DefaultMaxAttempts,
		InitialBackoff: DefaultInitialBackoff,
		Multiplier:     DefaultBackoffMultiplier,
	}
}

// Validate fills zero fields with defaults and rejects negative ones.
func (p *RetryPolicy) Validate() error {
	if p.MaxAttempts < 0 || p.InitialBackoff < 0 || p.Multiplier < 0 {
		return fmt.Errorf("%w: negative retry setting", domain.ErrInvalidInput)
	}
	if p.MaxAttempts == 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.InitialBackoff == 0 {
		p.InitialBackoff = DefaultInitialBackoff
	}
	if p.Multiplier == 0 {
		p.Multiplier = DefaultBackoffMultiplier
	}
	return nil
}

// Backoff returns the wait after the given failed attempt (1-based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	d := float64(p.InitialBackoff)
	for i := 1; i < attempt; i++ {
		d *= p.Multiplier
	}
	return time.Duration(d)
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the context-aware SleepFunc used outside tests.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryingFetcher retries server errors of the wrapped fetcher. Client
// errors, transport failures and malformed bodies are returned at once.
type RetryingFetcher struct {
	next   driven.PageFetcher
	policy RetryPolicy
	sleep  SleepFunc
}

// NewRetryingFetcher wraps next with the retry policy. Zero policy fields take
// their defaults and negative ones are rejected; a nil sleep uses Sleep.
func NewRetryingFetcher(next driven.PageFetcher, policy RetryPolicy, sleep SleepFunc) (*RetryingFetcher, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if sleep == nil {
		sleep = Sleep
	}
	return &RetryingFetcher{next: next, policy: policy, sleep: sleep}, nil
}

// FetchPage fetches one page, retrying 5xx responses with backoff.
func (f *RetryingFetcher) FetchPage(ctx context.Context, req domain.PageRequest) (*domain.Page, error) {
	var lastErr *APIError
	for attempt := 1; attempt <= f.policy.MaxAttempts; attempt++ {
		page, err := f.next.FetchPage(ctx, req)
		if err == nil {
			return page, nil
		}

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.IsServerError() {
			return nil, err
		}
		lastErr = apiErr

		if attempt == f.policy.MaxAttempts {
			break
		}

		wait := f.policy.Backoff(attempt)
		logger.Warn("%s page %d: server error %d, retrying in %s (attempt %d/%d)",
			req.Stream.ID, req.Page, apiErr.StatusCode, wait, attempt, f.policy.MaxAttempts)
		if err := f.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w after %d attempts: %w", domain.ErrRetriesExhausted, f.policy.MaxAttempts, lastErr)
}
