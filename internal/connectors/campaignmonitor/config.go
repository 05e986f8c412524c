package campaignmonitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/cmtap/internal/core/domain"
)

const (
	// DefaultBaseURL is the Campaign Monitor v3.2 API root.
	DefaultBaseURL = "https://api.createsend.com/api/v3.2"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second
)

// Config holds the connection settings for the Campaign Monitor API.
type Config struct {
	// APIKey authenticates as the HTTP Basic username.
	APIKey string

	// ClientID scopes client-level streams.
	ClientID string

	// BaseURL is the API root. Default: DefaultBaseURL
	BaseURL string

	// PageSize is sent as pagesize when positive; the server default otherwise.
	PageSize int

	// Order is the requested sort order of activity pages.
	Order domain.OrderDirection

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// RateLimit is the proactive throttle.
	RateLimit RateLimitConfig

	// Retry is the backoff policy for server errors.
	Retry RetryPolicy
}

// DefaultConfig returns a config with every optional field defaulted.
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		Order:     domain.OrderDescending,
		Timeout:   DefaultTimeout,
		RateLimit: DefaultRateLimit,
		Retry:     DefaultRetryPolicy(),
	}
}

// Validate checks required fields and fills unset optional ones.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: api_key", ErrConfigMissingKey)
	}
	if strings.TrimSpace(c.ClientID) == "" {
		return fmt.Errorf("%w: client_id", ErrConfigMissingKey)
	}

	defaults := DefaultConfig()
	if c.BaseURL == "" {
		c.BaseURL = defaults.BaseURL
	}
	if c.Order == "" {
		c.Order = defaults.Order
	}
	if c.Timeout <= 0 {
		c.Timeout = defaults.Timeout
	}
	if c.PageSize < 0 {
		return fmt.Errorf("%w: page size %d", domain.ErrInvalidInput, c.PageSize)
	}
	return c.Retry.Validate()
}
