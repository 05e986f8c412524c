package campaignmonitor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/carlmjohnson/requests"
	"github.com/tidwall/gjson"

	"github.com/custodia-labs/cmtap/internal/core/domain"
	"github.com/custodia-labs/cmtap/internal/core/ports/driven"
	"github.com/custodia-labs/cmtap/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.PageFetcher = (*Client)(nil)

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 4096

// Client performs single page fetches against the Campaign Monitor API.
type Client struct {
	cfg         Config
	httpClient  *http.Client
	rateLimiter *RateLimiter
}

// NewClient creates a client. cfg must already be validated.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:         cfg,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		rateLimiter: NewRateLimiter(cfg.RateLimit),
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// apiBuilder returns a request builder rooted at the configured base URL.
func (c *Client) apiBuilder() *requests.Builder {
	return requests.
		URL(strings.TrimSuffix(c.cfg.BaseURL, "/")+"/").
		Client(c.httpClient).
		BasicAuth(c.cfg.APIKey, "").
		Accept("application/json")
}

// FetchPage performs exactly one GET for the requested page.
func (c *Client) FetchPage(ctx context.Context, req domain.PageRequest) (*domain.Page, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	rb := c.apiBuilder().Param("page", strconv.Itoa(req.Page))
	if req.Stream.Scope == domain.ScopeParent {
		rb = rb.Pathf("campaigns/%s/%s.json", req.ParentID, req.Stream.Endpoint)
	} else {
		rb = rb.Pathf("clients/%s/%s.json", c.cfg.ClientID, req.Stream.Endpoint)
	}
	if c.cfg.PageSize > 0 {
		rb = rb.Param("pagesize", strconv.Itoa(c.cfg.PageSize))
	}
	if req.Stream.IsIncremental() {
		if req.Since != "" {
			rb = rb.Param("date", req.Since)
		}
		rb = rb.
			Param("orderfield", "date").
			Param("orderdirection", string(c.cfg.Order))
	}

	var body bytes.Buffer
	err := rb.
		AddValidator(c.checkResponse).
		ToBytesBuffer(&body).
		Fetch(ctx)
	if err != nil {
		return nil, err
	}

	c.logRateLimit()

	page, err := DecodePage(body.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%s page %d: %w", req.Stream.ID, req.Page, err)
	}
	return page, nil
}

func (c *Client) logRateLimit() {
	remaining := c.rateLimiter.Remaining()
	if remaining < 0 {
		return
	}
	logger.Debug("rate limit: %d of %d remaining, resets %s",
		remaining, c.rateLimiter.Limit(), c.rateLimiter.ResetTime().Format(time.RFC3339))
}

// checkResponse records rate limit headers and turns non-2xx responses into
// an *APIError carrying the status and body.
func (c *Client) checkResponse(res *http.Response) error {
	c.rateLimiter.UpdateFromResponse(res)
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}

	data, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
	apiErr := &APIError{StatusCode: res.StatusCode, Body: strings.TrimSpace(string(data))}
	if res.Request != nil && res.Request.URL != nil {
		apiErr.URL = res.Request.URL.Redacted()
	}
	return apiErr
}

// DecodePage decodes a page envelope. A bare JSON array is a complete,
// single-page result.
func DecodePage(data []byte) (*domain.Page, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: body is not valid JSON", domain.ErrMalformedResponse)
	}

	root := gjson.ParseBytes(data)
	if root.IsArray() {
		results := toRecords(root)
		return &domain.Page{
			Results:      results,
			TotalRecords: len(results),
			TotalPages:   1,
			PageNumber:   1,
		}, nil
	}
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: body is neither an object nor an array", domain.ErrMalformedResponse)
	}

	results := root.Get("Results")
	pageNumber := root.Get("PageNumber")
	numberOfPages := root.Get("NumberOfPages")
	switch {
	case !results.IsArray():
		return nil, fmt.Errorf("%w: missing Results array", domain.ErrMalformedResponse)
	case pageNumber.Type != gjson.Number:
		return nil, fmt.Errorf("%w: missing PageNumber", domain.ErrMalformedResponse)
	case numberOfPages.Type != gjson.Number:
		return nil, fmt.Errorf("%w: missing NumberOfPages", domain.ErrMalformedResponse)
	}

	return &domain.Page{
		Results:      toRecords(results),
		TotalRecords: int(root.Get("TotalNumberOfRecords").Int()),
		TotalPages:   int(numberOfPages.Int()),
		PageNumber:   int(pageNumber.Int()),
	}, nil
}

func toRecords(arr gjson.Result) []domain.Record {
	items := arr.Array()
	out := make([]domain.Record, len(items))
	for i, item := range items {
		out[i] = domain.Record(item.Raw)
	}
	return out
}
