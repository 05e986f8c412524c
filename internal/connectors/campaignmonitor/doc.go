// Package campaignmonitor implements the page fetcher for the Campaign
// Monitor v3.2 REST API.
//
// # Architecture
//
// The package provides two [driven.PageFetcher] implementations that are
// stacked at startup:
//
//   - Client: performs exactly one GET per call and decodes the page envelope
//   - RetryingFetcher: a decorator that retries server errors with backoff
//
// The pagination driver only ever sees the decorator, so it stays unaware of
// retries.
//
// # Requests
//
// Client-scoped streams are read from clients/{client_id}/{stream}.json and
// parent-scoped streams from campaigns/{campaign_id}/{stream}.json. Every
// request carries page, and optionally pagesize. Activity streams add date
// (YYYY-MM-DD HH:MM), orderfield=date and orderdirection.
//
// Authentication is HTTP Basic with the API key as username and an empty
// password.
//
// # Rate Limiting
//
// Requests pass through a token bucket before being sent. The API's
// X-RateLimit-Remaining and X-RateLimit-Reset headers are recorded after every
// response. Only a successful response reporting X-RateLimit-Remaining: 0
// makes the next request wait for the reset. A 429 is a client error and ends
// the run, so its Retry-After value is recorded but never waited on.
//
// # Error Handling
//
//   - 5xx responses: retried up to 5 attempts, waiting 10s then growing by
//     a factor of 1.5, with no jitter. Exhaustion returns
//     [domain.ErrRetriesExhausted] wrapping the last [APIError].
//   - 4xx responses: returned at once as [APIError].
//   - Bodies that are not a page envelope: [domain.ErrMalformedResponse].
//   - Transport failures and timeouts: returned at once.
package campaignmonitor
