package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownStream indicates a stream id that is not in the catalog.
	ErrUnknownStream = errors.New("unknown stream")

	// ErrInvalidStreamDefinition indicates a stream definition whose sync mode
	// and bookmark key disagree.
	ErrInvalidStreamDefinition = errors.New("invalid stream definition")

	// ErrSyncInProgress indicates a sync is already running.
	ErrSyncInProgress = errors.New("sync in progress")

	// Incremental state errors.

	// ErrInvalidWatermark indicates a stored watermark could not be parsed.
	ErrInvalidWatermark = errors.New("invalid watermark")

	// ErrInvalidTimestamp indicates a record's bookmark field could not be parsed.
	ErrInvalidTimestamp = errors.New("invalid record timestamp")

	// Fetch errors.

	// ErrMalformedResponse indicates a response body that is not a page envelope.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrRetriesExhausted indicates every retry attempt hit a server error.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrLockHeld indicates another run holds the bookmark store lock.
	ErrLockHeld = errors.New("run lock held by another process")
)
