package domain

import "fmt"

// SyncMode is how a stream is extracted on each run.
type SyncMode string

const (
	// SyncModeFull replaces the stream wholesale each run.
	SyncModeFull SyncMode = "FULL_TABLE"

	// SyncModeIncremental fetches only records newer than the stored watermark.
	SyncModeIncremental SyncMode = "INCREMENTAL"
)

// StreamScope says which entity a stream's fetches are scoped to.
type StreamScope string

const (
	// ScopeClient streams are fetched once per configured client.
	ScopeClient StreamScope = "client"

	// ScopeParent streams are fetched once per parent campaign.
	ScopeParent StreamScope = "parent"
)

// OrderDirection is the record order requested from activity endpoints.
type OrderDirection string

const (
	// OrderDescending returns the most recent records first.
	OrderDescending OrderDirection = "desc"

	// OrderAscending returns the oldest records first.
	OrderAscending OrderDirection = "asc"
)

// ParseOrderDirection parses "asc" or "desc". Empty defaults to descending.
func ParseOrderDirection(s string) (OrderDirection, error) {
	switch OrderDirection(s) {
	case "", OrderDescending:
		return OrderDescending, nil
	case OrderAscending:
		return OrderAscending, nil
	default:
		return "", fmt.Errorf("%w: order direction %q", ErrInvalidInput, s)
	}
}

// StreamDefinition is the static description of one extractable entity type.
type StreamDefinition struct {
	// ID is the stream identifier (e.g. "campaigns", "opens").
	ID string

	// Mode is FULL or INCREMENTAL.
	Mode SyncMode

	// BookmarkKey orders incremental records. Empty for full streams.
	BookmarkKey string

	// PrimaryKey uniquely identifies a record for downstream upsert.
	PrimaryKey []string

	// Scope selects client-level or per-parent fetches.
	Scope StreamScope

	// Endpoint is the resource name appended to the scope path
	// (e.g. "opens" for /campaigns/{id}/opens.json).
	Endpoint string

	// ParentProducer marks the stream whose records seed the parent set.
	ParentProducer bool

	// ParentIDField is the field holding the parent id in producer records.
	ParentIDField string
}

// IsIncremental reports whether the stream is filtered by a watermark.
func (d StreamDefinition) IsIncremental() bool {
	return d.Mode == SyncModeIncremental
}

// Validate checks that Mode == INCREMENTAL exactly when BookmarkKey is set.
func (d StreamDefinition) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidStreamDefinition)
	}
	switch d.Mode {
	case SyncModeIncremental:
		if d.BookmarkKey == "" {
			return fmt.Errorf("%w: %s is incremental without a bookmark key", ErrInvalidStreamDefinition, d.ID)
		}
	case SyncModeFull:
		if d.BookmarkKey != "" {
			return fmt.Errorf("%w: %s is full sync with bookmark key %q", ErrInvalidStreamDefinition, d.ID, d.BookmarkKey)
		}
	default:
		return fmt.Errorf("%w: %s has unknown mode %q", ErrInvalidStreamDefinition, d.ID, d.Mode)
	}
	if d.ParentProducer && (d.Mode != SyncModeFull || d.Scope != ScopeClient || d.ParentIDField == "") {
		return fmt.Errorf("%w: parent producer %s must be a full, client scoped stream with a parent id field",
			ErrInvalidStreamDefinition, d.ID)
	}
	return nil
}
