// Package catalog holds the static table of Campaign Monitor streams, their
// JSON schemas, and Singer catalog discovery and selection.
package catalog

import (
	"embed"
	"fmt"
	"sort"

	"github.com/custodia-labs/cmtap/internal/core/domain"
	"github.com/custodia-labs/cmtap/internal/core/ports/driven"
)

// Stream identifiers.
const (
	StreamCampaigns       = "campaigns"
	StreamSuppressionList = "suppressionlist"
	StreamRecipients      = "recipients"
	StreamBounces         = "bounces"
	StreamOpens           = "opens"
	StreamClicks          = "clicks"
	StreamUnsubscribes    = "unsubscribes"
	StreamSpam            = "spam"
)

const (
	// ActivityBookmarkKey orders every activity stream.
	ActivityBookmarkKey = "Date"

	// CampaignIDField is the id field of campaign records.
	CampaignIDField = "CampaignID"

	// EmailAddressField keys subscriber-level records.
	EmailAddressField = "EmailAddress"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Ensure Catalog implements the interface.
var _ driven.StreamCatalog = (*Catalog)(nil)

// Definitions returns the Campaign Monitor stream table.
func Definitions() []domain.StreamDefinition {
	activity := func(id string) domain.StreamDefinition {
		return domain.StreamDefinition{
			ID:          id,
			Mode:        domain.SyncModeIncremental,
			BookmarkKey: ActivityBookmarkKey,
			PrimaryKey:  []string{EmailAddressField},
			Scope:       domain.ScopeParent,
			Endpoint:    id,
		}
	}

	return []domain.StreamDefinition{
		{
			ID:             StreamCampaigns,
			Mode:           domain.SyncModeFull,
			PrimaryKey:     []string{CampaignIDField},
			Scope:          domain.ScopeClient,
			Endpoint:       StreamCampaigns,
			ParentProducer: true,
			ParentIDField:  CampaignIDField,
		},
		{
			ID:         StreamSuppressionList,
			Mode:       domain.SyncModeFull,
			PrimaryKey: []string{EmailAddressField},
			Scope:      domain.ScopeClient,
			Endpoint:   StreamSuppressionList,
		},
		{
			ID:         StreamRecipients,
			Mode:       domain.SyncModeFull,
			PrimaryKey: []string{EmailAddressField},
			Scope:      domain.ScopeParent,
			Endpoint:   StreamRecipients,
		},
		activity(StreamBounces),
		activity(StreamOpens),
		activity(StreamClicks),
		activity(StreamUnsubscribes),
		activity(StreamSpam),
	}
}

// Catalog is an ordered, validated set of stream definitions.
type Catalog struct {
	defs []domain.StreamDefinition
	byID map[string]int
}

// Default returns the Campaign Monitor catalog.
func Default() *Catalog {
	c, err := New(Definitions()...)
	if err != nil {
		panic(err)
	}
	return c
}

// New validates the definitions and builds a catalog. At most one stream may
// produce parents, and parent-scoped streams require one.
func New(defs ...domain.StreamDefinition) (*Catalog, error) {
	c := &Catalog{
		defs: make([]domain.StreamDefinition, 0, len(defs)),
		byID: make(map[string]int, len(defs)),
	}

	producers := 0
	parentScoped := false
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byID[d.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate stream %s", domain.ErrInvalidStreamDefinition, d.ID)
		}
		if d.ParentProducer {
			producers++
		}
		if d.Scope == domain.ScopeParent {
			parentScoped = true
		}
		c.byID[d.ID] = len(c.defs)
		c.defs = append(c.defs, d)
	}

	if producers > 1 {
		return nil, fmt.Errorf("%w: %d parent producers", domain.ErrInvalidStreamDefinition, producers)
	}
	if parentScoped && producers == 0 {
		return nil, fmt.Errorf("%w: parent-scoped streams without a parent producer", domain.ErrInvalidStreamDefinition)
	}
	return c, nil
}

// Streams returns every definition in catalog order.
func (c *Catalog) Streams() []domain.StreamDefinition {
	out := make([]domain.StreamDefinition, len(c.defs))
	copy(out, c.defs)
	return out
}

// IDs returns every stream id in catalog order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.defs))
	for i, d := range c.defs {
		ids[i] = d.ID
	}
	return ids
}

// Get looks a definition up by id.
func (c *Catalog) Get(id string) (domain.StreamDefinition, bool) {
	i, ok := c.byID[id]
	if !ok {
		return domain.StreamDefinition{}, false
	}
	return c.defs[i], true
}

// Resolve maps ids to definitions in catalog order, dropping duplicates.
func (c *Catalog) Resolve(ids []string) ([]domain.StreamDefinition, error) {
	idx := make([]int, 0, len(ids))
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		i, ok := c.byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownStream, id)
		}
		if seen[i] {
			continue
		}
		seen[i] = true
		idx = append(idx, i)
	}
	sort.Ints(idx)

	out := make([]domain.StreamDefinition, len(idx))
	for n, i := range idx {
		out[n] = c.defs[i]
	}
	return out, nil
}

// ParentProducer returns the stream whose records seed the parent set.
func (c *Catalog) ParentProducer() (domain.StreamDefinition, bool) {
	for _, d := range c.defs {
		if d.ParentProducer {
			return d, true
		}
	}
	return domain.StreamDefinition{}, false
}
