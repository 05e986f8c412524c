package driven

import "github.com/custodia-labs/cmtap/internal/core/domain"

// StreamCatalog is the static table of extractable streams.
type StreamCatalog interface {
	// Streams returns every definition in catalog order.
	Streams() []domain.StreamDefinition

	// Resolve maps stream ids to definitions in catalog order, dropping
	// duplicates. Unknown ids fail with domain.ErrUnknownStream.
	Resolve(ids []string) ([]domain.StreamDefinition, error)

	// ParentProducer returns the stream whose records seed the parent set.
	ParentProducer() (domain.StreamDefinition, bool)
}
