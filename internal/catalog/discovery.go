package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/custodia-labs/cmtap/internal/core/domain"
)

// Schema returns the embedded JSON schema for a stream.
func Schema(streamID string) (json.RawMessage, error) {
	data, err := schemaFS.ReadFile("schemas/" + streamID + ".json")
	if err != nil {
		return nil, fmt.Errorf("%w: no schema for %s", domain.ErrUnknownStream, streamID)
	}
	return json.RawMessage(data), nil
}

// Document is a Singer catalog.
type Document struct {
	Streams []Entry `json:"streams"`
}

// Entry describes one stream in a Singer catalog.
type Entry struct {
	TapStreamID       string          `json:"tap_stream_id"`
	Stream            string          `json:"stream"`
	KeyProperties     []string        `json:"key_properties"`
	ReplicationMethod string          `json:"replication_method"`
	ReplicationKey    string          `json:"replication_key,omitempty"`
	Schema            json.RawMessage `json:"schema"`
	Metadata          []Metadata      `json:"metadata"`
}

// Metadata is one breadcrumb-addressed metadata entry.
type Metadata struct {
	Breadcrumb []string       `json:"breadcrumb"`
	Metadata   map[string]any `json:"metadata"`
}

// Discover builds the Singer catalog for every stream. Streams are not
// selected by default.
func (c *Catalog) Discover() (*Document, error) {
	doc := &Document{Streams: make([]Entry, 0, len(c.defs))}
	for _, d := range c.defs {
		schema, err := Schema(d.ID)
		if err != nil {
			return nil, err
		}

		streamMeta := map[string]any{
			"selected":                  false,
			"table-key-properties":      d.PrimaryKey,
			"forced-replication-method": string(d.Mode),
		}
		if d.BookmarkKey != "" {
			streamMeta["valid-replication-keys"] = []string{d.BookmarkKey}
		}

		doc.Streams = append(doc.Streams, Entry{
			TapStreamID:       d.ID,
			Stream:            d.ID,
			KeyProperties:     d.PrimaryKey,
			ReplicationMethod: string(d.Mode),
			ReplicationKey:    d.BookmarkKey,
			Schema:            schema,
			Metadata: []Metadata{
				{Breadcrumb: []string{}, Metadata: streamMeta},
			},
		})
	}
	return doc, nil
}

// SelectedStreams returns the ids of streams marked selected in a Singer
// catalog, in document order. A stream is selected when its top-level
// metadata has "selected": true or its schema has "selected": true.
func SelectedStreams(data []byte) ([]string, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: catalog is not valid JSON", domain.ErrInvalidInput)
	}

	streams := gjson.GetBytes(data, "streams")
	if !streams.IsArray() {
		return nil, fmt.Errorf("%w: catalog has no streams array", domain.ErrInvalidInput)
	}

	var selected []string
	streams.ForEach(func(_, s gjson.Result) bool {
		id := s.Get("tap_stream_id").String()
		if id == "" {
			id = s.Get("stream").String()
		}
		if id != "" && isSelected(s) {
			selected = append(selected, id)
		}
		return true
	})
	return selected, nil
}

func isSelected(stream gjson.Result) bool {
	if stream.Get("schema.selected").Bool() {
		return true
	}

	selected := false
	stream.Get("metadata").ForEach(func(_, m gjson.Result) bool {
		if len(m.Get("breadcrumb").Array()) == 0 && m.Get("metadata.selected").Bool() {
			selected = true
			return false
		}
		return true
	})
	return selected
}
