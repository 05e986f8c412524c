package domain

import (
	"encoding/json"
	"sort"
	"time"
)

// Bookmarks is the persisted stream → parent → watermark mapping.
// Full-sync streams never have an entry.
type Bookmarks map[string]map[string]Watermark

// NewBookmarks creates an empty bookmark set.
func NewBookmarks() Bookmarks {
	return make(Bookmarks)
}

// Get returns the watermark for a (stream, parent) pair, or the zero watermark.
func (b Bookmarks) Get(stream, parent string) Watermark {
	if b == nil {
		return ""
	}
	return b[stream][parent]
}

// Set records the watermark for a (stream, parent) pair.
func (b Bookmarks) Set(stream, parent string, w Watermark) {
	parents, ok := b[stream]
	if !ok {
		parents = make(map[string]Watermark)
		b[stream] = parents
	}
	parents[parent] = w
}

// Delete removes every watermark for a stream.
func (b Bookmarks) Delete(stream string) {
	delete(b, stream)
}

// Streams returns the stream ids with bookmarks, sorted.
func (b Bookmarks) Streams() []string {
	ids := make([]string, 0, len(b))
	for id := range b {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns a deep copy.
func (b Bookmarks) Clone() Bookmarks {
	out := make(Bookmarks, len(b))
	for stream, parents := range b {
		cp := make(map[string]Watermark, len(parents))
		for parent, w := range parents {
			cp[parent] = w
		}
		out[stream] = cp
	}
	return out
}

// State is the Singer state document wrapping the bookmarks.
type State struct {
	Bookmarks Bookmarks `json:"bookmarks"`
}

// MarshalState encodes bookmarks in the Singer state layout.
func MarshalState(b Bookmarks) ([]byte, error) {
	if b == nil {
		b = NewBookmarks()
	}
	return json.Marshal(State{Bookmarks: b})
}

// UnmarshalState decodes a state document. Both the Singer layout
// {"bookmarks": {...}} and the bare {stream: {parent: watermark}} layout are
// accepted. Empty input yields empty bookmarks.
func UnmarshalState(data []byte) (Bookmarks, error) {
	if len(data) == 0 {
		return NewBookmarks(), nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	inner := data
	if nested, ok := raw["bookmarks"]; ok {
		inner = nested
	}

	b := NewBookmarks()
	if string(inner) == "null" {
		return b, nil
	}
	if err := json.Unmarshal(inner, &b); err != nil {
		return nil, err
	}
	for stream, parents := range b {
		if parents == nil {
			delete(b, stream)
		}
	}
	return b, nil
}

// Checkpoint is one persisted bookmark snapshot.
type Checkpoint struct {
	// RunID identifies the run that saved the snapshot.
	RunID string

	// SavedAt is when the snapshot was persisted.
	SavedAt time.Time

	// Bookmarks is the full snapshot.
	Bookmarks Bookmarks
}

// BookmarkEntry is one stored (stream, parent, watermark) triple.
type BookmarkEntry struct {
	Stream    string
	Parent    string
	Watermark Watermark
}

// Diff compares b against a previously persisted set. changed holds the
// pairs that are new or whose watermark differs; removed holds the pairs in
// prev that b no longer has. Both are sorted by stream then parent.
func (b Bookmarks) Diff(prev Bookmarks) (changed, removed []BookmarkEntry) {
	for stream, parents := range b {
		for parent, w := range parents {
			if old, ok := prev[stream][parent]; !ok || old != w {
				changed = append(changed, BookmarkEntry{Stream: stream, Parent: parent, Watermark: w})
			}
		}
	}
	for stream, parents := range prev {
		for parent, w := range parents {
			if _, ok := b[stream][parent]; !ok {
				removed = append(removed, BookmarkEntry{Stream: stream, Parent: parent, Watermark: w})
			}
		}
	}
	sortEntries(changed)
	sortEntries(removed)
	return changed, removed
}

func sortEntries(entries []BookmarkEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Stream != entries[j].Stream {
			return entries[i].Stream < entries[j].Stream
		}
		return entries[i].Parent < entries[j].Parent
	})
}
