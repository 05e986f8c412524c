package domain

import "encoding/json"

// Record is one JSON object exactly as returned by the API.
// Fields keep their wire order; adapters read and write fields by path
// without decoding into a map.
type Record json.RawMessage

// MarshalJSON returns the raw object.
func (r Record) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

// UnmarshalJSON stores a copy of the raw object.
func (r *Record) UnmarshalJSON(data []byte) error {
	*r = append((*r)[:0], data...)
	return nil
}

// Page is the decoded envelope of one fetch.
type Page struct {
	// Results are the records on this page in server order.
	Results []Record

	// TotalRecords is the server-reported record count across all pages.
	TotalRecords int

	// TotalPages is the server-reported page count.
	TotalPages int

	// PageNumber is the 1-based page the server says it returned.
	// The next request is always PageNumber + 1.
	PageNumber int
}

// PageRequest identifies one logical page fetch.
type PageRequest struct {
	// Stream is the definition being fetched.
	Stream StreamDefinition

	// ParentID scopes per-parent fetches. Empty for client-scoped streams.
	ParentID string

	// Page is the 1-based page number to request.
	Page int

	// Since is the optional filter-input date (YYYY-MM-DD HH:MM).
	Since string
}
