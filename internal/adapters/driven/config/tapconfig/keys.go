package tapconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/iancoleman/strcase"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CMTAP"

// Kind is the value type of a config key.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindDuration
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindDuration:
		return "duration"
	default:
		return "string"
	}
}

// Key describes one dotted config key.
type Key struct {
	Name        string
	Kind        Kind
	Description string
	Secret      bool
}

// Keys lists every recognised key, in display order.
var Keys = []Key{
	{Name: "api_key", Kind: KindString, Description: "Campaign Monitor API key", Secret: true},
	{Name: "client_id", Kind: KindString, Description: "Client whose data is extracted"},
	{Name: "base_url", Kind: KindString, Description: "API root URL"},
	{Name: "start_date", Kind: KindString, Description: "Initial watermark for pairs without state (RFC3339)"},
	{Name: "page_size", Kind: KindInt, Description: "Records per page; server default when 0"},
	{Name: "order_direction", Kind: KindString, Description: "Activity sort order: asc or desc"},
	{Name: "request_timeout", Kind: KindDuration, Description: "Per-request HTTP timeout"},
	{Name: "retry.max_attempts", Kind: KindInt, Description: "Attempts per page on server errors"},
	{Name: "retry.initial_backoff", Kind: KindDuration, Description: "Wait after the first server error"},
	{Name: "retry.multiplier", Kind: KindFloat, Description: "Backoff growth factor"},
	{Name: "rate_limit.requests_per_second", Kind: KindFloat, Description: "Proactive request rate; unlimited when 0"},
	{Name: "rate_limit.burst", Kind: KindInt, Description: "Rate limiter burst size"},
	{Name: "state.backend", Kind: KindString, Description: "Bookmark store: file, sqlite, postgres, redis or memory"},
	{Name: "state.path", Kind: KindString, Description: "State file or database path"},
	{Name: "state.dsn", Kind: KindString, Description: "Postgres connection string", Secret: true},
	{Name: "state.redis_addr", Kind: KindString, Description: "Redis URL (redis://host:port/db)"},
	{Name: "state.key", Kind: KindString, Description: "Redis state key suffix"},
}

// LookupKey returns the key named name.
func LookupKey(name string) (Key, bool) {
	for _, k := range Keys {
		if k.Name == name {
			return k, true
		}
	}
	return Key{}, false
}

// EnvName returns the override variable for a key, e.g.
// retry.max_attempts -> CMTAP_RETRY_MAX_ATTEMPTS.
func EnvName(key string) string {
	return EnvPrefix + "_" + strcase.ToScreamingSnake(key)
}

// Parse converts a raw string into the key's value type.
func (k Key) Parse(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch k.Kind {
	case KindInt:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: expected integer, got %q", k.Name, raw)
		}
		return n, nil
	case KindFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: expected number, got %q", k.Name, raw)
		}
		return f, nil
	case KindDuration:
		if _, err := parseDuration(raw); err != nil {
			return nil, fmt.Errorf("%s: %w", k.Name, err)
		}
		return raw, nil
	default:
		return raw, nil
	}
}

// parseDuration accepts Go durations ("30s") or bare seconds ("30", "2.5").
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

// nest places value at a dotted path inside m.
func nest(m map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	for _, p := range parts[:len(parts)-1] {
		child, ok := m[p].(map[string]any)
		if !ok {
			child = make(map[string]any)
			m[p] = child
		}
		m = child
	}
	m[parts[len(parts)-1]] = value
}
