package tapconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/cmtap/internal/connectors/campaignmonitor"
	"github.com/custodia-labs/cmtap/internal/core/domain"
)

// mapSettings is an in-memory driven.ConfigStore.
type mapSettings map[string]any

func (m mapSettings) Get(key string) (any, bool)         { v, ok := m[key]; return v, ok }
func (m mapSettings) GetString(key string) string        { s, _ := m[key].(string); return s }
func (m mapSettings) GetInt(key string) int              { n, _ := m[key].(int); return n }
func (m mapSettings) GetBool(key string) bool            { b, _ := m[key].(bool); return b }
func (m mapSettings) GetStringSlice(key string) []string { return nil }
func (m mapSettings) Set(key string, value any) error    { m[key] = value; return nil }
func (m mapSettings) Delete(key string) error            { delete(m, key); return nil }
func (m mapSettings) Keys() []string                     { return nil }
func (m mapSettings) Save() error                        { return nil }
func (m mapSettings) Load() error                        { return nil }
func (m mapSettings) Path() string                       { return "" }

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "CMTAP_API_KEY", EnvName("api_key"))
	assert.Equal(t, "CMTAP_RETRY_MAX_ATTEMPTS", EnvName("retry.max_attempts"))
	assert.Equal(t, "CMTAP_RATE_LIMIT_REQUESTS_PER_SECOND", EnvName("rate_limit.requests_per_second"))
	assert.Equal(t, "CMTAP_STATE_REDIS_ADDR", EnvName("state.redis_addr"))
}

func TestLookupKey(t *testing.T) {
	k, ok := LookupKey("retry.multiplier")
	require.True(t, ok)
	assert.Equal(t, KindFloat, k.Kind)

	_, ok = LookupKey("search.mode")
	assert.False(t, ok)
}

func TestKey_Parse(t *testing.T) {
	n, err := Key{Name: "page_size", Kind: KindInt}.Parse(" 500 ")
	require.NoError(t, err)
	assert.Equal(t, 500, n)

	_, err = Key{Name: "page_size", Kind: KindInt}.Parse("lots")
	assert.Error(t, err)

	f, err := Key{Name: "retry.multiplier", Kind: KindFloat}.Parse("2.5")
	require.NoError(t, err)
	assert.Equal(t, 2.5, f)

	d, err := Key{Name: "request_timeout", Kind: KindDuration}.Parse("45s")
	require.NoError(t, err)
	assert.Equal(t, "45s", d)

	_, err = Key{Name: "request_timeout", Kind: KindDuration}.Parse("soon")
	assert.Error(t, err)

	s, err := Key{Name: "client_id", Kind: KindString}.Parse("00123")
	require.NoError(t, err)
	assert.Equal(t, "00123", s)
}

func TestParseDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"":    0,
		"30":  30 * time.Second,
		"2.5": 2500 * time.Millisecond,
		"1m":  time.Minute,
	}
	for in, want := range cases {
		got, err := parseDuration(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Loader{LookupEnv: env(nil)}.Load("")
	require.NoError(t, err)

	assert.Equal(t, campaignmonitor.DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, "desc", cfg.OrderDirection)
	assert.Equal(t, campaignmonitor.DefaultMaxAttempts, cfg.Retry.MaxAttempts)
	assert.Equal(t, "10s", cfg.Retry.InitialBackoff)
	assert.Equal(t, 1.5, cfg.Retry.Multiplier)
	assert.Equal(t, BackendFile, cfg.State.Backend)
}

func TestLoad_JSONFile(t *testing.T) {
	path := writeFile(t, "config.json", `{
  "api_key": "key-1",
  "client_id": "client-1",
  "start_date": "2024-01-01T00:00:00Z",
  "page_size": 250,
  "retry": {"max_attempts": 3},
  "user_agent": "ignored"
}`)

	cfg, err := Loader{LookupEnv: env(nil)}.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "key-1", cfg.APIKey)
	assert.Equal(t, "client-1", cfg.ClientID)
	assert.Equal(t, 250, cfg.PageSize)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 1.5, cfg.Retry.Multiplier, "unset nested keys keep defaults")
}

func TestLoad_YAMLFileWithExpansion(t *testing.T) {
	path := writeFile(t, "config.yaml", `
api_key: ${CM_KEY}
client_id: client-1
state:
  backend: sqlite
  path: /tmp/state.db
`)

	cfg, err := Loader{LookupEnv: env(map[string]string{"CM_KEY": "from-env"})}.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.APIKey)
	assert.Equal(t, BackendSQLite, cfg.State.Backend)
	assert.Equal(t, "/tmp/state.db", cfg.State.Path)
}

func TestLoad_Precedence(t *testing.T) {
	path := writeFile(t, "config.yaml", "client_id: from-file\npage_size: 100\n")
	settings := mapSettings{
		"client_id":      "from-settings",
		"api_key":        "settings-key",
		"page_size":      int64(50),
		"unrelated.flag": true,
	}
	vars := map[string]string{"CMTAP_PAGE_SIZE": "999"}

	cfg, err := Loader{Settings: settings, LookupEnv: env(vars)}.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "settings-key", cfg.APIKey)
	assert.Equal(t, "from-file", cfg.ClientID)
	assert.Equal(t, 999, cfg.PageSize)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Loader{LookupEnv: env(nil)}.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Loader{LookupEnv: env(map[string]string{"CMTAP_PAGE_SIZE": "many"})}.Load("")
	assert.Error(t, err)
}

func TestConfig_Connector(t *testing.T) {
	cfg := &Config{
		APIKey:         "key",
		ClientID:       "client",
		OrderDirection: "asc",
		RequestTimeout: "5",
		Retry:          RetrySettings{MaxAttempts: 2, InitialBackoff: "1s", Multiplier: 2},
	}

	cc, err := cfg.Connector()
	require.NoError(t, err)
	assert.Equal(t, domain.OrderAscending, cc.Order)
	assert.Equal(t, 5*time.Second, cc.Timeout)
	assert.Equal(t, campaignmonitor.DefaultBaseURL, cc.BaseURL)
	assert.Equal(t, campaignmonitor.RetryPolicy{MaxAttempts: 2, InitialBackoff: time.Second, Multiplier: 2}, cc.Retry)

	cfg.APIKey = ""
	_, err = cfg.Connector()
	assert.ErrorIs(t, err, campaignmonitor.ErrConfigMissingKey)

	cfg.APIKey = "key"
	cfg.OrderDirection = "sideways"
	_, err = cfg.Connector()
	assert.Error(t, err)
}

func TestConfig_StartWatermark(t *testing.T) {
	cases := map[string]domain.Watermark{
		"":                          "",
		"2024-01-01T00:00:00Z":      "2024-01-01T00:00:00+00:00",
		"2024-01-01T09:30:00+02:00": "2024-01-01T09:30:00+02:00",
		"2024-01-01":                "2024-01-01T00:00:00+00:00",
	}
	for in, want := range cases {
		got, err := (&Config{StartDate: in}).StartWatermark()
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := (&Config{StartDate: "last tuesday"}).StartWatermark()
	assert.ErrorIs(t, err, domain.ErrInvalidWatermark)
}

func TestConfig_Backend(t *testing.T) {
	b, err := (&Config{}).Backend()
	require.NoError(t, err)
	assert.Equal(t, BackendFile, b)

	b, err = (&Config{State: StateSettings{Backend: "redis"}}).Backend()
	require.NoError(t, err)
	assert.Equal(t, BackendRedis, b)

	_, err = (&Config{State: StateSettings{Backend: "s3"}}).Backend()
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLoadDotEnv(t *testing.T) {
	path := writeFile(t, ".env", "CMTAP_TEST_DOTENV=loaded\n")
	t.Setenv("CMTAP_TEST_DOTENV", "")
	os.Unsetenv("CMTAP_TEST_DOTENV")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("CMTAP_TEST_DOTENV"))

	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}
