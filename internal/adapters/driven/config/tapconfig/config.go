package tapconfig

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/config"

	"github.com/custodia-labs/cmtap/internal/connectors/campaignmonitor"
	"github.com/custodia-labs/cmtap/internal/core/domain"
	"github.com/custodia-labs/cmtap/internal/core/ports/driven"
)

// Bookmark store backends.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Config is the resolved tap configuration.
type Config struct {
	APIKey         string            `yaml:"api_key"`
	ClientID       string            `yaml:"client_id"`
	BaseURL        string            `yaml:"base_url"`
	StartDate      string            `yaml:"start_date"`
	PageSize       int               `yaml:"page_size"`
	OrderDirection string            `yaml:"order_direction"`
	RequestTimeout string            `yaml:"request_timeout"`
	Retry          RetrySettings     `yaml:"retry"`
	RateLimit      RateLimitSettings `yaml:"rate_limit"`
	State          StateSettings     `yaml:"state"`
}

// RetrySettings configures the server-error backoff.
type RetrySettings struct {
	MaxAttempts    int     `yaml:"max_attempts"`
	InitialBackoff string  `yaml:"initial_backoff"`
	Multiplier     float64 `yaml:"multiplier"`
}

// RateLimitSettings configures the proactive throttle.
type RateLimitSettings struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// StateSettings selects and locates the bookmark store.
type StateSettings struct {
	Backend   string `yaml:"backend"`
	Path      string `yaml:"path"`
	DSN       string `yaml:"dsn"`
	RedisAddr string `yaml:"redis_addr"`
	Key       string `yaml:"key"`
}

// defaults is the lowest-priority layer.
func defaults() map[string]any {
	return map[string]any{
		"base_url":        campaignmonitor.DefaultBaseURL,
		"order_direction": string(domain.OrderDescending),
		"request_timeout": campaignmonitor.DefaultTimeout.String(),
		"retry": map[string]any{
			"max_attempts":    campaignmonitor.DefaultMaxAttempts,
			"initial_backoff": campaignmonitor.DefaultInitialBackoff.String(),
			"multiplier":      campaignmonitor.DefaultBackoffMultiplier,
		},
		"rate_limit": map[string]any{
			"requests_per_second": campaignmonitor.DefaultRateLimit.RequestsPerSecond,
			"burst":               campaignmonitor.DefaultRateLimit.Burst,
		},
		"state": map[string]any{
			"backend": BackendFile,
		},
	}
}

// Loader resolves configuration from, in increasing priority: built-in
// defaults, persisted settings, the config file, CMTAP_* environment variables.
// ${VAR} references in the config file are expanded from the environment.
type Loader struct {
	// Settings holds persisted defaults. Optional.
	Settings driven.ConfigStore

	// LookupEnv reads the environment. Defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load reads path (JSON or YAML; empty for none) and returns the merged config.
func (l Loader) Load(path string) (*Config, error) {
	lookup := l.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	options := []config.YAMLOption{
		config.Permissive(),
		config.Static(defaults()),
	}

	if l.Settings != nil {
		persisted, err := settingsLayer(l.Settings)
		if err != nil {
			return nil, err
		}
		if len(persisted) > 0 {
			options = append(options, config.Static(persisted))
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if len(bytes.TrimSpace(data)) > 0 {
			options = append(options, config.Source(bytes.NewReader(data)))
		}
	}

	overrides, err := envLayer(lookup)
	if err != nil {
		return nil, err
	}
	if len(overrides) > 0 {
		options = append(options, config.Static(overrides))
	}

	options = append(options, config.Expand(lookup))
	provider, err := config.NewYAML(options...)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := provider.Get(config.Root).Populate(&cfg); err != nil {
		return nil, fmt.Errorf("failed to populate config: %w", err)
	}
	return &cfg, nil
}

// settingsLayer converts persisted dotted keys into a nested map, skipping
// keys the tap does not recognise.
func settingsLayer(store driven.ConfigStore) (map[string]any, error) {
	out := make(map[string]any)
	for _, k := range Keys {
		v, ok := store.Get(k.Name)
		if !ok {
			continue
		}
		if s, isString := v.(string); isString {
			parsed, err := k.Parse(s)
			if err != nil {
				return nil, fmt.Errorf("setting %w", err)
			}
			v = parsed
		}
		nest(out, k.Name, v)
	}
	return out, nil
}

// envLayer collects CMTAP_* overrides.
func envLayer(lookup func(string) (string, bool)) (map[string]any, error) {
	out := make(map[string]any)
	for _, k := range Keys {
		raw, ok := lookup(EnvName(k.Name))
		if !ok || raw == "" {
			continue
		}
		v, err := k.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvName(k.Name), err)
		}
		nest(out, k.Name, v)
	}
	return out, nil
}

// LoadDotEnv loads .env files into the process environment without
// overwriting variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Connector builds and validates the API client configuration.
func (c *Config) Connector() (campaignmonitor.Config, error) {
	order, err := domain.ParseOrderDirection(c.OrderDirection)
	if err != nil {
		return campaignmonitor.Config{}, err
	}
	timeout, err := parseDuration(c.RequestTimeout)
	if err != nil {
		return campaignmonitor.Config{}, fmt.Errorf("request_timeout: %w", err)
	}
	backoff, err := parseDuration(c.Retry.InitialBackoff)
	if err != nil {
		return campaignmonitor.Config{}, fmt.Errorf("retry.initial_backoff: %w", err)
	}

	cc := campaignmonitor.Config{
		APIKey:   c.APIKey,
		ClientID: c.ClientID,
		BaseURL:  c.BaseURL,
		PageSize: c.PageSize,
		Order:    order,
		Timeout:  timeout,
		RateLimit: campaignmonitor.RateLimitConfig{
			RequestsPerSecond: c.RateLimit.RequestsPerSecond,
			Burst:             c.RateLimit.Burst,
		},
		Retry: campaignmonitor.RetryPolicy{
			MaxAttempts:    c.Retry.MaxAttempts,
			InitialBackoff: backoff,
			Multiplier:     c.Retry.Multiplier,
		},
	}
	if err := cc.Validate(); err != nil {
		return campaignmonitor.Config{}, err
	}
	return cc, nil
}

// StartWatermark parses start_date. An empty start date yields the zero
// watermark.
func (c *Config) StartWatermark() (domain.Watermark, error) {
	if c.StartDate == "" {
		return "", nil
	}
	t, err := domain.Watermark(c.StartDate).Time()
	if err != nil {
		if d, dateErr := time.Parse(time.DateOnly, c.StartDate); dateErr == nil {
			return domain.NewWatermark(d), nil
		}
		return "", fmt.Errorf("start_date: %w", err)
	}
	return domain.NewWatermark(t), nil
}

// Backend returns the configured bookmark store backend.
func (c *Config) Backend() (string, error) {
	switch c.State.Backend {
	case "":
		return BackendFile, nil
	case BackendFile, BackendSQLite, BackendPostgres, BackendRedis, BackendMemory:
		return c.State.Backend, nil
	default:
		return "", fmt.Errorf("%w: state.backend %q", domain.ErrInvalidInput, c.State.Backend)
	}
}
