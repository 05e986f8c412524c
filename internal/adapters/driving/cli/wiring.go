package cli

import (
	"context"
	"fmt"

	"github.com/custodia-labs/cmtap/internal/adapters/driven/config/tapconfig"
	"github.com/custodia-labs/cmtap/internal/adapters/driven/storage/file"
	"github.com/custodia-labs/cmtap/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/cmtap/internal/adapters/driven/storage/postgres"
	redisstore "github.com/custodia-labs/cmtap/internal/adapters/driven/storage/redis"
	"github.com/custodia-labs/cmtap/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/cmtap/internal/catalog"
	"github.com/custodia-labs/cmtap/internal/connectors/campaignmonitor"
	"github.com/custodia-labs/cmtap/internal/core/domain"
	"github.com/custodia-labs/cmtap/internal/core/ports/driven"
	"github.com/custodia-labs/cmtap/internal/logger"
)

// Services holds the adapters commands are built from. Zero fields fall back
// to the production implementations.
type Services struct {
	// Settings is the persisted settings store.
	Settings driven.ConfigStore

	// Catalog is the stream table.
	Catalog *catalog.Catalog

	// OpenStore opens the configured bookmark store and, when the backend
	// supports one, a run lock.
	OpenStore func(ctx context.Context, cfg *tapconfig.Config) (driven.BookmarkStore, driven.RunLock, error)

	// NewFetcher builds the page fetcher for a validated connector config.
	NewFetcher func(cfg campaignmonitor.Config) (driven.PageFetcher, error)
}

var deps = Services{}

// Configure installs the services used by commands.
func Configure(s Services) {
	if s.Catalog == nil {
		s.Catalog = catalog.Default()
	}
	if s.OpenStore == nil {
		s.OpenStore = OpenStore
	}
	if s.NewFetcher == nil {
		s.NewFetcher = NewFetcher
	}
	deps = s
}

func init() {
	Configure(Services{})
}

// NewFetcher returns the HTTP client wrapped in the server-error retry policy.
func NewFetcher(cfg campaignmonitor.Config) (driven.PageFetcher, error) {
	client := campaignmonitor.NewClient(cfg)
	fetcher, err := campaignmonitor.NewRetryingFetcher(client, cfg.Retry, campaignmonitor.Sleep)
	if err != nil {
		return nil, err
	}
	return fetcher, nil
}

// OpenStore opens the bookmark store selected by state.backend.
func OpenStore(ctx context.Context, cfg *tapconfig.Config) (driven.BookmarkStore, driven.RunLock, error) {
	backend, err := cfg.Backend()
	if err != nil {
		return nil, nil, err
	}

	switch backend {
	case tapconfig.BackendMemory:
		logger.Warn("state.backend is memory: bookmarks will not survive this run")
		return memory.NewBookmarkStore(nil), nil, nil

	case tapconfig.BackendSQLite:
		store, err := sqlite.NewStore(cfg.State.Path)
		if err != nil {
			return nil, nil, err
		}
		logger.Debug("Using sqlite state at %s", store.Path())
		return store, nil, nil

	case tapconfig.BackendPostgres:
		if cfg.State.DSN == "" {
			return nil, nil, fmt.Errorf("%w: state.dsn is required for the postgres backend", domain.ErrInvalidInput)
		}
		store, err := postgres.Open(ctx, cfg.State.DSN)
		if err != nil {
			return nil, nil, err
		}
		logger.Debug("Using postgres state, run %s", store.RunID())
		return store, nil, nil

	case tapconfig.BackendRedis:
		if cfg.State.RedisAddr == "" {
			return nil, nil, fmt.Errorf("%w: state.redis_addr is required for the redis backend", domain.ErrInvalidInput)
		}
		client, err := redisstore.Connect(ctx, cfg.State.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		store := redisstore.NewBookmarkStore(client, cfg.State.Key)
		logger.Debug("Using redis state at key %s", store.Key())
		return store, redisstore.NewLock(client, redisstore.DefaultLockTTL), nil

	default:
		store, err := file.NewBookmarkStore(cfg.State.Path)
		if err != nil {
			return nil, nil, err
		}
		logger.Debug("Using state file %s", store.Path())
		return store, nil, nil
	}
}
