package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/cmtap/internal/adapters/driven/config/file"
	"github.com/custodia-labs/cmtap/internal/adapters/driven/config/tapconfig"
	"github.com/custodia-labs/cmtap/internal/adapters/driving/cli"
	"github.com/custodia-labs/cmtap/internal/catalog"
	"github.com/custodia-labs/cmtap/internal/logger"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// Cancel in-flight requests and backoff waits on shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := tapconfig.LoadDotEnv(); err != nil {
		logger.Warn("No .env file loaded: %v", err)
	}

	settings, err := file.NewConfigStore("")
	if err != nil {
		logger.Error("Failed to open settings: %v", err)
		return 1
	}

	cli.Configure(cli.Services{
		Settings: settings,
		Catalog:  catalog.Default(),
	})

	if err := cli.Execute(ctx, version); err != nil {
		logger.Error("%v", err)
		return 1
	}
	return 0
}
