package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/cmtap/internal/adapters/driven/singer"
	"github.com/custodia-labs/cmtap/internal/catalog"
	"github.com/custodia-labs/cmtap/internal/core/ports/driving"
	"github.com/custodia-labs/cmtap/internal/core/services"
	"github.com/custodia-labs/cmtap/internal/logger"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Extract streams as Singer messages",
	Long: `Extracts the selected streams and writes Singer messages to stdout.
Streams are selected with --catalog or --streams; otherwise every stream is
extracted. Bookmarks are loaded from and checkpointed to the configured
state backend.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) (err error) {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	connector, err := cfg.Connector()
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	startDate, err := cfg.StartWatermark()
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	ids, err := selectedStreams()
	if err != nil {
		return err
	}

	store, lock, err := deps.OpenStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close state: %w", closeErr)
		}
	}()

	out := cmd.OutOrStdout()
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		logger.Warn("stdout is a terminal; pipe cmtap into a Singer target")
	}

	fetcher, err := deps.NewFetcher(connector)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	sink := singer.NewWriter(out, catalog.Schema)
	var orchestrator driving.SyncOrchestrator = services.NewSyncOrchestrator(
		deps.Catalog,
		fetcher,
		sink,
		store,
		services.SyncOptions{
			StartDate: startDate,
			Order:     connector.Order,
			Lock:      lock,
		},
	)

	if len(ids) == 0 {
		err = orchestrator.SyncAll(ctx)
	} else {
		err = orchestrator.Sync(ctx, ids)
	}
	flushErr := sink.Flush()
	logSummary(ctx, orchestrator, err)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	return flushErr
}

// logSummary reports the run's totals, and where it stopped on failure.
func logSummary(ctx context.Context, orchestrator driving.SyncOrchestrator, runErr error) {
	status, err := orchestrator.Status(ctx)
	if err != nil {
		return
	}
	if runErr != nil {
		logger.Warn("Sync stopped in %s (parent %s): %d records, %d checkpoints",
			status.Stream, status.ParentID, status.RecordsEmitted, status.Checkpoints)
		return
	}
	logger.Info("Sync complete: %d records, %d checkpoints", status.RecordsEmitted, status.Checkpoints)
}
