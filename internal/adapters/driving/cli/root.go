package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/cmtap/internal/adapters/driven/config/tapconfig"
	"github.com/custodia-labs/cmtap/internal/catalog"
	"github.com/custodia-labs/cmtap/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Persistent flags
var (
	configPath  string
	statePath   string
	catalogPath string
	streamIDs   []string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "cmtap",
	Short: "Campaign Monitor tap for the Singer protocol",
	Long: `cmtap extracts campaigns, suppression list, recipients and activity
(opens, clicks, bounces, unsubscribes) from the Campaign Monitor API and
writes them to stdout as Singer SCHEMA, RECORD and STATE messages.

Activity streams are extracted incrementally per campaign; progress is
checkpointed after every campaign so an interrupted run resumes where it
stopped.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "tap config file (JSON or YAML)")
	flags.StringVar(&statePath, "state", "", "bookmark state path (overrides state.path)")
	flags.StringVar(&catalogPath, "catalog", "", "Singer catalog selecting streams")
	flags.StringSliceVarP(&streamIDs, "streams", "s", nil, "comma-separated stream ids to extract")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute(ctx context.Context, v string) error {
	if v != "" {
		version = v
	}
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig resolves the tap config and applies flag overrides.
func loadConfig() (*tapconfig.Config, error) {
	cfg, err := tapconfig.Loader{Settings: deps.Settings}.Load(configPath)
	if err != nil {
		return nil, err
	}
	if statePath != "" {
		cfg.State.Path = statePath
	}
	return cfg, nil
}

// selectedStreams returns the stream ids chosen by --catalog or --streams.
// An empty result means every stream.
func selectedStreams() ([]string, error) {
	if catalogPath != "" && len(streamIDs) > 0 {
		return nil, fmt.Errorf("--catalog and --streams are mutually exclusive")
	}

	if catalogPath != "" {
		data, err := os.ReadFile(catalogPath)
		if err != nil {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
		ids, err := catalog.SelectedStreams(data)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, fmt.Errorf("catalog %s selects no streams", catalogPath)
		}
		return ids, nil
	}

	var ids []string
	for _, id := range streamIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
