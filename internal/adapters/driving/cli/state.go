package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/cmtap/internal/core/domain"
	"github.com/custodia-labs/cmtap/internal/core/ports/driven"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect or reset bookmarks",
}

var stateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored bookmarks as a Singer state document",
	Args:  cobra.NoArgs,
	RunE:  runStateShow,
}

var stateResetCmd = &cobra.Command{
	Use:   "reset [stream...]",
	Short: "Delete bookmarks for the given streams, or all of them",
	Long: `Deletes bookmarks so the next sync re-extracts from start_date.
With stream arguments only those streams are reset; without arguments every
bookmark is removed.`,
	RunE: runStateReset,
}

var stateHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List the last checkpoint of recent runs (sqlite and postgres backends)",
	Args:  cobra.NoArgs,
	RunE:  runStateHistory,
}

var historyLimit int

func init() {
	stateHistoryCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of checkpoints to show (0 for all)")

	stateCmd.AddCommand(stateShowCmd)
	stateCmd.AddCommand(stateResetCmd)
	stateCmd.AddCommand(stateHistoryCmd)
	rootCmd.AddCommand(stateCmd)
}

// withStore opens the configured store for the duration of fn.
func withStore(cmd *cobra.Command, fn func(driven.BookmarkStore) error) (err error) {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, _, err := deps.OpenStore(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close state: %w", closeErr)
		}
	}()
	return fn(store)
}

func runStateShow(cmd *cobra.Command, _ []string) error {
	return withStore(cmd, func(store driven.BookmarkStore) error {
		bookmarks, err := store.Load(cmd.Context())
		if err != nil {
			return fmt.Errorf("load state: %w", err)
		}

		data, err := json.MarshalIndent(domain.State{Bookmarks: bookmarks}, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	})
}

func runStateReset(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(store driven.BookmarkStore) error {
		ctx := cmd.Context()

		bookmarks := domain.NewBookmarks()
		if len(args) > 0 {
			current, err := store.Load(ctx)
			if err != nil {
				return fmt.Errorf("load state: %w", err)
			}
			for _, id := range args {
				if _, ok := deps.Catalog.Get(id); !ok {
					return fmt.Errorf("%w: %s", domain.ErrUnknownStream, id)
				}
				current.Delete(id)
			}
			bookmarks = current
		}

		if err := store.Save(ctx, bookmarks); err != nil {
			return fmt.Errorf("save state: %w", err)
		}

		if len(args) == 0 {
			cmd.Println("All bookmarks reset.")
		} else {
			cmd.Printf("Bookmarks reset for: %v\n", args)
		}
		return nil
	})
}

func runStateHistory(cmd *cobra.Command, _ []string) error {
	return withStore(cmd, func(store driven.BookmarkStore) error {
		history, ok := store.(driven.CheckpointHistory)
		if !ok {
			return fmt.Errorf("%w: this state backend keeps no checkpoint history", domain.ErrInvalidInput)
		}

		checkpoints, err := history.History(cmd.Context(), historyLimit)
		if err != nil {
			return fmt.Errorf("load history: %w", err)
		}
		if len(checkpoints) == 0 {
			cmd.Println("No checkpoints recorded.")
			return nil
		}

		for _, cp := range checkpoints {
			pairs := 0
			for _, parents := range cp.Bookmarks {
				pairs += len(parents)
			}
			cmd.Printf("%s  run %s  %d streams, %d bookmarks\n",
				cp.SavedAt.UTC().Format(time.RFC3339), cp.RunID, len(cp.Bookmarks), pairs)
		}
		return nil
	})
}
