package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Print the Singer catalog",
	Long: `Prints a Singer catalog describing every stream: its JSON schema, key
properties and replication method. Mark streams "selected": true and pass
the file back with --catalog to choose what sync extracts.`,
	Args: cobra.NoArgs,
	RunE: runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, _ []string) error {
	doc, err := deps.Catalog.Discover()
	if err != nil {
		return fmt.Errorf("discover: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
