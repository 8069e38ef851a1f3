package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/guildsage/guildsage/internal/app"
)

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all indexed content",
	Long: `Clear irreversibly deletes every document in the collection and
recreates it empty. This is also the only way to switch embedding models,
since stored vectors keep the dimensionality they were written with.`,
	RunE: runClear,
}

func init() {
	clearCmd.Flags().BoolVar(&clearYes, "yes", false, "skip the confirmation prompt")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, _ []string) error {
	logger := newLogger()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	a, cleanup, err := app.Setup(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	stats := a.Store.Stats()
	if !clearYes {
		fmt.Printf("This will delete all %d documents in %q. Re-run with --yes to confirm.\n",
			stats.TotalDocuments, stats.CollectionName)
		return nil
	}

	if err := a.Store.Clear(cmd.Context()); err != nil {
		return err
	}

	fmt.Printf("Cleared collection %q.\n", stats.CollectionName)
	return nil
}
