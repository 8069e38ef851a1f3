package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/guildsage/guildsage/internal/app"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show collection statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
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
	fmt.Printf("Collection: %s\n", stats.CollectionName)
	fmt.Printf("Documents:  %d\n", stats.TotalDocuments)
	return nil
}
