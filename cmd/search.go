package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/guildsage/guildsage/internal/app"
	"github.com/guildsage/guildsage/internal/chat"
)

var (
	searchChannelID string
	searchTopK      int
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the indexed content",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchChannelID, "channel", "", "scope the search to one channel")
	searchCmd.Flags().IntVarP(&searchTopK, "num-results", "n", 0, "number of results (default from config)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := newLogger()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if searchTopK > 0 {
		cfg.Retrieval.TopK = searchTopK
	}

	a, cleanup, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	query := strings.Join(args, " ")

	rc, err := a.Builder.BuildContext(ctx, query, searchChannelID)
	if err != nil {
		return err
	}

	fmt.Println(chat.Summarize(rc))
	for i, result := range rc.RelevantDocs {
		fmt.Printf("\n%d. [score %.3f] %s\n", i+1, result.Score, result.Document.Content)
		if author := result.Document.Metadata["author_name"]; author != "" {
			fmt.Printf("   by %s in #%s\n", author, result.Document.Metadata["channel_name"])
		}
	}

	return nil
}
