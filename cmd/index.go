package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/guildsage/guildsage/internal/app"
)

var (
	indexGuildID   string
	indexChannelID string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index a guild's message history",
	Long: `Index collects message history, processes it into cleaned chunks and
stores them with embeddings in the vector collection. Without --channel
every text channel in the guild is indexed.`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&indexGuildID, "guild", "", "guild ID to index (required)")
	indexCmd.Flags().StringVar(&indexChannelID, "channel", "", "index only this channel")
	_ = indexCmd.MarkFlagRequired("guild")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := newLogger()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	a, cleanup, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	d, err := a.ConnectDiscord()
	if err != nil {
		return err
	}

	// History fetches go over REST; the gateway connection still has to be
	// open for the session to authenticate.
	if err := d.Session.Open(); err != nil {
		return fmt.Errorf("opening Discord session: %w", err)
	}
	defer func() { _ = d.Session.Close() }()

	ok, msg := d.Coordinator.Start(ctx, indexGuildID, indexChannelID)
	if !ok {
		return fmt.Errorf("%s", msg)
	}

	stats := a.Store.Stats()
	fmt.Println(msg)
	fmt.Printf("Total documents indexed: %d\n", stats.TotalDocuments)
	return nil
}
