package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/guildsage/guildsage/internal/app"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Discord bot",
	RunE:  runBot,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runBot(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	logger.Info("starting guildsage")
	if err := d.Bot.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}

	logger.Info("shutting down")
	return nil
}
