// Package cmd implements the guildsage CLI.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/guildsage/guildsage/internal/config"
	"github.com/guildsage/guildsage/internal/log"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "guildsage",
	Short: "guildsage - a Discord knowledge bot",
	Long: `guildsage indexes a Discord server's message history into a local
vector collection and answers questions by retrieving relevant messages
as context for an LLM.

Run "guildsage run" to start the bot, or use the index/search/stats/clear
subcommands to operate on the collection directly.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// newLogger creates the process logger honoring --verbose.
func newLogger() log.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level})
}

// loadConfig loads and validates the configuration.
func loadConfig() (*config.Config, error) {
	return config.Load()
}
