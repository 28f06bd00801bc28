// Package cli implements the careerbot commands.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var envFile string

// RootCmd is the top-level command. Without a subcommand it serves.
var RootCmd = &cobra.Command{
	Use:           "careerbot",
	Short:         "Career assistant bot",
	Long:          "A career assistant that chats, runs a RIASEC personality inventory and a career motivation inventory over Telegram, HTTP and WebSocket.",
	SilenceUsage:  true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return loadEnv(envFile)
	},
	RunE: runServe,
}

func init() {
	RootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment variables from this file (default: .env when present)")
	RootCmd.AddCommand(serveCmd, consoleCmd)
}

func loadEnv(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}
	return nil
}
