package cli

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ashureev/careerbot/internal/config"
	"github.com/ashureev/careerbot/internal/console"
	"github.com/spf13/cobra"
)

var plainOutput bool

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Talk to the bot in this terminal",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadConsole()
		if err != nil {
			return err
		}
		// The REPL owns stdout; keep logs on stderr and quiet.
		logger := newLogger(cfg, cmd.ErrOrStderr())
		if level, _ := config.ParseLogLevel(cfg.LogLevel); level < slog.LevelWarn {
			logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
		}
		slog.SetDefault(logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := buildApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		repl, err := console.New(a.dispatcher, cmd.InOrStdin(), cmd.OutOrStdout(), plainOutput, logger)
		if err != nil {
			return err
		}
		return repl.Run(ctx)
	},
}

func init() {
	consoleCmd.Flags().BoolVar(&plainOutput, "plain", false, "Print replies without styling or markdown rendering")
}
