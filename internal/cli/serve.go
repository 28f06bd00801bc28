package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/careerbot/internal/api"
	"github.com/ashureev/careerbot/internal/config"
	"github.com/ashureev/careerbot/internal/health"
	"github.com/ashureev/careerbot/internal/identity"
	"github.com/ashureev/careerbot/internal/store"
	"github.com/ashureev/careerbot/internal/transport/telegram"
	"github.com/ashureev/careerbot/internal/webchat"
	"github.com/ashureev/careerbot/web"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot with every configured transport",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return err
	}
	logger := newLogger(cfg, os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting careerbot",
		"runtime_mode", cfg.Telegram.RuntimeMode,
		"http", cfg.HTTP.Enabled,
		"port", cfg.HTTP.Port,
		"transcript", cfg.TranscriptEnabled(),
		"dev", cfg.IsDevelopment(),
	)

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize", "error", err)
		return err
	}
	defer a.Close()

	a.sessions.StartJanitor(ctx, cfg.Session.IdleTTL, 0, logger)
	if a.repo != nil {
		store.StartRetention(ctx, a.repo, cfg.Transcript.Retention, time.Hour, logger)
	}

	var bot *telegram.Bot
	if cfg.Telegram.RuntimeMode != config.RuntimeOff {
		bot, err = telegram.New(cfg.Telegram.Token, a.dispatcher, logger)
		if err != nil {
			logger.Error("Failed to initialize Telegram bot", "error", err)
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	var hs *health.Server
	if cfg.GRPCHealthAddr != "" {
		hs = health.New(logger)
		g.Go(func() error {
			return hs.ListenAndServe(gctx, cfg.GRPCHealthAddr)
		})
	}

	if cfg.HTTP.Enabled {
		conns := webchat.NewConnManager()
		srv := &http.Server{
			Addr:              ":" + cfg.HTTP.Port,
			Handler:           newRouter(gctx, cfg, a, bot, conns, logger),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			IdleTimeout:       120 * time.Second,
		}
		g.Go(func() error {
			logger.Info("HTTP server listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			conns.CloseAll()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP server forced to shutdown", "error", err)
			}
			return nil
		})
	}

	if bot != nil {
		switch cfg.Telegram.RuntimeMode {
		case config.RuntimePolling:
			g.Go(func() error {
				return bot.RunPolling(gctx)
			})
		case config.RuntimeWebhook:
			if err := bot.SetWebhook(cfg.Telegram.WebhookURL); err != nil {
				logger.Error("Failed to register Telegram webhook", "error", err)
				stop()
				_ = g.Wait()
				return err
			}
			g.Go(func() error {
				<-gctx.Done()
				if err := bot.DeleteWebhook(); err != nil {
					logger.Warn("Failed to delete Telegram webhook on shutdown", "error", err)
				}
				bot.Wait()
				return nil
			})
		}
	}

	if hs != nil {
		hs.SetServing(true)
	}
	logger.Info("careerbot running, press Ctrl+C to stop")

	err = g.Wait()
	if err != nil {
		logger.Error("Shutting down after failure", "error", err)
	} else {
		logger.Info("Shutting down gracefully...")
	}
	logger.Info("careerbot stopped", "sessions", a.sessions.Len())
	return err
}

func newRouter(ctx context.Context, cfg *config.Config, a *app, bot *telegram.Bot, conns *webchat.ConnManager, logger *slog.Logger) http.Handler {
	r := api.NewRouter(cfg.HTTP.AllowedOrigins, logger)

	var (
		pinger  api.Pinger
		results api.ResultLister
	)
	if a.repo != nil {
		pinger = a.repo
		results = a.repo
	}
	api.NewHealthHandler(pinger, a.sessions.Len).RegisterHealth(r)

	if bot != nil && cfg.Telegram.RuntimeMode == config.RuntimeWebhook {
		r.Method(http.MethodPost, cfg.Telegram.WebhookPath, bot.WebhookHandler(ctx))
	}

	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(cfg.IsDevelopment()))
		api.NewHandler(a.dispatcher, results, logger).RegisterRoutes(r)
		r.Get("/ws/chat", webchat.NewHandler(a.dispatcher, conns, cfg.HTTP.AllowedOrigins, cfg.IsDevelopment(), logger).ServeHTTP)
	})

	r.Handle("/*", web.Handler())
	return r
}
