package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/ashureev/careerbot/internal/agent"
	"github.com/ashureev/careerbot/internal/chat"
	"github.com/ashureev/careerbot/internal/config"
	"github.com/ashureev/careerbot/internal/dispatch"
	"github.com/ashureev/careerbot/internal/quiz"
	"github.com/ashureev/careerbot/internal/session"
	"github.com/ashureev/careerbot/internal/store"
)

// app holds the transport-independent core.
type app struct {
	sessions   *session.MemoryStore
	repo       *store.SQLiteStore
	llm        *agent.Service
	dispatcher *dispatch.Dispatcher
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level, _ := config.ParseLogLevel(cfg.LogLevel)
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	banks := quiz.DefaultBanks()
	if cfg.QuestionBankPath != "" {
		loaded, err := quiz.LoadBanks(cfg.QuestionBankPath)
		if err != nil {
			return nil, fmt.Errorf("load question banks: %w", err)
		}
		banks = loaded
		logger.Info("Question banks loaded", "path", cfg.QuestionBankPath)
	}

	ac := agent.DefaultConfig()
	ac.Provider = cfg.LLM.Provider
	if cfg.LLM.Model != "" {
		ac.ModelName = cfg.LLM.Model
	}
	ac.OpenAIAPIKey = cfg.LLM.OpenAIAPIKey
	ac.OpenAIBaseURL = cfg.LLM.OpenAIBaseURL
	ac.GoogleAPIKey = cfg.LLM.GoogleAPIKey
	ac.GoogleBaseURL = cfg.LLM.GoogleBaseURL
	ac.RequestTimeout = cfg.LLM.Timeout

	processor, err := agent.NewProcessor(ctx, ac, logger)
	if err != nil {
		return nil, fmt.Errorf("create %s processor: %w", ac.Provider, err)
	}
	llm := agent.NewServiceWithProcessor(processor, ac.RequestTimeout, logger)
	logger.Info("Text generation ready", "processor", llm.Name(), "timeout", ac.RequestTimeout)

	a := &app{
		sessions: session.NewMemoryStore(cfg.Session.Shards),
		llm:      llm,
	}

	opts := []dispatch.Option{dispatch.WithLogger(logger)}
	if cfg.TranscriptEnabled() {
		repo, err := store.NewSQLite(cfg.Transcript.DBPath)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open transcript store: %w", err)
		}
		if err := repo.Ping(ctx); err != nil {
			_ = repo.Close()
			a.Close()
			return nil, fmt.Errorf("transcript store health check: %w", err)
		}
		a.repo = repo
		opts = append(opts, dispatch.WithRecorder(repo))
		logger.Info("Transcript store connected", "path", cfg.Transcript.DBPath)
	}

	chatMgr := chat.NewManager(llm,
		chat.WithHistoryLimit(cfg.LLM.HistoryLimit),
		chat.WithSystemPrompt(cfg.LLM.SystemPrompt),
		chat.WithLogger(logger),
	)
	a.dispatcher = dispatch.New(a.sessions, quiz.NewEngine(banks), chatMgr, opts...)
	return a, nil
}

// Close releases the LLM client and the transcript store.
func (a *app) Close() {
	if a.llm != nil {
		a.llm.Close()
	}
	if a.repo != nil {
		if err := a.repo.Close(); err != nil {
			slog.Error("Failed to close transcript store", "error", err)
		}
	}
}
