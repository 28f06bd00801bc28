package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/careerbot/internal/domain"
)

// NewProcessor builds the backend selected by cfg.Provider.
func NewProcessor(ctx context.Context, cfg Config, logger *slog.Logger) (Processor, error) {
	switch cfg.Provider {
	case "", ProviderOpenAI:
		return NewOpenAIClient(cfg, logger)
	case ProviderGemini:
		return NewGeminiClient(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

// Service puts a deadline on every completion and logs the outcome.
type Service struct {
	processor Processor
	timeout   time.Duration
	logger    *slog.Logger
}

// NewServiceWithProcessor creates a new agent service with a custom processor.
func NewServiceWithProcessor(processor Processor, timeout time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultConfig().RequestTimeout
	}
	return &Service{
		processor: processor,
		timeout:   timeout,
		logger:    logger,
	}
}

// Complete sends turns for userID and returns the reply text. Running past
// the service timeout is reported as context.DeadlineExceeded.
func (s *Service) Complete(ctx context.Context, userID string, turns []domain.Turn) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	resp, err := s.processor.Complete(ctx, CompletionRequest{UserID: userID, Turns: turns})
	if err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %w", ctx.Err(), err)
		}
		s.logger.Warn("Completion failed",
			"user_id", userID,
			"backend", s.processor.Name(),
			"duration", time.Since(start),
			"error", err,
		)
		return "", err
	}

	s.logger.Info("Completion received",
		"user_id", userID,
		"backend", s.processor.Name(),
		"duration", time.Since(start),
		"reply_length", len(resp.Text),
	)
	return resp.Text, nil
}

// Name returns the backend name.
func (s *Service) Name() string {
	return s.processor.Name()
}

// Close releases resources.
func (s *Service) Close() {
	if s.processor != nil {
		s.processor.Close()
	}
}
