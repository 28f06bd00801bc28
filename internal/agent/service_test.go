package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ashureev/careerbot/internal/domain"
)

type fakeProcessor struct {
	reply string
	err   error
	delay time.Duration
	got   CompletionRequest
}

func (f *fakeProcessor) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	f.got = req
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, errors.New("request aborted")
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &CompletionResponse{Text: f.reply, Model: "fake"}, nil
}

func (f *fakeProcessor) Name() string { return "fake" }
func (f *fakeProcessor) Close()       {}

func TestServiceCompletePassesTurns(t *testing.T) {
	t.Parallel()

	p := &fakeProcessor{reply: "What do you enjoy?"}
	svc := NewServiceWithProcessor(p, time.Second, nil)

	turns := []domain.Turn{
		{Role: domain.RoleSystem, Text: "sys"},
		{Role: domain.RoleUser, Text: "hello"},
	}
	got, err := svc.Complete(context.Background(), "tg:1", turns)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got != "What do you enjoy?" {
		t.Fatalf("unexpected reply: %q", got)
	}
	if p.got.UserID != "tg:1" || len(p.got.Turns) != 2 {
		t.Fatalf("unexpected request: %+v", p.got)
	}
}

func TestServiceCompleteTimeout(t *testing.T) {
	t.Parallel()

	p := &fakeProcessor{reply: "late", delay: time.Second}
	svc := NewServiceWithProcessor(p, 10*time.Millisecond, nil)

	_, err := svc.Complete(context.Background(), "tg:1", nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestServiceCompleteError(t *testing.T) {
	t.Parallel()

	svc := NewServiceWithProcessor(&fakeProcessor{err: ErrEmptyCompletion}, time.Second, nil)
	if _, err := svc.Complete(context.Background(), "tg:1", nil); !errors.Is(err, ErrEmptyCompletion) {
		t.Fatalf("expected ErrEmptyCompletion, got %v", err)
	}
}

func TestNewProcessorValidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if _, err := NewProcessor(ctx, Config{Provider: ProviderOpenAI}, nil); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey for openai, got %v", err)
	}
	if _, err := NewProcessor(ctx, Config{Provider: ProviderGemini}, nil); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey for gemini, got %v", err)
	}
	if _, err := NewProcessor(ctx, Config{Provider: "llama"}, nil); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}

	p, err := NewProcessor(ctx, Config{Provider: ProviderOpenAI, OpenAIAPIKey: "sk-test"}, nil)
	if err != nil {
		t.Fatalf("NewProcessor failed: %v", err)
	}
	if p.Name() != "openai:gpt-4" {
		t.Fatalf("unexpected name %q", p.Name())
	}
}
