package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ashureev/careerbot/internal/domain"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient completes conversations with the OpenAI chat completions API.
type OpenAIClient struct {
	client openai.Client
	model  string
	logger *slog.Logger
}

// NewOpenAIClient creates a client from cfg. Retries are disabled: a failed
// request is reported to the user instead of being replayed.
func NewOpenAIClient(cfg Config, logger *slog.Logger) (*OpenAIClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("openai: %w", ErrMissingAPIKey)
	}
	model := cfg.ModelName
	if model == "" {
		model = DefaultConfig().ModelName
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.OpenAIAPIKey),
		option.WithMaxRetries(0),
	}
	if cfg.OpenAIBaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.OpenAIBaseURL))
	}

	return &OpenAIClient{
		client: openai.NewClient(opts...),
		model:  model,
		logger: logger,
	}, nil
}

// Complete implements Processor.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Turns))
	for _, t := range req.Turns {
		switch t.Role {
		case domain.RoleSystem:
			messages = append(messages, openai.SystemMessage(t.Text))
		case domain.RoleUser:
			messages = append(messages, openai.UserMessage(t.Text))
		case domain.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(t.Text))
		}
	}

	c.logger.Debug("Sending chat completion", "user_id", req.UserID, "model", c.model, "messages", len(messages))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: messages,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, ErrEmptyCompletion
	}

	return &CompletionResponse{
		Text:  resp.Choices[0].Message.Content,
		Model: resp.Model,
	}, nil
}

// Name implements Processor.
func (c *OpenAIClient) Name() string {
	return "openai:" + c.model
}

// Close implements Processor. The HTTP client holds no resources.
func (c *OpenAIClient) Close() {}
