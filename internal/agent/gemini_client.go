package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ashureev/careerbot/internal/domain"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiClient completes conversations with the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGeminiClient creates a client from cfg.
func NewGeminiClient(ctx context.Context, cfg Config, logger *slog.Logger) (*GeminiClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.GoogleAPIKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrMissingAPIKey)
	}
	model := cfg.ModelName
	if model == "" || strings.HasPrefix(model, "gpt-") {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.GoogleAPIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.GoogleBaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiClient{client: client, model: model, logger: logger}, nil
}

// Complete implements Processor. System turns become the system
// instruction; assistant turns use the "model" role.
func (c *GeminiClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	var system []string
	contents := make([]*genai.Content, 0, len(req.Turns))
	for _, t := range req.Turns {
		switch t.Role {
		case domain.RoleSystem:
			system = append(system, t.Text)
		case domain.RoleUser:
			contents = append(contents, genai.NewContentFromText(t.Text, genai.RoleUser))
		case domain.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(t.Text, genai.RoleModel))
		}
	}

	var config *genai.GenerateContentConfig
	if len(system) > 0 {
		config = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser),
		}
	}

	c.logger.Debug("Sending Gemini generation", "user_id", req.UserID, "model", c.model, "contents", len(contents))

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("GenAI generate failed: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return nil, ErrEmptyCompletion
	}
	return &CompletionResponse{Text: text, Model: c.model}, nil
}

// Name implements Processor.
func (c *GeminiClient) Name() string {
	return "gemini:" + c.model
}

// Close implements Processor.
func (c *GeminiClient) Close() {}
