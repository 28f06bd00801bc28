// Package agent talks to the text-generation service behind chat mode.
package agent

import (
	"errors"
	"time"

	"github.com/ashureev/careerbot/internal/domain"
)

var (
	// ErrEmptyCompletion means the backend answered without any text.
	ErrEmptyCompletion = errors.New("empty completion")
	// ErrMissingAPIKey means the selected provider has no credential.
	ErrMissingAPIKey = errors.New("missing API key")
	// ErrUnknownProvider means LLM_PROVIDER names no supported backend.
	ErrUnknownProvider = errors.New("unknown provider")
)

// Provider names.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// CompletionRequest is the ordered conversation sent to the backend.
type CompletionRequest struct {
	UserID string
	Turns  []domain.Turn
}

// CompletionResponse is the backend's reply.
type CompletionResponse struct {
	Text  string
	Model string
}

// Config holds agent configuration.
type Config struct {
	Provider       string
	ModelName      string
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	GoogleAPIKey   string
	GoogleBaseURL  string
	RequestTimeout time.Duration
}

// DefaultConfig returns default agent configuration.
func DefaultConfig() Config {
	return Config{
		Provider:       ProviderOpenAI,
		ModelName:      "gpt-4",
		RequestTimeout: 30 * time.Second,
	}
}
