package agent

import (
	"context"
)

// Processor defines the interface for a text-generation backend.
// It is implemented by the OpenAI and Gemini clients.
type Processor interface {
	// Complete sends the ordered turns and returns the single reply turn.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Name identifies the backend and model for logs.
	Name() string

	// Close releases resources
	Close()
}

// Ensure the clients implement Processor.
var (
	_ Processor = (*OpenAIClient)(nil)
	_ Processor = (*GeminiClient)(nil)
)
