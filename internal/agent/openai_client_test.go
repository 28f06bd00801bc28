package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ashureev/careerbot/internal/domain"
)

type recordedRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newCompletionServer(t *testing.T, content string, got *recordedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIClientComplete(t *testing.T) {
	t.Parallel()

	var got recordedRequest
	srv := newCompletionServer(t, "Tell me about your studies.", &got)

	client, err := NewOpenAIClient(Config{OpenAIAPIKey: "sk-test", OpenAIBaseURL: srv.URL}, nil)
	if err != nil {
		t.Fatalf("NewOpenAIClient failed: %v", err)
	}

	resp, err := client.Complete(context.Background(), CompletionRequest{
		UserID: "tg:1",
		Turns: []domain.Turn{
			{Role: domain.RoleSystem, Text: "be curious"},
			{Role: domain.RoleUser, Text: "I like maths"},
			{Role: domain.RoleAssistant, Text: "Nice"},
			{Role: domain.RoleUser, Text: "what now?"},
		},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Text != "Tell me about your studies." {
		t.Fatalf("unexpected text %q", resp.Text)
	}
	if got.Model != "gpt-4" {
		t.Fatalf("unexpected model %q", got.Model)
	}
	wantRoles := []string{"system", "user", "assistant", "user"}
	if len(got.Messages) != len(wantRoles) {
		t.Fatalf("expected %d messages, got %d", len(wantRoles), len(got.Messages))
	}
	for i, role := range wantRoles {
		if got.Messages[i].Role != role {
			t.Errorf("message %d: role %q, want %q", i, got.Messages[i].Role, role)
		}
	}
	if got.Messages[1].Content != "I like maths" {
		t.Errorf("unexpected user content %q", got.Messages[1].Content)
	}
}

func TestOpenAIClientEmptyCompletion(t *testing.T) {
	t.Parallel()

	var got recordedRequest
	srv := newCompletionServer(t, "", &got)

	client, err := NewOpenAIClient(Config{OpenAIAPIKey: "sk-test", OpenAIBaseURL: srv.URL}, nil)
	if err != nil {
		t.Fatalf("NewOpenAIClient failed: %v", err)
	}
	_, err = client.Complete(context.Background(), CompletionRequest{Turns: []domain.Turn{{Role: domain.RoleUser, Text: "hi"}}})
	if !errors.Is(err, ErrEmptyCompletion) {
		t.Fatalf("expected ErrEmptyCompletion, got %v", err)
	}
}

func TestOpenAIClientServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	t.Cleanup(srv.Close)

	client, err := NewOpenAIClient(Config{OpenAIAPIKey: "sk-bad", OpenAIBaseURL: srv.URL}, nil)
	if err != nil {
		t.Fatalf("NewOpenAIClient failed: %v", err)
	}
	if _, err := client.Complete(context.Background(), CompletionRequest{Turns: []domain.Turn{{Role: domain.RoleUser, Text: "hi"}}}); err == nil {
		t.Fatal("expected error for 401 response")
	}
}
