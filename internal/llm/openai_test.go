package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/ontobridge/internal/model"
)

func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected Authorization header Bearer test-key, got %s", r.Header.Get("Authorization"))
		}

		resp := openai.ChatCompletionResponse{
			ID:     "chatcmpl-123",
			Object: "chat.completion",
			Model:  "gpt-4o-mini",
			Choices: []openai.ChatCompletionChoice{
				{
					Message: openai.ChatCompletionMessage{
						Role:    "assistant",
						Content: content,
					},
					FinishReason: "stop",
				},
			},
			Usage: openai.Usage{TotalTokens: 100},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func reviewRequest() ReviewRequest {
	mappings := model.AlignmentSet{
		model.NewMapping("http://client.example/onto#numberOfPeople", "http://service.example/onto#requiredPlaces", 0.41, model.KindProperty, 0.7),
	}
	return ReviewRequest{
		ServiceURL:  "http://service.example/rdf",
		Mappings:    mappings,
		AllowedIRIs: AllowedIRIs(mappings),
	}
}

func TestOpenAIProvider_Review_Success(t *testing.T) {
	server := chatServer(t, "- http://client.example/onto#numberOfPeople and http://service.example/onto#requiredPlaces both count guests.")
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		Model:      "gpt-4o-mini",
		Timeout:    5,
		StrictIRIs: true,
	})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Review(context.Background(), reviewRequest())
	if err != nil {
		t.Fatalf("Review failed: %v", err)
	}

	if !strings.Contains(resp.Notes, "both count guests") {
		t.Errorf("Unexpected notes: %s", resp.Notes)
	}
	if len(resp.CitedIRIs) != 2 {
		t.Errorf("Expected 2 cited IRIs, got %v", resp.CitedIRIs)
	}
	if resp.TokensUsed != 100 {
		t.Errorf("Expected 100 tokens, got %d", resp.TokensUsed)
	}
}

func TestOpenAIProvider_Review_IRILeak(t *testing.T) {
	server := chatServer(t, "Consider http://schema.org/numberOfGuests instead.")
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		StrictIRIs: true,
	})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, err = provider.Review(context.Background(), reviewRequest())
	if err == nil || !strings.Contains(err.Error(), "IRI LEAK") {
		t.Fatalf("Expected IRI LEAK error, got %v", err)
	}

	provider.config.StrictIRIs = false
	if _, err := provider.Review(context.Background(), reviewRequest()); err != nil {
		t.Errorf("Expected non-strict review to pass, got %v", err)
	}
}

func TestOpenAIProvider_Review_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "Invalid API key", "type": "invalid_request_error"}}`))
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, err = provider.Review(context.Background(), reviewRequest())
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !strings.Contains(err.Error(), "OpenAI API error") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestOpenAIProvider_Review_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{malformed json`))
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	if _, err := provider.Review(context.Background(), reviewRequest()); err == nil {
		t.Fatal("Expected error for malformed JSON, got nil")
	}
}

func TestOpenAIProvider_Review_ContextDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 1})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := provider.Review(ctx, reviewRequest()); err == nil {
		t.Fatal("Expected timeout error, got nil")
	}
}

func TestOpenAIProvider_MissingKey(t *testing.T) {
	if _, err := NewOpenAIProvider(Config{}); err == nil {
		t.Error("Expected error without API key")
	}
}

func TestOpenAIProvider_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models" {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"data": [{"id": "gpt-4o-mini"}]}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	if !provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be true")
	}

	server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	if provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be false on error")
	}
}
