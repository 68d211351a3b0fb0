package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOllamaProvider_Review_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("Expected path /api/generate, got %s", r.URL.Path)
		}

		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Stream {
			t.Error("Expected non-streaming request")
		}
		if req.Options.NumPredict != 800 {
			t.Errorf("Expected default num_predict 800, got %d", req.Options.NumPredict)
		}

		_ = json.NewEncoder(w).Encode(ollamaResponse{
			Model:    "llama3.1:8b",
			Response: "Looks right.",
			Done:     true,
		})
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL, Model: "llama3.1:8b", StrictIRIs: true})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Review(context.Background(), reviewRequest())
	if err != nil {
		t.Fatalf("Review failed: %v", err)
	}

	if resp.Notes != "Looks right." {
		t.Errorf("Unexpected notes: %q", resp.Notes)
	}
	if resp.TokensUsed == 0 {
		t.Error("Expected estimated token count when the model reports none")
	}
}

func TestOllamaProvider_Review_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "model 'nope' not found"}`))
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL, Model: "nope"})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, err = provider.Review(context.Background(), reviewRequest())
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("Expected not found error, got %v", err)
	}
}

func TestOllamaProvider_Review_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{malformed`))
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL, Model: "m"})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	if _, err := provider.Review(context.Background(), reviewRequest()); err == nil {
		t.Fatal("Expected error for malformed JSON, got nil")
	}
}

func TestOllamaProvider_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models": []}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	if !provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be true")
	}

	server.Close()
	if provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be false once the server is gone")
	}
}

func TestOllamaProvider_Review_NoModel(t *testing.T) {
	provider, err := NewOllamaProvider(Config{})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, err = provider.Review(context.Background(), reviewRequest())
	if err == nil || !strings.Contains(err.Error(), "model must be specified") {
		t.Fatalf("Expected missing model error, got %v", err)
	}
}
