package llm_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"chorus/internal/services/llm"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...llm.Option) *llm.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	base := []llm.Option{
		llm.WithHTTPClient(server.Client()),
		llm.WithSleeper(func(time.Duration) {}),
	}
	return llm.NewClient(llm.Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test-model",
	}, append(base, opts...)...)
}

func TestCompleteReturnsContentAndUsage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Hola mundo"}}],"usage":{"total_tokens":12}}`))
	})

	got, err := client.Complete(context.Background(), "translate", "Hello world", 64)
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if got.Text != "Hola mundo" {
		t.Fatalf("unexpected text %q", got.Text)
	}
	if got.TokensUsed != 12 {
		t.Fatalf("unexpected token count %d", got.TokensUsed)
	}
}

func TestCompleteRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}, llm.WithRetryMaxAttempts(3))

	got, err := client.Complete(context.Background(), "translate", "text", 0)
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if got.Text != "ok" {
		t.Fatalf("unexpected text %q", got.Text)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestCompleteDoesNotRetryClientError(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}, llm.WithRetryMaxAttempts(3))

	if _, err := client.Complete(context.Background(), "translate", "text", 0); err == nil {
		t.Fatal("expected error for 401 response")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single call, got %d", calls.Load())
	}
}

func TestCompleteValidatesPrompts(t *testing.T) {
	client := llm.NewClient(llm.Config{APIKey: "k"})
	if _, err := client.Complete(context.Background(), "", "user", 0); err == nil {
		t.Fatal("expected error for empty system prompt")
	}
}
