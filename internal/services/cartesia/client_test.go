package cartesia_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"chorus/internal/services"
	"chorus/internal/services/cartesia"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, sleeps *[]time.Duration) *cartesia.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return cartesia.NewClient(cartesia.Config{
		APIKey:  "secret",
		BaseURL: server.URL,
		ModelID: "sonic-2",
	}, cartesia.WithHTTPClient(server.Client()), cartesia.WithSleeper(func(d time.Duration) {
		if sleeps != nil {
			*sleeps = append(*sleeps, d)
		}
	}))
}

func TestSynthesizeSendsTranscriptAndLanguage(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth header %q", got)
		}
		if got := r.Header.Get("Cartesia-Version"); got == "" {
			t.Error("missing Cartesia-Version header")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte("mp3-bytes"))
	}, nil)

	audio, err := client.Synthesize(context.Background(), cartesia.Request{
		Text:     "Hola a todos.",
		VoiceID:  "voice-es",
		Language: "es",
	})
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if string(audio) != "mp3-bytes" {
		t.Fatalf("unexpected audio %q", audio)
	}
	if gotPath != "/tts/bytes" {
		t.Fatalf("unexpected request path %q", gotPath)
	}
	if gotBody["transcript"] != "Hola a todos." || gotBody["language"] != "es" {
		t.Fatalf("unexpected payload %v", gotBody)
	}
	voice, ok := gotBody["voice"].(map[string]any)
	if !ok || voice["id"] != "voice-es" {
		t.Fatalf("unexpected voice ref %v", gotBody["voice"])
	}
}

func TestSynthesizeRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	var sleeps []time.Duration
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}, &sleeps)

	audio, err := client.Synthesize(context.Background(), cartesia.Request{Text: "Hola.", VoiceID: "v", Language: "es"})
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if string(audio) != "ok" {
		t.Fatalf("unexpected audio %q", audio)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", calls.Load())
	}
	if len(sleeps) != 2 || sleeps[1] <= sleeps[0] {
		t.Fatalf("expected increasing retry delays, got %v", sleeps)
	}
}

func TestSynthesizeGivesUpAfterRepeatedRateLimits(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}, &[]time.Duration{})

	_, err := client.Synthesize(context.Background(), cartesia.Request{Text: "Hola.", VoiceID: "v", Language: "es"})
	if !errors.Is(err, services.ErrProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls before giving up, got %d", calls.Load())
	}
}

func TestSynthesizeDoesNotRetryOtherFailures(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "unknown voice", http.StatusUnprocessableEntity)
	}, nil)

	_, err := client.Synthesize(context.Background(), cartesia.Request{Text: "Hola.", VoiceID: "v", Language: "es"})
	if !errors.Is(err, services.ErrProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single call, got %d", calls.Load())
	}
}

func TestSynthesizeValidatesInput(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request")
	}, nil)

	if _, err := client.Synthesize(context.Background(), cartesia.Request{VoiceID: "v"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty text, got %v", err)
	}
	if _, err := client.Synthesize(context.Background(), cartesia.Request{Text: "Hola."}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty voice, got %v", err)
	}
}
