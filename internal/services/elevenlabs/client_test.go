package elevenlabs_test

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
	"chorus/internal/services/elevenlabs"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, sleeps *[]time.Duration) *elevenlabs.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return elevenlabs.NewClient(elevenlabs.Config{
		APIKey:     "secret",
		BaseURL:    server.URL,
		ModelID:    "eleven_multilingual_v2",
		Stability:  0.5,
		Similarity: 0.75,
	}, elevenlabs.WithHTTPClient(server.Client()), elevenlabs.WithSleeper(func(d time.Duration) {
		if sleeps != nil {
			*sleeps = append(*sleeps, d)
		}
	}))
}

func TestSynthesizeSendsVoiceSettings(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if got := r.Header.Get("xi-api-key"); got != "secret" {
			t.Errorf("unexpected api key header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte("mp3-bytes"))
	}, nil)

	audio, err := client.Synthesize(context.Background(), elevenlabs.Request{
		Text:    "Hello there.",
		VoiceID: "voice-1",
		Speed:   1.1,
	})
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if string(audio) != "mp3-bytes" {
		t.Fatalf("unexpected audio %q", audio)
	}
	if gotPath != "/text-to-speech/voice-1" {
		t.Fatalf("unexpected request path %q", gotPath)
	}
	settings, ok := gotBody["voice_settings"].(map[string]any)
	if !ok {
		t.Fatalf("payload missing voice_settings: %v", gotBody)
	}
	if settings["stability"] != 0.5 || settings["similarity_boost"] != 0.75 {
		t.Fatalf("unexpected voice settings %v", settings)
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

	audio, err := client.Synthesize(context.Background(), elevenlabs.Request{Text: "Hi.", VoiceID: "v"})
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

	_, err := client.Synthesize(context.Background(), elevenlabs.Request{Text: "Hi.", VoiceID: "v"})
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
		http.Error(w, "bad voice", http.StatusBadRequest)
	}, nil)

	_, err := client.Synthesize(context.Background(), elevenlabs.Request{Text: "Hi.", VoiceID: "v"})
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

	if _, err := client.Synthesize(context.Background(), elevenlabs.Request{VoiceID: "v"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty text, got %v", err)
	}
	if _, err := client.Synthesize(context.Background(), elevenlabs.Request{Text: "Hi."}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty voice, got %v", err)
	}
}
