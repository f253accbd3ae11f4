package blobstore_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"chorus/internal/services/blobstore"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *blobstore.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return blobstore.NewClient(blobstore.Config{
		BaseURL:       server.URL,
		PublicBaseURL: "https://cdn.test",
		Bucket:        "narration",
		APIKey:        "secret",
	}, blobstore.WithHTTPClient(server.Client()), blobstore.WithSleeper(func(time.Duration) {}))
}

func TestUploadReturnsPublicURL(t *testing.T) {
	var gotPath, gotBody string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		if r.Method != http.MethodPut {
			t.Errorf("unexpected method %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.WriteHeader(http.StatusOK)
	})

	url, err := client.Upload(context.Background(), "elevenlabs-1-en.mp3", []byte("audio"), "audio/mpeg")
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if url != "https://cdn.test/narration/elevenlabs-1-en.mp3" {
		t.Fatalf("unexpected public url %q", url)
	}
	if gotPath != "/narration/elevenlabs-1-en.mp3" {
		t.Fatalf("unexpected request path %q", gotPath)
	}
	if gotBody != "audio" {
		t.Fatalf("unexpected body %q", gotBody)
	}
}

func TestUploadRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	if _, err := client.Upload(context.Background(), "key.mp3", []byte("x"), ""); err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestDeleteIgnoresMissingObjects(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	if err := client.Delete(context.Background(), "gone.mp3"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
}

func TestKeyFromURL(t *testing.T) {
	client := blobstore.NewClient(blobstore.Config{
		BaseURL:       "https://storage.test",
		PublicBaseURL: "https://cdn.test",
		Bucket:        "narration",
	})
	key, ok := client.KeyFromURL("https://cdn.test/narration/cartesia-9-es.mp3")
	if !ok || key != "cartesia-9-es.mp3" {
		t.Fatalf("unexpected key %q ok=%v", key, ok)
	}
	if _, ok := client.KeyFromURL("https://elsewhere.test/file.mp3"); ok {
		t.Fatal("expected foreign URL to be rejected")
	}
}
