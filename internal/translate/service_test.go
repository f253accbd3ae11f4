package translate

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"chorus/internal/config"
	"chorus/internal/logging"
	"chorus/internal/services"
	"chorus/internal/services/llm"
)

type fakeCompleter struct {
	mu       sync.Mutex
	calls    int
	response string
	err      error
}

func (f *fakeCompleter) Complete(_ context.Context, _, _ string, _ int) (llm.Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return llm.Completion{}, f.err
	}
	return llm.Completion{Text: f.response, TokensUsed: 42}, nil
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestService(t *testing.T, completer Completer) (*Service, *SQLiteCache) {
	t.Helper()
	cfg := config.Default()
	dir := t.TempDir()
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")

	cache, err := OpenCache(&cfg)
	if err != nil {
		t.Fatalf("OpenCache() error = %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })

	return NewService(&cfg, completer, cache, logging.NewNop()), cache
}

func TestNeedsTranslation(t *testing.T) {
	cases := []struct {
		text, source, target string
		want                 bool
	}{
		{"hello", "en", "es", true},
		{"hello", "en", "en", false},
		{"hello", "en", "en-US", false},
		{"   ", "en", "es", false},
		{"", "en", "es", false},
	}
	for _, tc := range cases {
		if got := NeedsTranslation(tc.text, tc.source, tc.target); got != tc.want {
			t.Errorf("NeedsTranslation(%q, %s, %s) = %v, want %v",
				tc.text, tc.source, tc.target, got, tc.want)
		}
	}
}

func TestTranslateValidation(t *testing.T) {
	completer := &fakeCompleter{response: "hola"}
	svc, _ := newTestService(t, completer)
	ctx := context.Background()

	if _, err := svc.Translate(ctx, "", "en", "es", ContextContent); !errors.Is(err, services.ErrValidation) {
		t.Errorf("empty text error = %v, want ErrValidation", err)
	}
	if _, err := svc.Translate(ctx, "hello", "xx", "es", ContextContent); !errors.Is(err, services.ErrValidation) {
		t.Errorf("unknown source error = %v, want ErrValidation", err)
	}
	if _, err := svc.Translate(ctx, "hello", "en", "zz", ContextContent); !errors.Is(err, services.ErrValidation) {
		t.Errorf("unknown target error = %v, want ErrValidation", err)
	}
	if completer.callCount() != 0 {
		t.Errorf("validation failures made %d provider calls", completer.callCount())
	}
}

func TestTranslateSameLanguagePassthrough(t *testing.T) {
	completer := &fakeCompleter{response: "should not be used"}
	svc, _ := newTestService(t, completer)

	result, err := svc.Translate(context.Background(), "Hello.", "en", "en", ContextContent)
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if result.Text != "Hello." || result.Confidence != 1.0 {
		t.Errorf("result = %+v, want passthrough with confidence 1.0", result)
	}
	if completer.callCount() != 0 {
		t.Errorf("passthrough made %d provider calls", completer.callCount())
	}
}

func TestTranslateCachesModelOutput(t *testing.T) {
	completer := &fakeCompleter{response: "Hola."}
	svc, _ := newTestService(t, completer)
	ctx := context.Background()

	first, err := svc.Translate(ctx, "Hello.", "en", "es", ContextContent)
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if first.Text != "Hola." || first.Confidence != 0.95 || first.CacheHit {
		t.Errorf("first result = %+v", first)
	}
	if first.TokensUsed != 42 {
		t.Errorf("TokensUsed = %d", first.TokensUsed)
	}

	second, err := svc.Translate(ctx, "Hello.", "en", "es", ContextContent)
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if second.Text != "Hola." || second.Confidence != 1.0 || !second.CacheHit {
		t.Errorf("second result = %+v, want cache hit with confidence 1.0", second)
	}
	if completer.callCount() != 1 {
		t.Errorf("provider calls = %d, want 1", completer.callCount())
	}
	if svc.CacheHits() != 1 {
		t.Errorf("CacheHits() = %d, want 1", svc.CacheHits())
	}
}

func TestTranslateContextTypesCacheSeparately(t *testing.T) {
	completer := &fakeCompleter{response: "Hola."}
	svc, _ := newTestService(t, completer)
	ctx := context.Background()

	if _, err := svc.Translate(ctx, "Hello.", "en", "es", ContextTitle); err != nil {
		t.Fatalf("Translate(title) error = %v", err)
	}
	if _, err := svc.Translate(ctx, "Hello.", "en", "es", ContextExcerpt); err != nil {
		t.Fatalf("Translate(excerpt) error = %v", err)
	}
	if completer.callCount() != 2 {
		t.Errorf("provider calls = %d, want 2 for distinct contexts", completer.callCount())
	}
}

func TestTranslateFallsBackOnProviderFailure(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("rate limited")}
	svc, _ := newTestService(t, completer)

	result, err := svc.Translate(context.Background(), "Hello.", "en", "es", ContextContent)
	if err != nil {
		t.Fatalf("Translate() error = %v, want degraded result instead", err)
	}
	if result.Text != "Hello." || result.Confidence != 0.0 {
		t.Errorf("result = %+v, want source text with confidence 0.0", result)
	}
}

func TestTranslateFallsBackOnEmptyOutput(t *testing.T) {
	completer := &fakeCompleter{response: "   "}
	svc, _ := newTestService(t, completer)

	result, err := svc.Translate(context.Background(), "Hello.", "en", "es", ContextContent)
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if result.Text != "Hello." || result.Confidence != 0.0 {
		t.Errorf("result = %+v, want fallback", result)
	}
}

func TestTranslateBatchMixedOutcomes(t *testing.T) {
	completer := &fakeCompleter{response: "Hola."}
	svc, _ := newTestService(t, completer)

	requests := []Request{
		{Text: "Hello.", SourceLanguage: "en", TargetLanguage: "es", Context: ContextContent},
		{Text: "Hello.", SourceLanguage: "en", TargetLanguage: "en", Context: ContextContent},
		{Text: "Hello.", SourceLanguage: "en", TargetLanguage: "zz", Context: ContextContent},
	}
	results := svc.TranslateBatch(context.Background(), requests)
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	if results[0].Text != "Hola." || results[0].Confidence != 0.95 {
		t.Errorf("results[0] = %+v", results[0])
	}
	if results[1].Text != "Hello." || results[1].Confidence != 1.0 {
		t.Errorf("results[1] = %+v", results[1])
	}
	if results[2].Text != "Hello." || results[2].Confidence != 0.0 {
		t.Errorf("results[2] = %+v, want rejected slot fallback", results[2])
	}
}

func TestCacheKeyIsContentAddressed(t *testing.T) {
	a := CacheKey("Hello.", "en", "es", "content")
	b := CacheKey("Hello.", "en", "es", "content")
	c := CacheKey("Hello.", "en", "fr", "content")

	if a != b {
		t.Error("identical inputs produced different keys")
	}
	if a == c {
		t.Error("different targets produced the same key")
	}
	if len(a) != 64 {
		t.Errorf("key length = %d, want 64", len(a))
	}
}
