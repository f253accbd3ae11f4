package translate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"chorus/internal/config"
	"chorus/internal/language"
	"chorus/internal/services"
	"chorus/internal/services/llm"
)

// Completer is the slice of the LLM client the translator needs.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (llm.Completion, error)
}

// Result is one finished translation. Confidence is 1.0 for passthrough and
// cache hits, 0.95 for fresh model output and 0.0 when the fallback to the
// source text was taken.
type Result struct {
	Text       string
	Confidence float64
	TokensUsed int
	CacheHit   bool
}

// Request is one unit of batch translation work.
type Request struct {
	Text           string
	SourceLanguage string
	TargetLanguage string
	Context        ContextType
}

// Service translates text through the LLM with a cache in front of it.
type Service struct {
	completer Completer
	cache     Cache
	logger    *slog.Logger

	sourceLanguage string
	supported      map[string]struct{}
	maxOutputRatio float64
	batchSize      int
	batchPause     time.Duration

	mu        sync.Mutex
	cacheHits int64
}

// NewService wires the translator from configuration.
func NewService(cfg *config.Config, completer Completer, cache Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	supported := make(map[string]struct{}, len(cfg.Translation.SupportedLanguages))
	for _, lang := range cfg.Translation.SupportedLanguages {
		supported[language.Normalize(lang)] = struct{}{}
	}
	return &Service{
		completer:      completer,
		cache:          cache,
		logger:         logger,
		sourceLanguage: language.Normalize(cfg.Translation.SourceLanguage),
		supported:      supported,
		maxOutputRatio: cfg.Translation.MaxOutputRatio,
		batchSize:      cfg.Translation.BatchSize,
		batchPause:     time.Duration(cfg.Translation.BatchPauseMillis) * time.Millisecond,
	}
}

// NeedsTranslation reports whether any work is required for this pair.
func NeedsTranslation(text, source, target string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	return language.Normalize(source) != language.Normalize(target)
}

// CacheHits returns how many lookups were served from the cache.
func (s *Service) CacheHits() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cacheHits
}

func (s *Service) recordCacheHit() {
	s.mu.Lock()
	s.cacheHits++
	s.mu.Unlock()
}

// Translate translates text into the target language, cache-first. Provider
// failures never surface as errors: the source text comes back with
// confidence 0.0 so the pipeline degrades instead of aborting.
func (s *Service) Translate(ctx context.Context, text, source, target string, contextType ContextType) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "translate", "translate", "text is empty", nil)
	}
	source = language.Normalize(source)
	target = language.Normalize(target)
	if !language.IsKnown(source) {
		return Result{}, services.Wrap(services.ErrValidation, "translate", "translate",
			fmt.Sprintf("unknown source language %q", source), nil)
	}
	if !language.IsKnown(target) {
		return Result{}, services.Wrap(services.ErrValidation, "translate", "translate",
			fmt.Sprintf("unknown target language %q", target), nil)
	}
	if _, ok := s.supported[target]; !ok {
		return Result{}, services.Wrap(services.ErrValidation, "translate", "translate",
			fmt.Sprintf("target language %q is not enabled", target), nil)
	}

	if source == target {
		return Result{Text: text, Confidence: 1.0}, nil
	}

	contextType = normalizeContext(contextType)
	key := CacheKey(text, source, target, string(contextType))

	if s.cache != nil {
		cached, hit, err := s.cache.Lookup(ctx, key)
		if err != nil {
			s.logger.Warn("translation cache lookup failed",
				slog.String("target", target), slog.Any("error", err))
		} else if hit {
			s.recordCacheHit()
			s.logger.Debug("translation cache hit", slog.String("target", target))
			return Result{Text: cached, Confidence: 1.0, CacheHit: true}, nil
		}
	}

	completion, err := s.completer.Complete(ctx,
		systemPrompt(contextType, source, target),
		text,
		maxOutputTokens(text, s.maxOutputRatio),
	)
	if err != nil || strings.TrimSpace(completion.Text) == "" {
		s.logger.Warn("translation failed, falling back to source text",
			slog.String("source", source),
			slog.String("target", target),
			slog.Any("error", err))
		return Result{Text: text, Confidence: 0.0}, nil
	}

	translated := strings.TrimSpace(completion.Text)
	if s.cache != nil {
		if storeErr := s.cache.Store(ctx, key, translated); storeErr != nil {
			s.logger.Warn("translation cache store failed",
				slog.String("target", target), slog.Any("error", storeErr))
		}
	}

	return Result{Text: translated, Confidence: 0.95, TokensUsed: completion.TokensUsed}, nil
}

// TranslateBatch runs requests in fixed-size concurrent batches with a pause
// between batches. Validation errors are reported per slot; provider
// failures degrade to the confidence-0.0 fallback inside Translate and never
// abort the batch.
func (s *Service) TranslateBatch(ctx context.Context, requests []Request) []Result {
	results := make([]Result, len(requests))
	batchSize := s.batchSize
	if batchSize <= 0 {
		batchSize = 5
	}

	for start := 0; start < len(requests); start += batchSize {
		end := start + batchSize
		if end > len(requests) {
			end = len(requests)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				req := requests[idx]
				result, err := s.Translate(ctx, req.Text, req.SourceLanguage, req.TargetLanguage, req.Context)
				if err != nil {
					s.logger.Warn("batch translation slot rejected",
						slog.Int("index", idx), slog.Any("error", err))
					result = Result{Text: req.Text, Confidence: 0.0}
				}
				results[idx] = result
			}(i)
		}
		wg.Wait()

		if end < len(requests) && s.batchPause > 0 {
			select {
			case <-time.After(s.batchPause):
			case <-ctx.Done():
				for i := end; i < len(requests); i++ {
					results[i] = Result{Text: requests[i].Text, Confidence: 0.0}
				}
				return results
			}
		}
	}
	return results
}
