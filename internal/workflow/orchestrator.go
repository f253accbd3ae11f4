package workflow

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"chorus/internal/config"
	"chorus/internal/logging"
	"chorus/internal/notifications"
	"chorus/internal/queue"
	"chorus/internal/subtitles"
	"chorus/internal/textchunk"
	"chorus/internal/translate"
	"chorus/internal/tts"
)

// Translator is the slice of the translation service the orchestrator needs.
type Translator interface {
	Translate(ctx context.Context, text, source, target string, contextType translate.ContextType) (translate.Result, error)
}

// AudioGenerator produces uploaded audio for one language.
type AudioGenerator interface {
	Generate(ctx context.Context, text, lang string, cfg queue.VoiceConfig) (tts.Result, error)
}

// AssetSyncer publishes newly completed languages to the content record.
type AssetSyncer interface {
	Sync(ctx context.Context, job *queue.Job, newlyCompleted []string) error
}

// Orchestrator drives one job through translation, synthesis and merge.
type Orchestrator struct {
	cfg        *config.Config
	store      *queue.Store
	translator Translator
	generator  AudioGenerator
	syncer     AssetSyncer
	notifier   notifications.Service
	logger     *slog.Logger
	heartbeat  *HeartbeatMonitor
}

// NewOrchestrator wires the per-job pipeline.
func NewOrchestrator(
	cfg *config.Config,
	store *queue.Store,
	translator Translator,
	generator AudioGenerator,
	syncer AssetSyncer,
	notifier notifications.Service,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Orchestrator{
		cfg:        cfg,
		store:      store,
		translator: translator,
		generator:  generator,
		syncer:     syncer,
		notifier:   notifier,
		logger:     logger,
		heartbeat: NewHeartbeatMonitor(store, logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second),
	}
}

// Process runs one full pass over a job: claim it, fan out one task per
// outstanding language, join every task regardless of outcome, merge the
// results and synchronize finished assets. A second concurrent Process call
// for the same job fails with a conflict from the claim step.
func (o *Orchestrator) Process(ctx context.Context, jobID int64) (*queue.Job, error) {
	job, err := o.store.BeginProcessing(ctx, jobID)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger := o.logger.With(logging.FieldJobID, job.ID, slog.String("run_id", runID))
	outstanding := job.OutstandingLanguages()
	logger.Info("processing started",
		slog.Int("languages", len(outstanding)),
		slog.String("current_language", job.CurrentLanguage))

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go o.heartbeat.Run(hbCtx, &hbWG, job.ID)

	results := o.fanOut(ctx, job, outstanding, logger)

	stopHeartbeat()
	hbWG.Wait()

	merged, err := o.store.MergeLanguageResults(ctx, job.ID, results)
	if err != nil {
		return nil, err
	}

	newlyCompleted := make([]string, 0, len(results))
	failed := 0
	for _, result := range results {
		switch result.Status.State {
		case queue.LanguageCompleted:
			newlyCompleted = append(newlyCompleted, result.Language)
		case queue.LanguageFailed:
			failed++
		}
	}

	if o.syncer != nil && merged.Status != queue.StatusCancelled {
		if err := o.syncer.Sync(ctx, merged, newlyCompleted); err != nil {
			logger.Warn("asset synchronization incomplete", logging.Error(err))
		}
	}

	o.notify(ctx, merged, len(newlyCompleted), failed)
	logger.Info("processing finished",
		slog.String("status", string(merged.Status)),
		slog.Int("completed", len(merged.CompletedLanguages)),
		slog.Int("failed", failed))
	return merged, nil
}

// fanOut launches one task per language with a concurrency cap and settles
// every task: a language failure is captured as a result, never propagated.
func (o *Orchestrator) fanOut(ctx context.Context, job *queue.Job, languages []string, logger *slog.Logger) []queue.LanguageResult {
	results := make([]queue.LanguageResult, len(languages))

	limit := o.cfg.Workflow.LanguageConcurrency
	if limit <= 0 {
		limit = len(languages)
	}
	sem := make(chan struct{}, limit)

	var wg sync.WaitGroup
	for i, lang := range languages {
		wg.Add(1)
		go func(idx int, lang string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[idx] = o.processLanguage(ctx, job, lang, logger)
		}(i, lang)
	}
	wg.Wait()
	return results
}

func (o *Orchestrator) processLanguage(ctx context.Context, job *queue.Job, lang string, logger *slog.Logger) queue.LanguageResult {
	logger = logger.With(logging.FieldLanguage, lang)

	if job.HasCompleted(lang) {
		logger.Info("language already completed, skipping")
		return queue.LanguageResult{Language: lang, Status: queue.SkippedLanguage()}
	}
	if cancelled, err := o.jobCancelled(ctx, job.ID); err == nil && cancelled {
		logger.Info("job cancelled, language not started")
		return queue.LanguageResult{Language: lang, Status: queue.PendingLanguage()}
	}

	translated, err := o.translateText(ctx, job.SourceText, lang)
	if err != nil {
		logger.Warn("language failed during translation", logging.Error(err))
		return queue.LanguageResult{Language: lang, Status: queue.FailedLanguage(err.Error())}
	}

	audio, err := o.generator.Generate(ctx, translated, lang, job.Config)
	if err != nil {
		logger.Warn("language failed during synthesis", logging.Error(err))
		return queue.LanguageResult{
			Language:       lang,
			Status:         queue.FailedLanguage(err.Error()),
			TranslatedText: translated,
		}
	}

	if o.cfg.Subtitles.Enabled {
		longForm := subtitles.GenerateCaptions(translated, o.cfg.Subtitles.SecondsPerCue)
		shortForm := subtitles.ConvertFormat(longForm)
		subtitles.StoreIntegrity(ctx, o.store, logger, job.ID, lang, longForm, shortForm)
	}

	logger.Info("language completed",
		slog.String("provider", audio.Provider),
		slog.Int("bytes", audio.SizeBytes))
	return queue.LanguageResult{
		Language:       lang,
		Status:         queue.CompletedLanguage(audio.AudioURL),
		TranslatedText: translated,
	}
}

// translateText chunks the source, translates each chunk cache-first and
// reassembles. Translation degradation (confidence 0.0) is not an error:
// the source text flows through to synthesis.
func (o *Orchestrator) translateText(ctx context.Context, text, lang string) (string, error) {
	source := o.cfg.Translation.SourceLanguage
	if !translate.NeedsTranslation(text, source, lang) {
		return text, nil
	}

	chunks := textchunk.Chunk(text, o.cfg.TTS.ChunkSize)
	parts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		result, err := o.translator.Translate(ctx, chunk, source, lang, translate.ContextContent)
		if err != nil {
			return "", err
		}
		parts = append(parts, strings.TrimSpace(result.Text))
	}
	return strings.Join(parts, " "), nil
}

func (o *Orchestrator) jobCancelled(ctx context.Context, jobID int64) (bool, error) {
	current, err := o.store.GetByID(ctx, jobID)
	if err != nil {
		return false, err
	}
	return current.Status == queue.StatusCancelled, nil
}

func (o *Orchestrator) notify(ctx context.Context, job *queue.Job, completed, failed int) {
	var err error
	switch job.Status {
	case queue.StatusCompleted:
		err = o.notifier.NotifyJobCompleted(ctx, job.ID, len(job.CompletedLanguages))
	case queue.StatusPartialSuccess:
		err = o.notifier.NotifyJobPartial(ctx, job.ID, completed, failed)
	case queue.StatusFailed:
		reason := ""
		for _, msg := range job.Errors {
			reason = msg
			break
		}
		err = o.notifier.NotifyJobFailed(ctx, job.ID, reason)
	}
	if err != nil {
		o.logger.Warn("notification delivery failed", logging.Error(err))
	}
}
