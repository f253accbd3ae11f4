package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"chorus/internal/api"
	"chorus/internal/assets"
	"chorus/internal/config"
	"chorus/internal/logging"
	"chorus/internal/notifications"
	"chorus/internal/queue"
	"chorus/internal/services/blobstore"
	"chorus/internal/services/cartesia"
	"chorus/internal/services/contentstore"
	"chorus/internal/services/elevenlabs"
	"chorus/internal/services/llm"
	"chorus/internal/translate"
	"chorus/internal/tts"
	"chorus/internal/voice"
	"chorus/internal/workflow"
)

// Daemon owns the background narration pipeline and enforces
// single-instance execution through a lock file.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	store    *queue.Store
	cache    *translate.SQLiteCache
	manager  *workflow.Manager
	jobs     *api.JobService
	notifier notifications.Service
	server   *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status is the daemon runtime snapshot served over the API.
type Status struct {
	Running     bool                `json:"running"`
	QueueDBPath string              `json:"queueDbPath"`
	Queue       queue.HealthSummary `json:"queue"`
}

// New builds the daemon and every dependency behind it.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = slog.Default()
	}

	store, err := queue.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}
	cache, err := translate.OpenCache(cfg)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("open translation cache: %w", err)
	}

	completer := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
	translator := translate.NewService(cfg, completer, cache, logger)

	uploader := blobstore.NewClient(blobstore.Config{
		BaseURL:        cfg.Storage.BaseURL,
		PublicBaseURL:  cfg.Storage.PublicBaseURL,
		Bucket:         cfg.Storage.Bucket,
		APIKey:         cfg.Storage.APIKey,
		TimeoutSeconds: cfg.Storage.TimeoutSeconds,
	})

	speakers := map[voice.Provider]tts.Speaker{
		voice.ProviderElevenLabs: tts.ElevenLabsSpeaker{Client: elevenlabs.NewClient(elevenlabs.Config{
			APIKey:         cfg.TTS.ElevenLabs.APIKey,
			BaseURL:        cfg.TTS.ElevenLabs.BaseURL,
			ModelID:        cfg.TTS.ElevenLabs.ModelID,
			Stability:      cfg.TTS.ElevenLabs.Stability,
			Similarity:     cfg.TTS.ElevenLabs.Similarity,
			TimeoutSeconds: cfg.TTS.ElevenLabs.TimeoutSeconds,
		})},
		voice.ProviderCartesia: tts.CartesiaSpeaker{Client: cartesia.NewClient(cartesia.Config{
			APIKey:         cfg.TTS.Cartesia.APIKey,
			BaseURL:        cfg.TTS.Cartesia.BaseURL,
			ModelID:        cfg.TTS.Cartesia.ModelID,
			TimeoutSeconds: cfg.TTS.Cartesia.TimeoutSeconds,
		})},
	}
	generator := tts.NewGenerator(speakers, uploader, cfg.TTS.ChunkSize, logger)

	var syncer workflow.AssetSyncer
	if cfg.ContentSync.Enabled && cfg.ContentSync.BaseURL != "" {
		content := contentstore.NewClient(contentstore.Config{
			BaseURL:        cfg.ContentSync.BaseURL,
			APIKey:         cfg.ContentSync.APIKey,
			TimeoutSeconds: cfg.ContentSync.TimeoutSeconds,
		})
		syncer = assets.NewSyncer(content, logger)
	}

	notifier := notifications.NewService(cfg)
	orchestrator := workflow.NewOrchestrator(cfg, store, translator, generator, syncer, notifier, logger)
	manager := workflow.NewManager(cfg, store, orchestrator, logger)
	jobs := api.NewJobService(store, orchestrator, uploader, logger)

	lockPath := filepath.Join(cfg.Paths.LogDir, "chorusd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger.With(logging.FieldComponent, "daemon"),
		store:    store,
		cache:    cache,
		manager:  manager,
		jobs:     jobs,
		notifier: notifier,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.server = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the instance lock, then launches the queue loop and API
// server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another chorus daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.manager.Start(runCtx)
	if err := d.server.start(runCtx); err != nil {
		d.manager.Stop()
		cancel()
		_ = d.lock.Unlock()
		return err
	}

	d.running.Store(true)
	d.logger.Info("chorus daemon started", slog.String("lock", d.lockPath))
	return nil
}

// Stop shuts down background work and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.manager.Stop()
	d.server.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	_ = d.cache.Close()
	_ = d.store.Close()
	d.running.Store(false)
	d.logger.Info("chorus daemon stopped")
}

// Running reports whether Start has completed.
func (d *Daemon) Running() bool { return d.running.Load() }

// APIAddr returns the bound address of the HTTP API, or "" when disabled.
func (d *Daemon) APIAddr() string { return d.server.Addr() }

// Status summarizes daemon and queue health.
func (d *Daemon) Status(ctx context.Context) Status {
	summary, err := d.store.Health(ctx)
	if err != nil {
		d.logger.Warn("queue health query failed", logging.Error(err))
	}
	return Status{
		Running:     d.running.Load(),
		QueueDBPath: d.store.Path(),
		Queue:       summary,
	}
}
