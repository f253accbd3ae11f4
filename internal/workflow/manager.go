package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"chorus/internal/config"
	"chorus/internal/logging"
	"chorus/internal/queue"
	"chorus/internal/services"
)

// Manager polls the queue and hands pending jobs to the orchestrator.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	orchestrator *Orchestrator
	logger       *slog.Logger
	pollInterval time.Duration
	retryDelay   time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
}

// NewManager constructs the queue processing loop.
func NewManager(cfg *config.Config, store *queue.Store, orchestrator *Orchestrator, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	poll := time.Duration(cfg.Workflow.QueuePollInterval) * time.Second
	if poll <= 0 {
		poll = 5 * time.Second
	}
	retry := time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second
	if retry <= 0 {
		retry = poll
	}
	return &Manager{
		cfg:          cfg,
		store:        store,
		orchestrator: orchestrator,
		logger:       logger.With(logging.FieldComponent, "workflow"),
		pollInterval: poll,
		retryDelay:   retry,
	}
}

// Start launches the polling loop. Calling Start on a running manager is a
// no-op.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	go m.run(loopCtx)
}

// Stop cancels the loop and waits for in-flight work to settle.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// Running reports whether the loop is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// LastError returns the most recent processing failure, if any.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Manager) setLastErr(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()
	m.logger.Info("queue processing started",
		slog.Duration("poll_interval", m.pollInterval))

	for {
		delay := m.pollInterval
		if err := m.tick(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			m.setLastErr(err)
			m.logger.Error("queue pass failed", logging.Error(err))
			delay = m.retryDelay
		}

		select {
		case <-ctx.Done():
			m.logger.Info("queue processing stopped")
			return
		case <-time.After(delay):
		}
	}
}

// tick runs one queue pass: reclaim stale work, then process the oldest
// pending job if there is one.
func (m *Manager) tick(ctx context.Context) error {
	if err := m.orchestrator.heartbeat.ReclaimStale(ctx); err != nil {
		return err
	}

	job, err := m.store.NextPending(ctx)
	if err != nil {
		return err
	}
	if job == nil {
		return nil
	}

	if _, err := m.orchestrator.Process(ctx, job.ID); err != nil {
		// Another worker may have claimed the job between NextPending and
		// the claim; that is not a loop failure.
		if errors.Is(err, services.ErrConflict) {
			return nil
		}
		return err
	}
	return nil
}
