package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"chorus/internal/logging"
	"chorus/internal/queue"
)

// HeartbeatMonitor keeps processing jobs visibly alive and reclaims jobs
// whose worker died mid-flight.
type HeartbeatMonitor struct {
	store    *queue.Store
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration
}

// NewHeartbeatMonitor creates a monitor. A zero timeout disables reclaim.
func NewHeartbeatMonitor(store *queue.Store, logger *slog.Logger, interval, timeout time.Duration) *HeartbeatMonitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &HeartbeatMonitor{
		store:    store,
		logger:   logger,
		interval: interval,
		timeout:  timeout,
	}
}

// ReclaimStale resets processing jobs with expired heartbeats to pending.
func (h *HeartbeatMonitor) ReclaimStale(ctx context.Context) error {
	if h.timeout <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-h.timeout)
	reclaimed, err := h.store.ReclaimStaleProcessing(ctx, cutoff)
	if err != nil {
		return err
	}
	if reclaimed > 0 {
		h.logger.Info("reclaimed stale jobs", slog.Int64("count", reclaimed))
	}
	return nil
}

// Run updates one job's heartbeat until the context is cancelled.
func (h *HeartbeatMonitor) Run(ctx context.Context, wg *sync.WaitGroup, jobID int64) {
	defer wg.Done()
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.store.UpdateHeartbeat(ctx, jobID); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				h.logger.Warn("heartbeat update failed",
					slog.Int64(logging.FieldJobID, jobID), logging.Error(err))
			}
		}
	}
}
