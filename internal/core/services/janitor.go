package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/storesight-labs/storesight-core/internal/core/ports/driven"
)

// Janitor periodically purges expired OAuth states and stale usage
// windows. Both stores shrink to a bounded working set on their own
// (states are consumed, windows roll over), so the janitor is about
// reclaiming abandoned rows, not correctness.
//
// For multi-instance deployments, configure a DistributedLock so only one
// replica sweeps at a time.
type Janitor struct {
	states driven.OAuthStateStore
	usage  driven.UsageStore
	lock   driven.DistributedLock
	logger *slog.Logger

	// Internal state
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	interval  time.Duration
	retention time.Duration
	lockTTL   time.Duration
}

// JanitorConfig holds configuration for the janitor.
type JanitorConfig struct {
	States driven.OAuthStateStore
	Usage  driven.UsageStore
	Lock   driven.DistributedLock // Optional: coordination across replicas
	Logger *slog.Logger

	Interval  time.Duration // How often to sweep (default: 10m)
	Retention time.Duration // How long to keep closed usage windows (default: 24h)
	LockTTL   time.Duration // TTL for the distributed lock (default: 2x interval)
}

// NewJanitor creates a new janitor.
func NewJanitor(cfg JanitorConfig) *Janitor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.Interval
	if interval == 0 {
		interval = 10 * time.Minute
	}

	retention := cfg.Retention
	if retention == 0 {
		retention = 24 * time.Hour
	}

	lockTTL := cfg.LockTTL
	if lockTTL == 0 {
		lockTTL = 2 * interval
	}

	return &Janitor{
		states:    cfg.States,
		usage:     cfg.Usage,
		lock:      cfg.Lock,
		logger:    logger,
		interval:  interval,
		retention: retention,
		lockTTL:   lockTTL,
	}
}

// Start begins the sweep loop. It runs until Stop is called or the
// context is cancelled.
func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return nil
	}
	j.running = true
	j.stopCh = make(chan struct{})
	j.doneCh = make(chan struct{})
	j.mu.Unlock()

	j.logger.Info("janitor starting", "interval", j.interval, "retention", j.retention)

	go j.run(ctx)

	return nil
}

// Stop gracefully stops the janitor.
func (j *Janitor) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	close(j.stopCh)
	j.mu.Unlock()

	<-j.doneCh

	j.mu.Lock()
	j.running = false
	j.mu.Unlock()

	j.logger.Info("janitor stopped")
}

// run is the main sweep loop.
func (j *Janitor) run(ctx context.Context) {
	defer close(j.doneCh)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	// Sweep immediately on start
	j.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("janitor context cancelled")
			return
		case <-j.stopCh:
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep runs one cleanup pass. Exported so operators can trigger a manual
// sweep without waiting for the ticker.
func (j *Janitor) Sweep(ctx context.Context) {
	if j.lock != nil {
		acquired, err := j.lock.Acquire(ctx, "janitor", j.lockTTL)
		if err != nil {
			j.logger.Warn("failed to acquire janitor lock", "error", err)
			return
		}
		if !acquired {
			j.logger.Debug("janitor lock held by another instance, skipping sweep")
			return
		}
		defer func() {
			if err := j.lock.Release(ctx, "janitor"); err != nil {
				j.logger.Warn("failed to release janitor lock", "error", err)
			}
		}()
	}

	states, err := j.states.Cleanup(ctx)
	if err != nil {
		j.logger.Error("failed to clean up expired oauth states", "error", err)
	} else if states > 0 {
		j.logger.Info("purged expired oauth states", "count", states)
	}

	if j.usage != nil {
		windows, err := j.usage.Cleanup(ctx, j.retention)
		if err != nil {
			j.logger.Error("failed to clean up stale usage windows", "error", err)
		} else if windows > 0 {
			j.logger.Info("purged stale usage windows", "count", windows)
		}
	}
}
