package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-scan/internal/core/ports/driven"
)

const janitorLock = "janitor"

// Janitor periodically purges finished tasks from the queue.
// With a lock, only one process purges per cycle.
type Janitor struct {
	taskQueue driven.TaskQueue
	lock      driven.DistributedLock
	logger    *slog.Logger

	interval  time.Duration
	retention time.Duration
	lockTTL   time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// JanitorConfig holds janitor settings
type JanitorConfig struct {
	TaskQueue driven.TaskQueue
	Lock      driven.DistributedLock // Optional
	Logger    *slog.Logger
	Interval  time.Duration // How often to purge (default: 10m)
	Retention time.Duration // Age after which finished tasks are removed (default: 24h)
}

// NewJanitor creates a janitor
func NewJanitor(cfg JanitorConfig) *Janitor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	retention := cfg.Retention
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &Janitor{
		taskQueue: cfg.TaskQueue,
		lock:      cfg.Lock,
		logger:    logger.With("component", "janitor"),
		interval:  interval,
		retention: retention,
		lockTTL:   interval / 2,
	}
}

// Start runs a purge immediately and then every interval
func (j *Janitor) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return
	}
	j.running = true
	j.stopCh = make(chan struct{})
	j.doneCh = make(chan struct{})
	go j.run(ctx)
}

// Stop waits for the loop to exit
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
}

func (j *Janitor) run(ctx context.Context) {
	defer close(j.doneCh)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.Purge(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-j.stopCh:
			return
		case <-ticker.C:
			j.Purge(ctx)
		}
	}
}

// Purge removes finished tasks older than the retention. Returns the number removed.
func (j *Janitor) Purge(ctx context.Context) int {
	if j.lock != nil {
		acquired, err := j.lock.Acquire(ctx, janitorLock, j.lockTTL)
		if err != nil {
			j.logger.Warn("failed to acquire janitor lock", "error", err)
			return 0
		}
		if !acquired {
			j.logger.Debug("janitor lock held by another instance, skipping cycle")
			return 0
		}
		defer func() {
			if err := j.lock.Release(context.WithoutCancel(ctx), janitorLock); err != nil {
				j.logger.Warn("failed to release janitor lock", "error", err)
			}
		}()
	}

	n, err := j.taskQueue.PurgeTasks(ctx, int(j.retention.Seconds()))
	if err != nil {
		j.logger.Error("failed to purge tasks", "error", err)
		return 0
	}
	if n > 0 {
		j.logger.Info("purged finished tasks", "count", n)
	}
	return n
}
