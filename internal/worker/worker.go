package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-scan/internal/core/domain"
	"github.com/custodia-labs/sercha-scan/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-scan/internal/core/ports/driving"
)

// ErrExportInProgress is returned when another worker holds the export lock
// for the same document
var ErrExportInProgress = errors.New("export already in progress")

// Worker processes OCR and export tasks from the task queue
type Worker struct {
	taskQueue driven.TaskQueue
	ocr       driving.OCRService
	export    driving.ExportService
	lock      driven.DistributedLock
	janitor   *Janitor
	logger    *slog.Logger

	// Configuration
	concurrency    int
	dequeueTimeout int // seconds
	lockTTL        time.Duration

	// Internal state
	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// WorkerConfig holds configuration for the worker.
type WorkerConfig struct {
	TaskQueue driven.TaskQueue
	OCR       driving.OCRService
	Export    driving.ExportService
	Lock      driven.DistributedLock // Optional: one export per document across processes
	Janitor   *Janitor               // Optional: purges finished tasks while the worker runs
	Logger    *slog.Logger

	Concurrency    int           // Number of concurrent task processors
	DequeueTimeout int           // Seconds to wait for a task before checking again
	LockTTL        time.Duration // Export lock lease (default: 10m)
}

// NewWorker creates a new task worker.
func NewWorker(cfg WorkerConfig) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	dequeueTimeout := cfg.DequeueTimeout
	if dequeueTimeout <= 0 {
		dequeueTimeout = 5
	}

	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = 10 * time.Minute
	}

	return &Worker{
		taskQueue:      cfg.TaskQueue,
		ocr:            cfg.OCR,
		export:         cfg.Export,
		lock:           cfg.Lock,
		janitor:        cfg.Janitor,
		logger:         logger,
		concurrency:    concurrency,
		dequeueTimeout: dequeueTimeout,
		lockTTL:        lockTTL,
	}
}

// Start begins the worker loop.
// It runs until Stop is called or context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	w.logger.Info("worker starting",
		"concurrency", w.concurrency,
		"dequeue_timeout", w.dequeueTimeout,
	)

	if w.janitor != nil {
		w.janitor.Start(ctx)
	}

	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.processLoop(ctx, workerID)
		}(i)
	}

	go func() {
		wg.Wait()
		close(w.doneCh)
	}()

	return nil
}

// Stop gracefully stops the worker. Tasks in flight run to completion.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stopCh)
	w.mu.Unlock()

	if w.janitor != nil {
		w.janitor.Stop()
	}

	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("worker stopped")
}

// Wait blocks until the worker stops.
func (w *Worker) Wait() {
	<-w.doneCh
}

// processLoop is the main processing loop for a worker goroutine.
func (w *Worker) processLoop(ctx context.Context, workerID int) {
	logger := w.logger.With("worker_id", workerID)
	logger.Debug("worker goroutine started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug("worker context cancelled")
			return
		case <-w.stopCh:
			logger.Debug("worker stop signal received")
			return
		default:
		}

		task, err := w.taskQueue.DequeueWithTimeout(ctx, w.dequeueTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			logger.Error("failed to dequeue task", "error", err)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
			case <-w.stopCh:
			}
			continue
		}

		if task == nil {
			continue
		}

		w.processTask(ctx, task, logger)
	}
}

// processTask runs a single task and acks or nacks it.
func (w *Worker) processTask(ctx context.Context, task *domain.Task, logger *slog.Logger) {
	logger = logger.With("task_id", task.ID, "task_type", task.Type, "document", task.DocumentName())
	logger.Info("processing task", "attempt", task.Attempts)

	startTime := time.Now()
	var err error

	switch task.Type {
	case domain.TaskTypeOCRPage:
		err = w.handleOCRPage(ctx, task, logger)
	case domain.TaskTypeExportPDF:
		err = w.handleExport(ctx, task, logger)
	default:
		err = fmt.Errorf("unknown task type: %s", task.Type)
	}

	duration := time.Since(startTime)

	if err != nil {
		logger.Error("task failed",
			"duration", duration,
			"error", err,
		)
		if nackErr := w.taskQueue.Nack(ctx, task.ID, err.Error()); nackErr != nil {
			logger.Error("failed to nack task", "nack_error", nackErr)
		}
		return
	}

	logger.Info("task completed", "duration", duration)

	if ackErr := w.taskQueue.Ack(ctx, task.ID); ackErr != nil {
		logger.Error("failed to ack task", "ack_error", ackErr)
	}
}

// handleOCRPage handles an ocr_page task. A page or document deleted after
// the task was queued completes the task without work.
func (w *Worker) handleOCRPage(ctx context.Context, task *domain.Task, logger *slog.Logger) error {
	document, page := task.DocumentName(), task.PageName()
	if document == "" || page == "" {
		return fmt.Errorf("%w: document and page required in task payload", domain.ErrInvalidInput)
	}

	text, err := w.ocr.RecognizePage(ctx, document, page)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Warn("page no longer exists, skipping OCR", "page", page, "error", err)
		return nil
	}
	if err != nil {
		return err
	}

	logger.Debug("page recognised", "page", page, "words", text.WordCount())
	return nil
}

// handleExport handles an export_pdf task under the per-document export lock.
func (w *Worker) handleExport(ctx context.Context, task *domain.Task, logger *slog.Logger) error {
	document, output := task.DocumentName(), task.OutputPath()
	if document == "" || output == "" {
		return fmt.Errorf("%w: document and output required in task payload", domain.ErrInvalidInput)
	}

	if w.lock != nil {
		name := "export:" + document
		acquired, err := w.lock.Acquire(ctx, name, w.lockTTL)
		if err != nil {
			return err
		}
		if !acquired {
			return fmt.Errorf("%w: %s", ErrExportInProgress, document)
		}
		defer func() {
			if err := w.lock.Release(context.WithoutCancel(ctx), name); err != nil {
				logger.Warn("failed to release export lock", "error", err)
			}
		}()
	}

	result, err := w.export.Export(ctx, document, output)
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("export failed: %s", result.Error)
	}

	logger.Info("document exported", "output", output, "pages", result.Pages)
	return nil
}

// Health is the health status of the worker.
type Health struct {
	Running     bool   `json:"running"`
	QueueHealth bool   `json:"queue_health"`
	LockHealth  bool   `json:"lock_health"`
	Error       string `json:"error,omitempty"`
}

// Health returns the health status of the worker.
func (w *Worker) Health(ctx context.Context) Health {
	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()

	health := Health{Running: running, QueueHealth: true, LockHealth: true}

	if err := w.taskQueue.Ping(ctx); err != nil {
		health.QueueHealth = false
		health.Error = err.Error()
	}
	if w.lock != nil {
		if err := w.lock.Ping(ctx); err != nil {
			health.LockHealth = false
			if health.Error == "" {
				health.Error = err.Error()
			}
		}
	}

	return health
}
