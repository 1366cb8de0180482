package driven

import (
	"context"

	"github.com/custodia-labs/sercha-scan/internal/core/domain"
)

// TaskQueue carries OCR and export jobs from the API to the workers.
// The Redis backend shares jobs between processes; the memory backend keeps
// them inside one process.
type TaskQueue interface {
	// Enqueue adds a task. Tasks scheduled in the future wait until due.
	Enqueue(ctx context.Context, task *domain.Task) error

	// EnqueueBatch adds the OCR tasks of a whole import in one step
	EnqueueBatch(ctx context.Context, tasks []*domain.Task) error

	// Dequeue blocks for the next ready task and marks it processing.
	// A cancelled context yields nil, nil.
	Dequeue(ctx context.Context) (*domain.Task, error)

	// DequeueWithTimeout waits at most timeout seconds; nil, nil when nothing arrived
	DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error)

	// Ack marks a task completed
	Ack(ctx context.Context, taskID string) error

	// Nack records reason and reschedules the task with backoff, or fails it
	// once MaxAttempts is spent. Export tasks are never retried.
	Nack(ctx context.Context, taskID string, reason string) error

	// GetTask returns a task by ID or domain.ErrNotFound
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)

	// ListTasks returns tasks matching filter
	ListTasks(ctx context.Context, filter TaskFilter) ([]*domain.Task, error)

	// CancelTask cancels a pending task; any other status is domain.ErrInvalidInput
	CancelTask(ctx context.Context, taskID string) error

	// PurgeTasks drops finished tasks older than olderThan seconds and
	// returns how many were removed
	PurgeTasks(ctx context.Context, olderThan int) (int, error)

	// Stats counts tasks by status
	Stats(ctx context.Context) (*QueueStats, error)

	// Ping checks the backend
	Ping(ctx context.Context) error

	// Close releases the backend
	Close() error
}

// TaskFilter specifies criteria for listing tasks
type TaskFilter struct {
	// Status filters by task status (optional, empty means all)
	Status domain.TaskStatus

	// Type filters by task type (optional, empty means all)
	Type domain.TaskType

	// Limit is the maximum number of tasks to return
	Limit int

	// Offset is the number of tasks to skip (for pagination)
	Offset int
}

// QueueStats contains queue statistics
type QueueStats struct {
	// PendingCount is the number of tasks waiting to be processed
	PendingCount int64 `json:"pending_count"`

	// ProcessingCount is the number of tasks currently being processed
	ProcessingCount int64 `json:"processing_count"`

	// CompletedCount is the number of successfully completed tasks
	CompletedCount int64 `json:"completed_count"`

	// FailedCount is the number of tasks that failed after all retries
	FailedCount int64 `json:"failed_count"`

	// OldestPendingAge is the age of the oldest pending task in seconds
	OldestPendingAge int64 `json:"oldest_pending_age"`
}
