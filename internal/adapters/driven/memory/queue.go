// Package memory provides in-process task queue and lock implementations for
// single-process deployments
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-scan/internal/core/domain"
	"github.com/custodia-labs/sercha-scan/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TaskQueue = (*Queue)(nil)

// retry delays are checked at least this often while a dequeue waits
const pollInterval = 250 * time.Millisecond

// Queue is a priority queue of tasks held in memory. Higher priority runs
// first; equal priorities run in enqueue order.
type Queue struct {
	mu     sync.Mutex
	tasks  map[string]*domain.Task
	order  []string // enqueue order of pending tasks
	notify chan struct{}
	closed bool
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	return &Queue{
		tasks:  make(map[string]*domain.Task),
		notify: make(chan struct{}),
	}
}

// Enqueue adds a copy of task
func (q *Queue) Enqueue(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return fmt.Errorf("%w: task is required", domain.ErrInvalidInput)
	}
	return q.EnqueueBatch(ctx, []*domain.Task{task})
}

// EnqueueBatch adds every non-nil task under one lock
func (q *Queue) EnqueueBatch(ctx context.Context, tasks []*domain.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return fmt.Errorf("%w: queue closed", domain.ErrServiceUnavailable)
	}
	added := false
	for _, task := range tasks {
		if task == nil {
			continue
		}
		q.tasks[task.ID] = cloneTask(task)
		q.push(task.ID)
		added = true
	}
	if added {
		q.wake()
	}
	return nil
}

func (q *Queue) push(id string) {
	q.order = append(q.order, id)
}

// wake releases every waiting Dequeue. Caller holds mu.
func (q *Queue) wake() {
	close(q.notify)
	q.notify = make(chan struct{})
}

// Dequeue blocks until a task is ready or ctx is done
func (q *Queue) Dequeue(ctx context.Context) (*domain.Task, error) {
	return q.wait(ctx, nil)
}

// DequeueWithTimeout waits up to timeout seconds; 0 blocks like Dequeue
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	if timeout <= 0 {
		return q.wait(ctx, nil)
	}
	timer := time.NewTimer(time.Duration(timeout) * time.Second)
	defer timer.Stop()
	return q.wait(ctx, timer.C)
}

func (q *Queue) wait(ctx context.Context, deadline <-chan time.Time) (*domain.Task, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return nil, nil
		}
		if task := q.popReady(); task != nil {
			q.mu.Unlock()
			return task, nil
		}
		notify := q.notify
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, nil
		case <-deadline:
			return nil, nil
		case <-notify:
		case <-ticker.C:
		}
	}
}

// popReady marks the best ready task processing and returns a copy. Caller holds mu.
func (q *Queue) popReady() *domain.Task {
	var ready []string
	seen := make(map[string]bool, len(q.order))
	kept := q.order[:0]
	for _, id := range q.order {
		task, ok := q.tasks[id]
		if !ok || seen[id] || task.Status != domain.TaskStatusPending {
			continue
		}
		seen[id] = true
		kept = append(kept, id)
		if task.IsReady() {
			ready = append(ready, id)
		}
	}
	q.order = kept
	if len(ready) == 0 {
		return nil
	}
	sort.SliceStable(ready, func(i, j int) bool {
		return q.tasks[ready[i]].Priority > q.tasks[ready[j]].Priority
	})
	task := q.tasks[ready[0]]
	task.MarkProcessing()
	return cloneTask(task)
}

// Ack marks a task completed
func (q *Queue) Ack(ctx context.Context, taskID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	task, err := q.get(taskID)
	if err != nil {
		return err
	}
	task.MarkCompleted()
	return nil
}

// Nack reschedules a task with backoff, or fails it once attempts run out
func (q *Queue) Nack(ctx context.Context, taskID string, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	task, err := q.get(taskID)
	if err != nil {
		return err
	}
	if !task.CanRetry() {
		task.MarkFailed(reason)
		return nil
	}
	task.Retry(reason)
	q.push(task.ID)
	return nil
}

func (q *Queue) get(taskID string) (*domain.Task, error) {
	task, ok := q.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("%w: task %s", domain.ErrNotFound, taskID)
	}
	return task, nil
}

// GetTask returns a copy of the task
func (q *Queue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	task, err := q.get(taskID)
	if err != nil {
		return nil, err
	}
	return cloneTask(task), nil
}

// ListTasks returns matching tasks in enqueue order
func (q *Queue) ListTasks(ctx context.Context, filter driven.TaskFilter) ([]*domain.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	all := make([]*domain.Task, 0, len(q.tasks))
	for _, task := range q.tasks {
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		if filter.Type != "" && task.Type != filter.Type {
			continue
		}
		all = append(all, task)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})

	offset := max(filter.Offset, 0)
	if offset >= len(all) {
		return []*domain.Task{}, nil
	}
	all = all[offset:]
	if filter.Limit > 0 && len(all) > filter.Limit {
		all = all[:filter.Limit]
	}
	out := make([]*domain.Task, len(all))
	for i, task := range all {
		out[i] = cloneTask(task)
	}
	return out, nil
}

// CancelTask cancels a task that has not started
func (q *Queue) CancelTask(ctx context.Context, taskID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	task, err := q.get(taskID)
	if err != nil {
		return err
	}
	if task.Status != domain.TaskStatusPending {
		return fmt.Errorf("%w: task %s is %s", domain.ErrInvalidInput, taskID, task.Status)
	}
	task.MarkCancelled()
	return nil
}

// PurgeTasks drops terminal tasks last updated more than olderThanSeconds ago
func (q *Queue) PurgeTasks(ctx context.Context, olderThanSeconds int) (int, error) {
	cutoff := time.Now().Add(-time.Duration(olderThanSeconds) * time.Second)
	q.mu.Lock()
	defer q.mu.Unlock()
	purged := 0
	for id, task := range q.tasks {
		if task.IsTerminal() && task.UpdatedAt.Before(cutoff) {
			delete(q.tasks, id)
			purged++
		}
	}
	return purged, nil
}

// Stats counts tasks per status
func (q *Queue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	stats := &driven.QueueStats{}
	var oldest time.Time
	for _, task := range q.tasks {
		switch task.Status {
		case domain.TaskStatusPending:
			stats.PendingCount++
			if oldest.IsZero() || task.CreatedAt.Before(oldest) {
				oldest = task.CreatedAt
			}
		case domain.TaskStatusProcessing:
			stats.ProcessingCount++
		case domain.TaskStatusCompleted:
			stats.CompletedCount++
		case domain.TaskStatusFailed:
			stats.FailedCount++
		}
	}
	if !oldest.IsZero() {
		stats.OldestPendingAge = int64(time.Since(oldest).Seconds())
	}
	return stats, nil
}

// Ping always succeeds while the queue is open
func (q *Queue) Ping(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return fmt.Errorf("%w: queue closed", domain.ErrServiceUnavailable)
	}
	return nil
}

// Close wakes all waiters; later dequeues return nil, nil
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		q.wake()
	}
	return nil
}

func cloneTask(t *domain.Task) *domain.Task {
	c := *t
	if t.Payload != nil {
		c.Payload = make(map[string]string, len(t.Payload))
		for k, v := range t.Payload {
			c.Payload[k] = v
		}
	}
	return &c
}
