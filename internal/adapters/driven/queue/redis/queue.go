package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-scan/internal/core/domain"
	"github.com/custodia-labs/sercha-scan/internal/core/ports/driven"
)

const (
	// Stream names
	taskStream     = "sercha-scan:tasks"
	taskGroup      = "sercha-scan:workers"
	scheduledTasks = "sercha-scan:scheduled"

	// Key prefixes
	taskKeyPrefix = "sercha-scan:task:"
	msgKeySuffix  = ":msg"

	consumerPrefix = "worker-"

	// OCR of a large scan can take minutes; a message idle longer than this
	// is considered abandoned by a crashed worker
	defaultClaimTimeout = 10 * time.Minute
	defaultTaskTTL      = 24 * time.Hour
)

// Verify interface compliance
var _ driven.TaskQueue = (*Queue)(nil)

// Queue implements TaskQueue using Redis Streams.
// Task bodies live in plain keys; the stream only carries IDs so a consumer
// group can track delivery and abandoned messages can be reclaimed.
type Queue struct {
	client       *redis.Client
	consumerName string
	claimTimeout time.Duration
	taskTTL      time.Duration
	logger       *slog.Logger
}

// Config holds optional queue settings
type Config struct {
	// ConsumerName should be unique per worker process (e.g. hostname + PID)
	ConsumerName string
	ClaimTimeout time.Duration
	TaskTTL      time.Duration
	Logger       *slog.Logger
}

// NewQueue creates a new Redis-backed task queue and its consumer group
func NewQueue(ctx context.Context, client *redis.Client, cfg Config) (*Queue, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	q := &Queue{
		client:       client,
		consumerName: cfg.ConsumerName,
		claimTimeout: cfg.ClaimTimeout,
		taskTTL:      cfg.TaskTTL,
		logger:       cfg.Logger,
	}
	if q.consumerName == "" {
		q.consumerName = fmt.Sprintf("%s%d", consumerPrefix, time.Now().UnixNano())
	}
	if q.claimTimeout <= 0 {
		q.claimTimeout = defaultClaimTimeout
	}
	if q.taskTTL <= 0 {
		q.taskTTL = defaultTaskTTL
	}
	if q.logger == nil {
		q.logger = slog.Default()
	}
	q.logger = q.logger.With("queue", "redis", "consumer", q.consumerName)

	err := q.client.XGroupCreateMkStream(ctx, taskStream, taskGroup, "0").Err()
	if err != nil && !isGroupExistsError(err) {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}
	return q, nil
}

// Enqueue adds a task to the stream, or to the scheduled set if it is delayed
func (q *Queue) Enqueue(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return fmt.Errorf("%w: task is required", domain.ErrInvalidInput)
	}
	pipe := q.client.TxPipeline()
	if err := q.stage(ctx, pipe, task, time.Now()); err != nil {
		return err
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// EnqueueBatch adds multiple tasks in one MULTI/EXEC transaction
func (q *Queue) EnqueueBatch(ctx context.Context, tasks []*domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	pipe := q.client.TxPipeline()
	now := time.Now()
	for _, task := range tasks {
		if task == nil {
			continue
		}
		if err := q.stage(ctx, pipe, task, now); err != nil {
			return err
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to enqueue batch: %w", err)
	}
	return nil
}

func (q *Queue) stage(ctx context.Context, pipe redis.Pipeliner, task *domain.Task, now time.Time) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task %s: %w", task.ID, err)
	}
	pipe.Set(ctx, taskKeyPrefix+task.ID, data, q.taskTTL)
	if task.ScheduledFor.After(now) {
		pipe.ZAdd(ctx, scheduledTasks, redis.Z{
			Score:  float64(task.ScheduledFor.Unix()),
			Member: task.ID,
		})
		return nil
	}
	pipe.XAdd(ctx, streamArgs(task))
	return nil
}

func streamArgs(task *domain.Task) *redis.XAddArgs {
	return &redis.XAddArgs{
		Stream: taskStream,
		Values: map[string]interface{}{
			"task_id":  task.ID,
			"type":     string(task.Type),
			"document": task.DocumentName(),
			"priority": task.Priority,
		},
	}
}

// Dequeue blocks until a task is available or ctx is cancelled
func (q *Queue) Dequeue(ctx context.Context) (*domain.Task, error) {
	return q.DequeueWithTimeout(ctx, 0)
}

// DequeueWithTimeout waits up to timeout seconds (0 blocks indefinitely)
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	if err := q.promoteScheduledTasks(ctx); err != nil {
		q.logger.Warn("failed to promote scheduled tasks", "error", err)
	}

	task, err := q.claimAbandonedTask(ctx)
	if err != nil {
		q.logger.Debug("failed to claim abandoned tasks", "error", err)
	}
	if task != nil {
		return task, nil
	}

	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    taskGroup,
		Consumer: q.consumerName,
		Streams:  []string{taskStream, ">"},
		Count:    1,
		Block:    time.Duration(timeout) * time.Second,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || ctx.Err() != nil ||
			errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}
	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, nil
	}
	return q.take(ctx, streams[0].Messages[0])
}

// take marks the task behind msg as processing. Messages whose task body is
// gone, or whose task was cancelled meanwhile, are dropped.
func (q *Queue) take(ctx context.Context, msg redis.XMessage) (*domain.Task, error) {
	taskID, ok := msg.Values["task_id"].(string)
	if !ok {
		q.drop(ctx, msg.ID)
		return nil, nil
	}
	task, err := q.GetTask(ctx, taskID)
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrParse) {
		q.drop(ctx, msg.ID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if task.IsTerminal() {
		q.drop(ctx, msg.ID)
		return nil, nil
	}

	task.MarkProcessing()
	data, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task %s: %w", task.ID, err)
	}
	pipe := q.client.TxPipeline()
	pipe.Set(ctx, taskKeyPrefix+task.ID, data, q.taskTTL)
	pipe.Set(ctx, taskKeyPrefix+task.ID+msgKeySuffix, msg.ID, q.taskTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to mark task %s processing: %w", task.ID, err)
	}
	return task, nil
}

func (q *Queue) drop(ctx context.Context, msgID string) {
	pipe := q.client.Pipeline()
	pipe.XAck(ctx, taskStream, taskGroup, msgID)
	pipe.XDel(ctx, taskStream, msgID)
	if _, err := pipe.Exec(ctx); err != nil {
		q.logger.Warn("failed to drop stream message", "message_id", msgID, "error", err)
	}
}

// Ack marks a task completed and removes its stream message
func (q *Queue) Ack(ctx context.Context, taskID string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	msgID, err := q.client.Get(ctx, taskKeyPrefix+taskID+msgKeySuffix).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to get message ID: %w", err)
	}

	task.MarkCompleted()
	return q.settle(ctx, task, msgID, nil)
}

// Nack schedules a retry with backoff, or fails the task once attempts run out
func (q *Queue) Nack(ctx context.Context, taskID string, reason string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	msgID, err := q.client.Get(ctx, taskKeyPrefix+taskID+msgKeySuffix).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to get message ID: %w", err)
	}

	if !task.CanRetry() {
		task.MarkFailed(reason)
		return q.settle(ctx, task, msgID, nil)
	}
	task.Retry(reason)
	return q.settle(ctx, task, msgID, &redis.Z{
		Score:  float64(task.ScheduledFor.Unix()),
		Member: task.ID,
	})
}

// settle stores the task, removes its delivered message and optionally
// schedules it again
func (q *Queue) settle(ctx context.Context, task *domain.Task, msgID string, reschedule *redis.Z) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task %s: %w", task.ID, err)
	}
	pipe := q.client.TxPipeline()
	if msgID != "" {
		pipe.XAck(ctx, taskStream, taskGroup, msgID)
		pipe.XDel(ctx, taskStream, msgID)
	}
	pipe.Set(ctx, taskKeyPrefix+task.ID, data, q.taskTTL)
	if reschedule != nil {
		pipe.ZAdd(ctx, scheduledTasks, *reschedule)
	}
	pipe.Del(ctx, taskKeyPrefix+task.ID+msgKeySuffix)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to settle task %s: %w", task.ID, err)
	}
	return nil
}

// GetTask retrieves a task by ID. Returns domain.ErrNotFound for unknown or
// expired tasks.
func (q *Queue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	data, err := q.client.Get(ctx, taskKeyPrefix+taskID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: task %s", domain.ErrNotFound, taskID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	var task domain.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("%w: task %s: %w", domain.ErrParse, taskID, err)
	}
	return &task, nil
}

// ListTasks scans every stored task. Order is unspecified.
func (q *Queue) ListTasks(ctx context.Context, filter driven.TaskFilter) ([]*domain.Task, error) {
	var tasks []*domain.Task
	skipped := 0
	err := q.scanTasks(ctx, func(_ string, task *domain.Task) bool {
		if filter.Status != "" && task.Status != filter.Status {
			return true
		}
		if filter.Type != "" && task.Type != filter.Type {
			return true
		}
		if skipped < filter.Offset {
			skipped++
			return true
		}
		tasks = append(tasks, task)
		return filter.Limit <= 0 || len(tasks) < filter.Limit
	})
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []*domain.Task{}
	}
	return tasks, nil
}

// CancelTask cancels a task that has not started
func (q *Queue) CancelTask(ctx context.Context, taskID string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task.Status == domain.TaskStatusProcessing {
		return fmt.Errorf("%w: task %s is processing", domain.ErrInvalidInput, taskID)
	}
	if task.IsTerminal() {
		return fmt.Errorf("%w: task %s already %s", domain.ErrInvalidInput, taskID, task.Status)
	}

	task.MarkCancelled()
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task %s: %w", task.ID, err)
	}
	// a message already in the stream is dropped by take once it sees the
	// cancelled status
	pipe := q.client.TxPipeline()
	pipe.ZRem(ctx, scheduledTasks, taskID)
	pipe.Set(ctx, taskKeyPrefix+taskID, data, q.taskTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cancel task %s: %w", taskID, err)
	}
	return nil
}

// PurgeTasks removes terminal tasks last updated before now - olderThanSeconds
func (q *Queue) PurgeTasks(ctx context.Context, olderThanSeconds int) (int, error) {
	cutoff := time.Now().Add(-time.Duration(olderThanSeconds) * time.Second)
	var keys []string
	err := q.scanTasks(ctx, func(key string, task *domain.Task) bool {
		if task.IsTerminal() && task.UpdatedAt.Before(cutoff) {
			keys = append(keys, key)
		}
		return true
	})
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := q.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to purge tasks: %w", err)
	}
	return int(n), nil
}

// Stats returns queue statistics
func (q *Queue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	stats := &driven.QueueStats{}
	var oldest time.Time
	err := q.scanTasks(ctx, func(_ string, task *domain.Task) bool {
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
		return true
	})
	if err != nil {
		return nil, err
	}
	if !oldest.IsZero() {
		stats.OldestPendingAge = int64(time.Since(oldest).Seconds())
	}
	return stats, nil
}

// scanTasks calls fn for every decodable task until fn returns false
func (q *Queue) scanTasks(ctx context.Context, fn func(key string, task *domain.Task) bool) error {
	var cursor uint64
	for {
		keys, next, err := q.client.Scan(ctx, cursor, taskKeyPrefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan tasks: %w", err)
		}
		for _, key := range keys {
			if strings.HasSuffix(key, msgKeySuffix) {
				continue
			}
			data, err := q.client.Get(ctx, key).Bytes()
			if err != nil {
				continue
			}
			var task domain.Task
			if err := json.Unmarshal(data, &task); err != nil {
				continue
			}
			if !fn(key, &task) {
				return nil
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Ping checks if the queue backend is healthy
func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close is a no-op; the Redis client is shared and closed by its owner
func (q *Queue) Close() error {
	return nil
}

// promoteScheduledTasks moves due scheduled tasks to the stream
func (q *Queue) promoteScheduledTasks(ctx context.Context) error {
	due, err := q.client.ZRangeByScore(ctx, scheduledTasks, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", time.Now().Unix()),
	}).Result()
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}

	pipe := q.client.TxPipeline()
	for _, taskID := range due {
		pipe.ZRem(ctx, scheduledTasks, taskID)
		task, err := q.GetTask(ctx, taskID)
		if err != nil || task.Status != domain.TaskStatusPending {
			continue
		}
		pipe.XAdd(ctx, streamArgs(task))
	}
	_, err = pipe.Exec(ctx)
	return err
}

// claimAbandonedTask takes over a message another consumer read but never
// acknowledged within the claim timeout
func (q *Queue) claimAbandonedTask(ctx context.Context) (*domain.Task, error) {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: taskStream,
		Group:  taskGroup,
		Start:  "-",
		End:    "+",
		Count:  10,
		Idle:   q.claimTimeout,
	}).Result()
	if err != nil {
		return nil, err
	}

	for _, p := range pending {
		claimed, err := q.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   taskStream,
			Group:    taskGroup,
			Consumer: q.consumerName,
			MinIdle:  q.claimTimeout,
			Messages: []string{p.ID},
		}).Result()
		if err != nil || len(claimed) == 0 {
			continue
		}
		task, err := q.take(ctx, claimed[0])
		if err != nil {
			return nil, err
		}
		if task != nil {
			q.logger.Info("claimed abandoned task", "task_id", task.ID, "previous_consumer", p.Consumer)
			return task, nil
		}
	}
	return nil, nil
}

func isGroupExistsError(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}
