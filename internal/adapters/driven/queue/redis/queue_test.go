package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-scan/internal/core/domain"
	"github.com/custodia-labs/sercha-scan/internal/core/ports/driven"
)

func setupTestQueue(t *testing.T) (*Queue, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	q, err := NewQueue(context.Background(), client, Config{ConsumerName: "test-worker"})
	require.NoError(t, err)
	return q, client
}

func TestNewQueue(t *testing.T) {
	_, err := NewQueue(context.Background(), nil, Config{})
	assert.Error(t, err)

	q, client := setupTestQueue(t)
	assert.Equal(t, "test-worker", q.consumerName)
	assert.Equal(t, defaultClaimTimeout, q.claimTimeout)

	// creating the group twice is fine
	_, err = NewQueue(context.Background(), client, Config{})
	assert.NoError(t, err)
}

func TestQueue_EnqueueDequeueAck(t *testing.T) {
	q, _ := setupTestQueue(t)
	ctx := context.Background()

	task := domain.NewOCRPageTask("letters", "p0")
	require.NoError(t, q.Enqueue(ctx, task))

	got, err := q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, domain.TaskTypeOCRPage, got.Type)
	assert.Equal(t, "letters", got.DocumentName())
	assert.Equal(t, "p0", got.PageName())
	assert.Equal(t, domain.TaskStatusProcessing, got.Status)
	assert.Equal(t, 1, got.Attempts)

	require.NoError(t, q.Ack(ctx, task.ID))

	stored, err := q.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, stored.Status)
	assert.NotNil(t, stored.CompletedAt)
}

func TestQueue_DequeueEmpty(t *testing.T) {
	q, _ := setupTestQueue(t)

	got, err := q.DequeueWithTimeout(context.Background(), 1)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestQueue_DequeueCancelled(t *testing.T) {
	q, _ := setupTestQueue(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	got, err := q.Dequeue(ctx)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestQueue_EnqueueBatch(t *testing.T) {
	q, _ := setupTestQueue(t)
	ctx := context.Background()

	tasks := []*domain.Task{
		domain.NewOCRPageTask("letters", "p0"),
		nil,
		domain.NewOCRPageTask("letters", "p1"),
	}
	require.NoError(t, q.EnqueueBatch(ctx, tasks))
	require.NoError(t, q.EnqueueBatch(ctx, nil))

	var seen []string
	for i := 0; i < 2; i++ {
		got, err := q.DequeueWithTimeout(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, got)
		seen = append(seen, got.PageName())
	}
	assert.Equal(t, []string{"p0", "p1"}, seen)
}

func TestQueue_NackRetries(t *testing.T) {
	q, client := setupTestQueue(t)
	ctx := context.Background()

	task := domain.NewOCRPageTask("letters", "p0")
	require.NoError(t, q.Enqueue(ctx, task))
	_, err := q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, q.Nack(ctx, task.ID, "tesseract crashed"))

	stored, err := q.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, stored.Status)
	assert.Equal(t, "tesseract crashed", stored.Error)
	assert.True(t, stored.ScheduledFor.After(time.Now()))

	score, err := client.ZScore(ctx, scheduledTasks, task.ID).Result()
	require.NoError(t, err)
	assert.Equal(t, float64(stored.ScheduledFor.Unix()), score)

	// not due yet
	got, err := q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)

	// make it due
	require.NoError(t, client.ZAdd(ctx, scheduledTasks, redis.Z{Score: 0, Member: task.ID}).Err())
	got, err = q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.Attempts)
}

func TestQueue_NackExhausted(t *testing.T) {
	q, client := setupTestQueue(t)
	ctx := context.Background()

	task := domain.NewExportTask("letters", "/out/letters.pdf")
	require.NoError(t, q.Enqueue(ctx, task))
	_, err := q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, q.Nack(ctx, task.ID, "script failed"))

	stored, err := q.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, stored.Status)
	assert.Equal(t, "script failed", stored.Error)

	n, err := client.ZCard(ctx, scheduledTasks).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQueue_UnknownTask(t *testing.T) {
	q, _ := setupTestQueue(t)
	ctx := context.Background()

	_, err := q.GetTask(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, q.Ack(ctx, "missing"), domain.ErrNotFound)
	assert.ErrorIs(t, q.Nack(ctx, "missing", "x"), domain.ErrNotFound)
	assert.ErrorIs(t, q.CancelTask(ctx, "missing"), domain.ErrNotFound)
}

func TestQueue_CancelTask(t *testing.T) {
	q, _ := setupTestQueue(t)
	ctx := context.Background()

	queued := domain.NewOCRPageTask("letters", "p0")
	delayed := domain.NewOCRPageTask("letters", "p1")
	delayed.ScheduledFor = time.Now().Add(time.Hour)
	require.NoError(t, q.Enqueue(ctx, queued))
	require.NoError(t, q.Enqueue(ctx, delayed))

	require.NoError(t, q.CancelTask(ctx, queued.ID))
	require.NoError(t, q.CancelTask(ctx, delayed.ID))

	stored, err := q.GetTask(ctx, queued.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCancelled, stored.Status)

	// the stream message of a cancelled task is skipped
	got, err := q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.ErrorIs(t, q.CancelTask(ctx, queued.ID), domain.ErrInvalidInput)
}

func TestQueue_CancelProcessing(t *testing.T) {
	q, _ := setupTestQueue(t)
	ctx := context.Background()

	task := domain.NewOCRPageTask("letters", "p0")
	require.NoError(t, q.Enqueue(ctx, task))
	_, err := q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)

	assert.ErrorIs(t, q.CancelTask(ctx, task.ID), domain.ErrInvalidInput)
}

func TestQueue_ListTasksAndStats(t *testing.T) {
	q, _ := setupTestQueue(t)
	ctx := context.Background()

	ocr := domain.NewOCRPageTask("letters", "p0")
	export := domain.NewExportTask("letters", "/out/letters.pdf")
	pending := domain.NewOCRPageTask("bills", "p0")
	for _, task := range []*domain.Task{ocr, export, pending} {
		require.NoError(t, q.Enqueue(ctx, task))
	}

	first, err := q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, q.Ack(ctx, first.ID))
	second, err := q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, second)

	all, err := q.ListTasks(ctx, driven.TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	exports, err := q.ListTasks(ctx, driven.TaskFilter{Type: domain.TaskTypeExportPDF})
	require.NoError(t, err)
	require.Len(t, exports, 1)
	assert.Equal(t, export.ID, exports[0].ID)

	limited, err := q.ListTasks(ctx, driven.TaskFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	none, err := q.ListTasks(ctx, driven.TaskFilter{Offset: 5})
	require.NoError(t, err)
	assert.Empty(t, none)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.PendingCount)
	assert.Equal(t, int64(1), stats.ProcessingCount)
	assert.Equal(t, int64(1), stats.CompletedCount)
	assert.Zero(t, stats.FailedCount)
}

func TestQueue_PurgeTasks(t *testing.T) {
	q, _ := setupTestQueue(t)
	ctx := context.Background()

	task := domain.NewOCRPageTask("letters", "p0")
	require.NoError(t, q.Enqueue(ctx, task))
	_, err := q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, q.Ack(ctx, task.ID))
	open := domain.NewOCRPageTask("letters", "p1")
	require.NoError(t, q.Enqueue(ctx, open))

	n, err := q.PurgeTasks(ctx, 3600)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = q.PurgeTasks(ctx, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = q.GetTask(ctx, task.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = q.GetTask(ctx, open.ID)
	assert.NoError(t, err)
}

func TestQueue_Ping(t *testing.T) {
	q, _ := setupTestQueue(t)
	assert.NoError(t, q.Ping(context.Background()))
	assert.NoError(t, q.Close())
}
