package queue

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan Delivery, within time.Duration) Delivery {
	t.Helper()
	select {
	case d, ok := <-ch:
		require.True(t, ok, "delivery channel closed")
		return d
	case <-time.After(within):
		t.Fatal("no delivery")
		return nil
	}
}

func TestMemoryQueue_EnqueueConsume(t *testing.T) {
	t.Parallel()
	q := NewMemoryQueue(8)
	t.Cleanup(func() { _ = q.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	deliveries, _, err := q.Consume(ctx, 1)
	require.NoError(t, err)

	job := NewJob(JobTypeTagStatistics, uuid.New())
	require.NoError(t, q.Enqueue(ctx, job))

	d := receive(t, deliveries, time.Second)
	assert.Equal(t, job.ID, d.Job().ID)
	require.NoError(t, d.Ack())
}

func TestMemoryQueue_DelayedJob(t *testing.T) {
	t.Parallel()
	q := NewMemoryQueue(8)
	t.Cleanup(func() { _ = q.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	deliveries, _, err := q.Consume(ctx, 1)
	require.NoError(t, err)

	start := time.Now()
	job := NewJob(JobTypeTagStatistics, uuid.New()).Delay(start, 50*time.Millisecond)
	require.NoError(t, q.Enqueue(ctx, job))

	d := receive(t, deliveries, 2*time.Second)
	assert.Equal(t, job.ID, d.Job().ID)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestMemoryQueue_NackRoutes(t *testing.T) {
	t.Parallel()
	q := NewMemoryQueue(8)
	t.Cleanup(func() { _ = q.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	deliveries, _, err := q.Consume(ctx, 1)
	require.NoError(t, err)

	job := NewJob(JobTypeTagStatistics, uuid.New())
	require.NoError(t, q.Enqueue(ctx, job))

	d := receive(t, deliveries, time.Second)
	require.NoError(t, d.Nack(true))
	d = receive(t, deliveries, time.Second)
	assert.Equal(t, job.ID, d.Job().ID, "requeued job is delivered again")

	require.NoError(t, d.Nack(false))
	dead := q.DeadLetters()
	require.Len(t, dead, 1)
	assert.Equal(t, job.ID, dead[0].ID)
}

func TestMemoryQueue_ExpiredJobsAreDeadLettered(t *testing.T) {
	t.Parallel()
	q := NewMemoryQueue(8)
	t.Cleanup(func() { _ = q.Close() })

	past := time.Now().Add(-time.Minute)
	job := NewJob(JobTypeTagStatistics, uuid.New())
	job.NotAfter = &past
	require.NoError(t, q.Enqueue(context.Background(), job))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, _, err := q.Consume(ctx, 1)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(q.DeadLetters()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestMemoryQueue_Close(t *testing.T) {
	t.Parallel()
	q := NewMemoryQueue(1)

	deliveries, _, err := q.Consume(context.Background(), 1)
	require.NoError(t, err)
	require.NoError(t, q.HealthCheck(context.Background()))

	require.NoError(t, q.Enqueue(context.Background(), NewJob(JobTypeTagStatistics, uuid.New()).Delay(time.Now(), time.Hour)))
	require.NoError(t, q.Close())
	require.NoError(t, q.Close(), "close is idempotent")

	_, ok := <-deliveries
	assert.False(t, ok, "consume stream ends on close")
	assert.ErrorIs(t, q.Enqueue(context.Background(), NewJob(JobTypeTagStatistics, uuid.New())), ErrQueueClosed)
	assert.ErrorIs(t, q.HealthCheck(context.Background()), ErrQueueClosed)
}
