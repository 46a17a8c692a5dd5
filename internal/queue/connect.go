package queue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultMemoryQueueSize bounds the ready jobs held by a local queue.
	DefaultMemoryQueueSize = 256

	connectAttempts     = 10
	connectInitialDelay = 2 * time.Second
	connectMaxDelay     = 30 * time.Second
)

// ConnectDelay is the wait before retry attempt n (zero-based) when the
// broker is not reachable yet.
func ConnectDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 5 {
		return connectMaxDelay
	}
	return min(connectInitialDelay<<uint(attempt), connectMaxDelay)
}

// Connect returns a RabbitMQ queue for amqpURL, retrying with backoff while
// the broker starts up. An empty URL selects an in-process MemoryQueue.
func Connect(ctx context.Context, amqpURL string, log *zap.Logger) (JobQueue, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if amqpURL == "" {
		log.Info("using_in_memory_job_queue", zap.Int("size", DefaultMemoryQueueSize))
		return NewMemoryQueue(DefaultMemoryQueueSize), nil
	}

	var lastErr error
	for attempt := 0; attempt < connectAttempts; attempt++ {
		q, err := NewRabbitMQQueue(amqpURL, log)
		if err == nil {
			log.Info("connected_to_rabbitmq", zap.Int("attempt", attempt+1))
			return q, nil
		}
		lastErr = err

		delay := ConnectDelay(attempt)
		log.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", connectAttempts),
			zap.Duration("retry_delay", delay),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", connectAttempts, lastErr)
}
