package queue

import (
	"context"
	"time"
)

// Delivery is one received job awaiting acknowledgement.
type Delivery interface {
	Job() *Job
	Ack() error
	// Nack rejects the delivery. Without requeue it is dead-lettered.
	Nack(requeue bool) error
}

// JobQueue is the interface for job queues
type JobQueue interface {
	// Enqueue publishes job. A NotBefore in the future delays delivery.
	Enqueue(ctx context.Context, job *Job) error

	// Consume streams deliveries until ctx is cancelled or the connection is
	// lost, in which case an error is sent on the error channel. prefetch
	// bounds how many unacknowledged deliveries the consumer holds.
	Consume(ctx context.Context, prefetch int) (<-chan Delivery, <-chan error, error)

	Close() error

	// HealthCheck verifies the queue connection is healthy
	HealthCheck(ctx context.Context) error
}

// DLQPurger removes dead-lettered jobs older than retention and reports how many it dropped.
type DLQPurger interface {
	PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error)
}
