// Package workers runs background jobs taken from the job queue.
package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	logpkg "github.com/benvon/smart-notes/internal/logger"
	"github.com/benvon/smart-notes/internal/queue"
	"github.com/benvon/smart-notes/internal/telemetry"
	"go.uber.org/zap"
)

// JobProcessor handles one job. A returned error triggers a retry.
type JobProcessor func(ctx context.Context, job *queue.Job) error

// ErrUnknownJobType is returned for jobs no processor is registered for.
var ErrUnknownJobType = errors.New("unknown job type")

// Worker dispatches queued jobs to the processor registered for their type.
// Failed jobs are re-enqueued with backoff until their retries run out,
// then dead-lettered.
type Worker struct {
	queue    queue.JobQueue
	logger   *zap.Logger
	registry map[queue.JobType]JobProcessor
	now      func() time.Time
}

// NewWorker creates a worker that re-enqueues failed jobs on q.
func NewWorker(q queue.JobQueue, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:    q,
		logger:   logger,
		registry: make(map[queue.JobType]JobProcessor),
		now:      time.Now,
	}
}

// RegisterProcessor registers a processor for a job type.
func (w *Worker) RegisterProcessor(typ queue.JobType, proc JobProcessor) {
	w.registry[typ] = proc
}

// ProcessJob runs the delivery's job and settles the delivery.
func (w *Worker) ProcessJob(ctx context.Context, d queue.Delivery) error {
	job := d.Job()
	jobID := job.ID.String()

	proc, ok := w.registry[job.Type]
	if !ok {
		if err := d.Nack(false); err != nil {
			w.logger.Error("failed_to_nack_unknown_job_type",
				zap.String("job_id", jobID),
				zap.String("error", logpkg.SanitizeError(err)),
			)
		}
		return fmt.Errorf("%w: %s", ErrUnknownJobType, logpkg.SanitizeString(string(job.Type), 64))
	}

	spanCtx, span := telemetry.StartJobSpan(ctx, string(job.Type), job.ID.String())
	err := proc(spanCtx, job)
	telemetry.EndSpan(span, err)
	if err == nil {
		if ackErr := d.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil
	}

	w.logger.Error("job_failed",
		zap.String("job_id", jobID),
		zap.String("job_type", string(job.Type)),
		zap.Int("retry_count", job.RetryCount),
		zap.String("error", logpkg.SanitizeError(err)),
	)
	w.retry(ctx, d)
	return fmt.Errorf("job %s failed: %w", jobID, err)
}

// retry re-enqueues a copy of the failed job with backoff, or dead-letters it.
func (w *Worker) retry(ctx context.Context, d queue.Delivery) {
	job := *d.Job()
	if job.CanRetry() && w.queue != nil {
		job.IncrementRetry()
		job.Delay(w.now(), queue.RetryBackoff(job.RetryCount))
		err := w.queue.Enqueue(ctx, &job)
		if err == nil {
			_ = d.Ack()
			return
		}
		w.logger.Warn("job_retry_enqueue_failed",
			zap.String("job_id", job.ID.String()),
			zap.String("error", logpkg.SanitizeError(err)),
		)
	}
	if err := d.Nack(false); err != nil {
		w.logger.Warn("failed_to_nack_job",
			zap.String("job_id", job.ID.String()),
			zap.String("error", logpkg.SanitizeError(err)),
		)
	}
}

// Run consumes q until ctx is cancelled or the delivery stream ends.
func (w *Worker) Run(ctx context.Context, prefetch int) error {
	deliveries, errs, err := w.queue.Consume(ctx, prefetch)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	w.logger.Info("worker_started", zap.Int("prefetch", prefetch))

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if ok && err != nil {
				w.logger.Error("queue_error", zap.Error(err))
				return err
			}
			errs = nil
		case d, ok := <-deliveries:
			if !ok {
				w.logger.Info("delivery_stream_closed")
				return nil
			}
			// Failures are logged and retried inside ProcessJob.
			_ = w.ProcessJob(ctx, d)
		}
	}
}
