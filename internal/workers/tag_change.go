package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/benvon/smart-notes/internal/database"
	"github.com/benvon/smart-notes/internal/queue"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TaintMarker flags a user's tag statistics as stale.
type TaintMarker interface {
	MarkTainted(ctx context.Context, userID uuid.UUID) (bool, error)
}

// NewTagChangeHandler returns the callback note and task repositories fire
// when a user's tags change. It marks the statistics tainted and, only when
// that flips the flag, enqueues one analysis delayed by debounce; further
// changes inside the window ride on the same job.
func NewTagChangeHandler(stats TaintMarker, q queue.JobQueue, debounce time.Duration, logger *zap.Logger) database.TagChangeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, userID uuid.UUID) error {
		flipped, err := stats.MarkTainted(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to mark tag statistics tainted: %w", err)
		}
		if !flipped {
			return nil
		}
		job := queue.NewJob(queue.JobTypeTagStatistics, userID).Delay(time.Now(), debounce)
		if err := q.Enqueue(ctx, job); err != nil {
			return fmt.Errorf("failed to enqueue tag statistics job: %w", err)
		}
		logger.Debug("tag_statistics_job_enqueued",
			zap.String("user_id", userID.String()),
			zap.Duration("debounce", debounce),
		)
		return nil
	}
}
