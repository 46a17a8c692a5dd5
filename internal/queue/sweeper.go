package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Dead letters are kept for a day and swept hourly unless overridden.
const (
	DefaultDLQRetention = 24 * time.Hour
	DefaultSweepEvery   = time.Hour

	sweepTimeout = 2 * time.Minute
)

// DeadLetterSweeper periodically drops dead letters past their retention so
// a failing job type cannot grow the DLQ without bound.
type DeadLetterSweeper struct {
	purger    DLQPurger
	every     time.Duration
	retention time.Duration
	log       *zap.Logger
}

// SweeperOption tunes a DeadLetterSweeper.
type SweeperOption func(*DeadLetterSweeper)

// WithSweepEvery sets the pause between sweeps.
func WithSweepEvery(d time.Duration) SweeperOption {
	return func(s *DeadLetterSweeper) {
		if d > 0 {
			s.every = d
		}
	}
}

// WithRetention sets how old a dead letter must be before it is dropped.
func WithRetention(d time.Duration) SweeperOption {
	return func(s *DeadLetterSweeper) {
		if d > 0 {
			s.retention = d
		}
	}
}

// NewDeadLetterSweeper builds a sweeper over purger.
func NewDeadLetterSweeper(purger DLQPurger, log *zap.Logger, opts ...SweeperOption) *DeadLetterSweeper {
	if log == nil {
		log = zap.NewNop()
	}
	s := &DeadLetterSweeper{
		purger:    purger,
		every:     DefaultSweepEvery,
		retention: DefaultDLQRetention,
		log:       log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run sweeps once immediately and then on every tick until ctx ends.
func (s *DeadLetterSweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.every)
	defer ticker.Stop()
	for {
		if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn("dlq_sweep_failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Sweep performs a single purge and reports how many dead letters went.
func (s *DeadLetterSweeper) Sweep(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()
	n, err := s.purger.PurgeOlderThan(ctx, s.retention)
	if err != nil {
		return n, fmt.Errorf("purge dead letters: %w", err)
	}
	if n > 0 {
		s.log.Info("dlq_swept", zap.Int("purged", n), zap.Duration("retention", s.retention))
	}
	return n, nil
}

// StartSweeper launches a sweeper in the background when q keeps a DLQ it
// can purge. It reports whether one was started.
func StartSweeper(ctx context.Context, q JobQueue, log *zap.Logger, opts ...SweeperOption) bool {
	purger, ok := q.(DLQPurger)
	if !ok {
		return false
	}
	sweeper := NewDeadLetterSweeper(purger, log, opts...)
	go func() {
		if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			sweeper.log.Error("dlq_sweeper_stopped", zap.Error(err))
		}
	}()
	return true
}
