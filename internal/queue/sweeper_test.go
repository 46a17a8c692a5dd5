package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type purgerFunc func(ctx context.Context, retention time.Duration) (int, error)

func (f purgerFunc) PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error) {
	return f(ctx, retention)
}

func TestDeadLetterSweeper_Sweep(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		purger    purgerFunc
		wantN     int
		wantErr   bool
		wantSwept int
	}{
		{
			name:   "nothing to purge stays quiet",
			purger: func(context.Context, time.Duration) (int, error) { return 0, nil },
		},
		{
			name: "purged messages are logged",
			purger: func(_ context.Context, retention time.Duration) (int, error) {
				if retention != 2*time.Hour {
					return 0, errors.New("unexpected retention")
				}
				return 3, nil
			},
			wantN:     3,
			wantSwept: 1,
		},
		{
			name:    "purge error",
			purger:  func(context.Context, time.Duration) (int, error) { return 0, errors.New("broker gone") },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zapcore.InfoLevel)
			s := NewDeadLetterSweeper(tt.purger, zap.New(core), WithRetention(2*time.Hour))

			n, err := s.Sweep(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Sweep() error = %v, wantErr %v", err, tt.wantErr)
			}
			if n != tt.wantN {
				t.Errorf("Sweep() = %d, want %d", n, tt.wantN)
			}
			if got := logs.FilterMessage("dlq_swept").Len(); got != tt.wantSwept {
				t.Errorf("dlq_swept logged %d times, want %d", got, tt.wantSwept)
			}
		})
	}
}

func TestDeadLetterSweeper_RunSweepsImmediatelyAndStops(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	s := NewDeadLetterSweeper(purgerFunc(func(context.Context, time.Duration) (int, error) {
		calls.Add(1)
		cancel()
		return 0, nil
	}), nil, WithSweepEvery(24*time.Hour))

	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected one sweep before stopping, got %d", calls.Load())
	}
}

func TestDeadLetterSweeper_PurgesMemoryDeadLetters(t *testing.T) {
	t.Parallel()

	q := NewMemoryQueue(4)
	t.Cleanup(func() { _ = q.Close() })
	clock := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return clock }

	old := NewJob(JobTypeTagStatistics, uuid.New())
	q.deadLetter(old)
	clock = clock.Add(25 * time.Hour)
	fresh := NewJob(JobTypeTagStatistics, uuid.New())
	q.deadLetter(fresh)

	n, err := NewDeadLetterSweeper(q, nil).Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	left := q.DeadLetters()
	if n != 1 || len(left) != 1 || left[0].ID != fresh.ID {
		t.Errorf("expected only the fresh dead letter to remain, purged %d, left %d", n, len(left))
	}
}

func TestStartSweeper(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewMemoryQueue(1)
	t.Cleanup(func() { _ = q.Close() })
	if !StartSweeper(ctx, q, nil) {
		t.Error("memory queue keeps a purgeable DLQ")
	}
	if StartSweeper(ctx, struct{ JobQueue }{q}, nil) {
		t.Error("a queue without PurgeOlderThan should not get a sweeper")
	}
}
