package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benvon/smart-notes/internal/database"
	"github.com/benvon/smart-notes/internal/models"
	"github.com/benvon/smart-notes/internal/queue"
	"github.com/benvon/smart-notes/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type taintFunc func(ctx context.Context, userID uuid.UUID) (bool, error)

func (f taintFunc) MarkTainted(ctx context.Context, userID uuid.UUID) (bool, error) {
	return f(ctx, userID)
}

func TestTagChangeHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		flipped      bool
		markErr      error
		enqueueErr   error
		wantErr      bool
		wantEnqueued int
	}{
		{name: "first change enqueues", flipped: true, wantEnqueued: 1},
		{name: "already tainted is debounced", flipped: false},
		{name: "mark failure", markErr: errors.New("db down"), wantErr: true},
		{name: "enqueue failure", flipped: true, enqueueErr: errors.New("broker down"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			q := &recordingQueue{err: tt.enqueueErr}
			marker := taintFunc(func(context.Context, uuid.UUID) (bool, error) { return tt.flipped, tt.markErr })
			handler := NewTagChangeHandler(marker, q, 5*time.Second, nil)

			userID := uuid.New()
			err := handler(context.Background(), userID)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			require.Len(t, q.enqueued, tt.wantEnqueued)
			if tt.wantEnqueued > 0 {
				job := q.enqueued[0]
				assert.Equal(t, queue.JobTypeTagStatistics, job.Type)
				assert.Equal(t, userID, job.UserID)
				assert.Greater(t, job.Wait(time.Now()), time.Duration(0), "job is delayed by the debounce")
			}
		})
	}
}

// Repository writes flow through the handler into the queue and back out
// through the analyzer.
func TestTagChangeHandler_EndToEnd(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db)
	ctx := context.Background()

	q := queue.NewMemoryQueue(8)
	t.Cleanup(func() { _ = q.Close() })
	statsRepo := database.NewTagStatisticsRepository(db)
	notes := database.NewNoteRepository(db)
	tasks := database.NewTaskRepository(db)
	notes.SetTagChangeHandler(NewTagChangeHandler(statsRepo, q, 10*time.Millisecond, nil))

	w := NewWorker(q, nil)
	NewTagAnalyzer(notes, tasks, statsRepo, nil).Register(w)
	runCtx, cancel := context.WithCancel(ctx)
	t.Cleanup(cancel)
	go func() { _ = w.Run(runCtx, 1) }()

	require.NoError(t, notes.Create(ctx, &models.Note{UserID: user.ID, Content: "one"}, []string{"focus"}))
	require.NoError(t, notes.Create(ctx, &models.Note{UserID: user.ID, Content: "two"}, []string{"focus"}))

	require.Eventually(t, func() bool {
		stats, err := statsRepo.GetByUserID(ctx, user.ID)
		return err == nil && !stats.Tainted && stats.Usage["focus"].Notes == 2
	}, 3*time.Second, 10*time.Millisecond)
}
