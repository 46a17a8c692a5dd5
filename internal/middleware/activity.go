package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/benvon/smart-notes/internal/request"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultActivityInterval is the minimum gap between last_active_at writes per user.
const DefaultActivityInterval = 5 * time.Minute

// ActivityStore records user activity.
type ActivityStore interface {
	TouchLastActive(ctx context.Context, id uuid.UUID, at time.Time) error
}

// ActivityTracker stamps users' last_active_at, at most once per interval
// per user so busy clients do not turn every read into a write.
type ActivityTracker struct {
	store    ActivityStore
	log      *zap.Logger
	interval time.Duration
	now      func() time.Time

	mu   sync.Mutex
	seen map[uuid.UUID]time.Time
}

// NewActivityTracker creates an activity tracker.
func NewActivityTracker(store ActivityStore, log *zap.Logger, interval time.Duration) *ActivityTracker {
	if interval <= 0 {
		interval = DefaultActivityInterval
	}
	return &ActivityTracker{
		store:    store,
		log:      log,
		interval: interval,
		now:      time.Now,
		seen:     make(map[uuid.UUID]time.Time),
	}
}

// Middleware records activity for authenticated requests. It must run after Auth.
func (t *ActivityTracker) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := request.UserFromContext(r); user != nil {
			t.touch(r.Context(), user.ID)
		}
		next.ServeHTTP(w, r)
	})
}

func (t *ActivityTracker) touch(ctx context.Context, userID uuid.UUID) {
	now := t.now()
	t.mu.Lock()
	last, ok := t.seen[userID]
	if ok && now.Sub(last) < t.interval {
		t.mu.Unlock()
		return
	}
	t.seen[userID] = now
	t.mu.Unlock()

	if err := t.store.TouchLastActive(ctx, userID, now); err != nil {
		t.log.Warn("failed_to_record_user_activity",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}
}
