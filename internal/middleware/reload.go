package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// hotSwap serves through a handler that a background loop can replace.
type hotSwap struct {
	mu      sync.RWMutex
	next    http.Handler
	current http.Handler
}

func (h *hotSwap) swap(handler http.Handler) {
	h.mu.Lock()
	h.current = handler
	h.mu.Unlock()
}

func (h *hotSwap) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	current, next := h.current, h.next
	h.mu.RUnlock()
	switch {
	case current != nil:
		current.ServeHTTP(w, r)
	case next != nil:
		next.ServeHTTP(w, r)
	default:
		http.NotFound(w, r)
	}
}

// reloadEvery calls load on every tick until ctx is cancelled. A non-positive
// interval disables reloading.
func reloadEvery(ctx context.Context, interval time.Duration, load func(context.Context)) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			load(ctx)
		}
	}
}
