package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/benvon/smart-notes/internal/models"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

const defaultCORSMaxAge = 86400

// CORSConfigSource supplies the stored CORS settings.
type CORSConfigSource interface {
	Get(ctx context.Context) (*models.CorsConfig, error)
}

// CORSReloader applies rs/cors with settings loaded from the database and
// refreshed periodically. Until settings exist, the FRONTEND_URL fallback is used.
type CORSReloader struct {
	hotSwap
	repo     CORSConfigSource
	fallback string
	log      *zap.Logger
	interval time.Duration
	origins  []string
}

// NewCORSReloader creates a CORS reloader.
func NewCORSReloader(repo CORSConfigSource, frontendURLFallback string, log *zap.Logger, reloadInterval time.Duration) *CORSReloader {
	return &CORSReloader{
		repo:     repo,
		fallback: strings.TrimSpace(frontendURLFallback),
		log:      log,
		interval: reloadInterval,
	}
}

// Middleware wraps next and performs the initial load.
func (r *CORSReloader) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		r.mu.Lock()
		r.next = next
		r.mu.Unlock()
		r.load(context.Background())
		return r
	}
}

// Start reloads the settings until ctx is cancelled.
func (r *CORSReloader) Start(ctx context.Context) {
	reloadEvery(ctx, r.interval, r.load)
}

func (r *CORSReloader) load(ctx context.Context) {
	r.mu.RLock()
	next := r.next
	r.mu.RUnlock()
	if next == nil {
		return
	}
	opts := r.options(ctx)
	r.mu.Lock()
	r.origins = opts.AllowedOrigins
	r.mu.Unlock()
	r.swap(cors.New(opts).Handler(next))
}

// AllowsOrigin reports whether origin is currently allowed. The websocket
// handshake uses it, since browsers skip CORS preflight for upgrades.
func (r *CORSReloader) AllowsOrigin(origin string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, o := range r.origins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

func (r *CORSReloader) options(ctx context.Context) cors.Options {
	opts := cors.Options{
		AllowedOrigins:   models.SplitOrigins(r.fallback),
		AllowCredentials: true,
		MaxAge:           defaultCORSMaxAge,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPatch,
			http.MethodPut, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}

	cfg, err := r.repo.Get(ctx)
	switch {
	case err != nil:
		r.log.Warn("failed_to_load_cors_config_using_fallback", zap.Error(err))
	case cfg != nil:
		opts.AllowedOrigins = cfg.Origins()
		opts.AllowCredentials = cfg.AllowCredentials
		opts.MaxAge = cfg.MaxAge
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"http://localhost:3000"}
	}
	return opts
}
