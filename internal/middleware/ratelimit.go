package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/benvon/smart-notes/internal/models"
	"github.com/benvon/smart-notes/internal/request"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"
)

// DefaultRate is used until a rate has been stored.
const DefaultRate = "5-S"

// RedisClient owns the shared Redis connection used by the rate limiter and
// the health check.
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient connects to redisURL and verifies the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*RedisClient, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisClient{client: client}, nil
}

// Client exposes the underlying go-redis client.
func (r *RedisClient) Client() *redis.Client { return r.client }

// Ping checks that Redis is reachable.
func (r *RedisClient) Ping(ctx context.Context) error { return r.client.Ping(ctx).Err() }

// Close closes the connection.
func (r *RedisClient) Close() error { return r.client.Close() }

// NewLimiterStore returns a Redis-backed limiter store, or an in-process one
// when client is nil (single-instance local mode).
func NewLimiterStore(client *RedisClient) (limiter.Store, error) {
	if client == nil {
		return memory.NewStore(), nil
	}
	return redisstore.NewStoreWithOptions(client.client, limiter.StoreOptions{Prefix: "smart_notes_ratelimit"})
}

// RateConfigSource reads and seeds the stored rate.
type RateConfigSource interface {
	Get(ctx context.Context) (*models.RatelimitConfig, error)
	Set(ctx context.Context, c *models.RatelimitConfig) error
}

// RateLimitReloader applies ulule/limiter keyed by client IP, with the rate
// loaded from the database and refreshed periodically.
type RateLimitReloader struct {
	hotSwap
	store       limiter.Store
	repo        RateConfigSource
	defaultRate string
	log         *zap.Logger
	interval    time.Duration
}

// NewRateLimitReloader creates a rate limit reloader over store.
func NewRateLimitReloader(store limiter.Store, repo RateConfigSource, defaultRate string, log *zap.Logger, reloadInterval time.Duration) *RateLimitReloader {
	if defaultRate == "" {
		defaultRate = DefaultRate
	}
	return &RateLimitReloader{
		store:       store,
		repo:        repo,
		defaultRate: defaultRate,
		log:         log,
		interval:    reloadInterval,
	}
}

// Middleware wraps next and performs the initial load.
func (r *RateLimitReloader) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		r.mu.Lock()
		r.next = next
		r.mu.Unlock()
		r.load(context.Background())
		return r
	}
}

// Start reloads the rate until ctx is cancelled.
func (r *RateLimitReloader) Start(ctx context.Context) {
	reloadEvery(ctx, r.interval, r.load)
}

func (r *RateLimitReloader) load(ctx context.Context) {
	r.mu.RLock()
	next := r.next
	r.mu.RUnlock()
	if next == nil {
		return
	}

	rate, err := limiter.NewRateFromFormatted(r.currentRate(ctx))
	if err != nil {
		r.log.Error("failed_to_parse_rate_limit_using_default", zap.Error(err))
		if rate, err = limiter.NewRateFromFormatted(r.defaultRate); err != nil {
			r.log.Error("failed_to_parse_default_rate_limit", zap.Error(err), zap.String("default_rate", r.defaultRate))
			return
		}
	}

	mw := stdlibmw.NewMiddleware(limiter.New(r.store, rate),
		stdlibmw.WithKeyGetter(request.ClientIP),
		stdlibmw.WithLimitReachedHandler(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		}),
	)
	r.swap(mw.Handler(next))
}

// currentRate returns the stored rate, seeding the default when none exists.
func (r *RateLimitReloader) currentRate(ctx context.Context) string {
	cfg, err := r.repo.Get(ctx)
	if err != nil {
		r.log.Warn("failed_to_load_ratelimit_config_using_default",
			zap.Error(err),
			zap.String("default_rate", r.defaultRate),
		)
		return r.defaultRate
	}
	if cfg != nil && cfg.Rate != "" {
		return cfg.Rate
	}
	if err := r.repo.Set(ctx, &models.RatelimitConfig{Rate: r.defaultRate}); err != nil {
		r.log.Error("failed_to_save_default_ratelimit_config", zap.Error(err))
	}
	return r.defaultRate
}
