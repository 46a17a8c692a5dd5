package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/mitchellh/hashstructure/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultMaxAge is how long a cached read stays fresh.
const DefaultMaxAge = 30 * time.Second

// DefaultFetchTimeout bounds a shared fetch once it no longer follows the
// context of the caller that started it.
const DefaultFetchTimeout = 15 * time.Second

// cacheKey is hashed to address a cache entry.
type cacheKey struct {
	Endpoint string
	Params   map[string][]string
}

// Key returns the content address of endpoint plus params. Parameter order
// does not affect the key.
func Key(endpoint string, params url.Values) (uint64, error) {
	k := cacheKey{Endpoint: endpoint, Params: map[string][]string(params)}
	h, err := hashstructure.Hash(k, hashstructure.FormatV2, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to hash cache key: %w", err)
	}
	return h, nil
}

type cacheEntry struct {
	endpoint  string
	value     any
	fetchedAt time.Time
}

// Cache holds decoded read results keyed by a hash of endpoint and query
// parameters. An entry is fresh for maxAge. Reads of stale or missing
// entries fetch synchronously, and concurrent fetches of one key share a
// single request.
type Cache struct {
	maxAge       time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	group        singleflight.Group

	mu      sync.Mutex
	entries map[uint64]cacheEntry
	// generation advances on every invalidation so a fetch that started
	// before it does not store a stale result.
	generation uint64
}

// NewCache creates a cache whose entries stay fresh for maxAge. A
// non-positive maxAge uses DefaultMaxAge.
func NewCache(maxAge time.Duration) *Cache {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Cache{
		maxAge:       maxAge,
		fetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
		entries:      make(map[uint64]cacheEntry),
	}
}

// SetFetchTimeout bounds every shared fetch. A non-positive d keeps the
// current bound.
func (c *Cache) SetFetchTimeout(d time.Duration) {
	if d > 0 {
		c.fetchTimeout = d
	}
}

// MaxAge returns how long entries stay fresh.
func (c *Cache) MaxAge() time.Duration { return c.maxAge }

// Invalidate drops every entry cached for the given endpoints, whatever
// their query parameters.
func (c *Cache) Invalidate(endpoints ...string) {
	if len(endpoints) == 0 {
		return
	}
	drop := make(map[string]struct{}, len(endpoints))
	for _, e := range endpoints {
		drop[e] = struct{}{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	for k, e := range c.entries {
		if _, ok := drop[e.endpoint]; ok {
			delete(c.entries, k)
		}
	}
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.entries = make(map[uint64]cacheEntry)
}

// Len reports how many entries are cached, fresh or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) lookup(key uint64) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.fetchedAt) >= c.maxAge {
		return nil, false
	}
	return e.value, true
}

// Fetch returns the cached value for endpoint and params if fresh,
// otherwise it calls fetch and caches the result. Errors are not cached.
// Concurrent callers share one fetch, which runs detached from any single
// caller's cancellation; a caller whose ctx ends stops waiting on its own.
func Fetch[T any](ctx context.Context, c *Cache, endpoint string, params url.Values, fetch func(context.Context) (T, error)) (T, error) {
	return load(ctx, c, endpoint, params, false, fetch)
}

// Refresh calls fetch regardless of freshness and caches the result.
func Refresh[T any](ctx context.Context, c *Cache, endpoint string, params url.Values, fetch func(context.Context) (T, error)) (T, error) {
	return load(ctx, c, endpoint, params, true, fetch)
}

func load[T any](ctx context.Context, c *Cache, endpoint string, params url.Values, force bool, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	key, err := Key(endpoint, params)
	if err != nil {
		return zero, err
	}
	if !force {
		if v, ok := c.lookup(key); ok {
			if typed, ok := v.(T); ok {
				return typed, nil
			}
		}
	}

	flightKey := strconv.FormatUint(key, 16)
	if force {
		flightKey += "!"
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	ch := c.group.DoChan(flightKey, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()

		c.mu.Lock()
		gen := c.generation
		c.mu.Unlock()

		value, err := fetch(fctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.generation == gen {
			c.entries[key] = cacheEntry{endpoint: endpoint, value: value, fetchedAt: c.now()}
		}
		c.mu.Unlock()
		return value, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		typed, ok := res.Val.(T)
		if !ok {
			return zero, fmt.Errorf("cached value for %s has type %T", endpoint, res.Val)
		}
		return typed, nil
	}
}
