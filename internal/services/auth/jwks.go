package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"golang.org/x/sync/singleflight"
)

// DefaultJWKSTTL is how long a fetched key set is trusted before refetching.
const DefaultJWKSTTL = time.Hour

type cachedKeySet struct {
	keys    jwk.Set
	expires time.Time
}

// JWKSManager fetches and caches JSON Web Key Sets per URL. Concurrent misses
// for the same URL share a single fetch.
type JWKSManager struct {
	client *http.Client
	ttl    time.Duration
	now    func() time.Time

	mu    sync.RWMutex
	cache map[string]cachedKeySet
	group singleflight.Group
}

// NewJWKSManager creates a JWKS manager with the default TTL.
func NewJWKSManager() *JWKSManager {
	return &JWKSManager{
		client: &http.Client{Timeout: 10 * time.Second},
		ttl:    DefaultJWKSTTL,
		now:    time.Now,
		cache:  make(map[string]cachedKeySet),
	}
}

// GetJWKS returns the key set published at jwksURL.
func (m *JWKSManager) GetJWKS(ctx context.Context, jwksURL string) (jwk.Set, error) {
	m.mu.RLock()
	entry, ok := m.cache[jwksURL]
	m.mu.RUnlock()
	if ok && m.now().Before(entry.expires) {
		return entry.keys, nil
	}

	v, err, _ := m.group.Do(jwksURL, func() (any, error) {
		keys, err := jwk.Fetch(ctx, jwksURL, jwk.WithHTTPClient(m.client))
		if err != nil {
			return nil, fmt.Errorf("failed to fetch JWKS from %s: %w", jwksURL, err)
		}
		m.mu.Lock()
		m.cache[jwksURL] = cachedKeySet{keys: keys, expires: m.now().Add(m.ttl)}
		m.mu.Unlock()
		return keys, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(jwk.Set), nil
}

// Invalidate drops the cached key set for jwksURL, forcing the next lookup to
// refetch. Used after a verification failure caused by key rotation.
func (m *JWKSManager) Invalidate(jwksURL string) {
	m.mu.Lock()
	delete(m.cache, jwksURL)
	m.mu.Unlock()
}
