// Package request carries per-request identity through contexts and reads
// caller details off incoming requests.
package request

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/benvon/smart-notes/internal/models"
)

// AuthMethod records how a request authenticated.
type AuthMethod string

const (
	AuthMethodOIDC     AuthMethod = "oidc"
	AuthMethodAPIToken AuthMethod = "api_token"
)

type principalKey struct{}

type principal struct {
	user   *models.User
	method AuthMethod
}

// WithUser returns a context carrying the authenticated user and how they
// authenticated. A nil user leaves ctx unauthenticated.
func WithUser(ctx context.Context, user *models.User, method AuthMethod) context.Context {
	if user == nil {
		return ctx
	}
	return context.WithValue(ctx, principalKey{}, principal{user: user, method: method})
}

func principalFrom(ctx context.Context) (principal, bool) {
	p, ok := ctx.Value(principalKey{}).(principal)
	return p, ok
}

// User returns the user stored in ctx, or nil.
func User(ctx context.Context) *models.User {
	p, _ := principalFrom(ctx)
	return p.user
}

// UserFromContext is User for an *http.Request.
func UserFromContext(r *http.Request) *models.User {
	return User(r.Context())
}

// Method returns how the request in ctx authenticated, or "" if it did not.
func Method(ctx context.Context) AuthMethod {
	p, _ := principalFrom(ctx)
	return p.method
}

// ClientIP picks the caller's address: the first well-formed X-Forwarded-For
// hop, then X-Real-IP, then the connection's remote host.
func ClientIP(r *http.Request) string {
	for _, hop := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if addr, ok := parseAddr(hop); ok {
			return addr
		}
	}
	if addr, ok := parseAddr(r.Header.Get("X-Real-IP")); ok {
		return addr
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func parseAddr(raw string) (string, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	return addr.Unmap().String(), true
}
