package request

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benvon/smart-notes/internal/models"
	"github.com/google/uuid"
)

func TestClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		xff    string
		xri    string
		remote string
		want   string
	}{
		{name: "forwarded", xff: "203.0.113.7", want: "203.0.113.7"},
		{name: "first forwarded hop wins", xff: " 203.0.113.7 , 10.0.0.1 ", want: "203.0.113.7"},
		{name: "malformed hop skipped", xff: "unknown, 198.51.100.2", want: "198.51.100.2"},
		{name: "real ip when no usable hop", xff: " , garbage", xri: "192.0.2.9", want: "192.0.2.9"},
		{name: "forwarded beats real ip", xff: "203.0.113.7", xri: "192.0.2.9", want: "203.0.113.7"},
		{name: "mapped ipv4 unwrapped", xff: "::ffff:192.0.2.1", want: "192.0.2.1"},
		{name: "remote host without port", remote: "10.0.0.1:12345", want: "10.0.0.1"},
		{name: "ipv6 remote", remote: "[2001:db8::1]:8080", want: "2001:db8::1"},
		{name: "remote without port kept", remote: "10.0.0.2", want: "10.0.0.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodGet, "/api/notes", nil)
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if tt.remote != "" {
				r.RemoteAddr = tt.remote
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWithUser(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: uuid.New(), Email: "a@example.com"}
	r := httptest.NewRequest(http.MethodGet, "/api/notes", nil)
	r = r.WithContext(WithUser(r.Context(), user, AuthMethodAPIToken))

	if got := UserFromContext(r); got != user {
		t.Errorf("UserFromContext() = %v, want %v", got, user)
	}
	if got := Method(r.Context()); got != AuthMethodAPIToken {
		t.Errorf("Method() = %q, want %q", got, AuthMethodAPIToken)
	}
}

func TestWithUser_Anonymous(t *testing.T) {
	t.Parallel()

	for name, ctx := range map[string]context.Context{
		"empty":    context.Background(),
		"nil user": WithUser(context.Background(), nil, AuthMethodOIDC),
	} {
		if got := User(ctx); got != nil {
			t.Errorf("%s: User() = %v, want nil", name, got)
		}
		if got := Method(ctx); got != "" {
			t.Errorf("%s: Method() = %q, want empty", name, got)
		}
	}
}
