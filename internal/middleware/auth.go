package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/benvon/smart-notes/internal/models"
	"github.com/benvon/smart-notes/internal/request"
	"github.com/benvon/smart-notes/internal/services/auth"
	"go.uber.org/zap"
)

// Authenticator resolves a bearer credential to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, bearer string) (*models.User, request.AuthMethod, error)
}

// Auth requires a valid bearer credential and stores the user in the request context.
func Auth(authenticator Authenticator, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "missing or malformed Authorization header")
				return
			}

			user, method, err := authenticator.Authenticate(r.Context(), token)
			switch {
			case err == nil:
			case errors.Is(err, auth.ErrInvalidToken):
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			case errors.Is(err, auth.ErrProviderNotConfigured):
				writeError(w, http.StatusUnauthorized, "token login is not configured")
				return
			default:
				log.Error("authentication_failed", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "authentication failed")
				return
			}

			next.ServeHTTP(w, r.WithContext(request.WithUser(r.Context(), user, method)))
		})
	}
}

// bearerToken extracts the credential from the Authorization header. Browsers
// cannot set headers on websocket handshakes, so the access_token query
// parameter is accepted for upgrade requests only.
func bearerToken(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			return "", false
		}
		token = strings.TrimSpace(token)
		return token, token != ""
	}
	if isWebsocketUpgrade(r) {
		if token := r.URL.Query().Get("access_token"); token != "" {
			return token, true
		}
	}
	return "", false
}
