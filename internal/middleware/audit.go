package middleware

import (
	"net/http"

	"github.com/benvon/smart-notes/internal/logger"
	"github.com/benvon/smart-notes/internal/request"
	"go.uber.org/zap"
)

// Audit logs authentication failures, authorization failures and rate limit hits.
func Audit(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := newStatusRecorder(w)
			next.ServeHTTP(rw, r)

			switch rw.statusCode {
			case http.StatusUnauthorized, http.StatusForbidden:
				log.Warn("security_event",
					zap.String("event", http.StatusText(rw.statusCode)),
					zap.String("method", r.Method),
					zap.String("path", logger.SanitizePath(r.URL.Path)),
					zap.String("client_ip", request.ClientIP(r)),
					zap.String("user_agent", logger.SanitizeString(r.UserAgent(), 200)),
				)
			case http.StatusTooManyRequests:
				log.Warn("rate_limit_violation",
					zap.String("method", r.Method),
					zap.String("path", logger.SanitizePath(r.URL.Path)),
					zap.String("client_ip", request.ClientIP(r)),
				)
			}
		})
	}
}
