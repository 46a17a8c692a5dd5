package middleware

import (
	"net/http"
	"time"

	"github.com/benvon/smart-notes/internal/logger"
	"github.com/benvon/smart-notes/internal/request"
	"go.uber.org/zap"
)

// Logging logs one structured line per request.
func Logging(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newStatusRecorder(w)

			next.ServeHTTP(rw, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", logger.SanitizePath(r.URL.Path)),
				zap.Int("status_code", rw.statusCode),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			}
			if r.URL.RawQuery != "" {
				fields = append(fields, zap.String("query", logger.SanitizeQuery(r.URL.RawQuery)))
			}
			if user := request.UserFromContext(r); user != nil {
				fields = append(fields, zap.String("user_id", user.ID.String()))
			}
			if rw.statusCode >= http.StatusInternalServerError {
				log.Warn("http_request", fields...)
				return
			}
			log.Info("http_request", fields...)
		})
	}
}
