package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/benvon/smart-notes/internal/logger"
	"go.uber.org/zap"
)

// ErrorResponse mirrors the handlers' error envelope so clients see one shape
// whether a request failed in middleware or in a handler.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
}

func newErrorResponse(status int, message string) ErrorResponse {
	return ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(newErrorResponse(status, message))
}

// ErrorHandler turns a panic in a later handler into a logged 500. If the
// handler had already started its response only the log entry is written.
// http.ErrAbortHandler keeps its usual meaning.
func ErrorHandler(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := newStatusRecorder(w)
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if p == http.ErrAbortHandler {
					panic(p)
				}
				log.Error("panic_recovered",
					zap.Any("panic", p),
					zap.String("method", r.Method),
					zap.String("path", logger.SanitizePath(r.URL.Path)),
					zap.Bool("response_started", rec.wroteHeader),
					zap.Stack("stack"),
				)
				if !rec.wroteHeader {
					writeError(rec, http.StatusInternalServerError, "An unexpected error occurred")
				}
			}()
			next.ServeHTTP(rec, r)
		})
	}
}
