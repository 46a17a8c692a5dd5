package middleware

import (
	"encoding/json"
	"net/http"
	"time"
)

// DefaultRequestTimeout bounds how long a handler may run.
const DefaultRequestTimeout = 30 * time.Second

// Timeout answers 503 with the error envelope once a handler overruns.
// Websocket upgrades stay open for the life of the subscription and are
// exempt.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isWebsocketUpgrade(r) {
				next.ServeHTTP(w, r)
				return
			}
			http.TimeoutHandler(next, timeout, timeoutBody()).ServeHTTP(w, r)
		})
	}
}

func timeoutBody() string {
	body, err := json.Marshal(newErrorResponse(http.StatusServiceUnavailable, "request timed out"))
	if err != nil {
		return `{"success":false,"error":"Service Unavailable"}`
	}
	return string(body)
}
