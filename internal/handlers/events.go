package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// EventAttacher binds an upgraded connection to a user's change feed.
type EventAttacher interface {
	Attach(ctx context.Context, userID uuid.UUID, conn *websocket.Conn)
}

// EventsHandler upgrades /api/events to a websocket carrying the caller's change events
type EventsHandler struct {
	hub      EventAttacher
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewEventsHandler creates the change feed handler. originAllowed decides
// cross-origin browser connections; requests without an Origin header (CLIs)
// are always accepted. A nil originAllowed rejects every cross-origin request.
func NewEventsHandler(hub EventAttacher, originAllowed func(origin string) bool, log *zap.Logger) *EventsHandler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &EventsHandler{hub: hub, log: log}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			return originAllowed != nil && originAllowed(origin)
		},
	}
	return h
}

// RegisterRoutes registers the feed on an authenticated /api router
func (h *EventsHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/events", h.Subscribe).Methods(http.MethodGet)
}

// Subscribe upgrades the request and blocks until the connection closes.
func (h *EventsHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.log.Debug("websocket_upgrade_failed",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
		return
	}
	h.log.Debug("event_feed_connected", zap.String("user_id", user.ID.String()))
	h.hub.Attach(r.Context(), user.ID, conn)
}
