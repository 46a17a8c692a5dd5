// Package events fans change notifications out to each user's open
// websocket connections.
package events

import (
	"context"
	"time"

	"github.com/benvon/smart-notes/internal/models"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 32
)

type message struct {
	userID uuid.UUID
	event  models.ChangeEvent
}

type countQuery struct {
	userID uuid.UUID
	reply  chan int
}

type client struct {
	userID uuid.UUID
	conn   *websocket.Conn
	send   chan models.ChangeEvent
}

// Hub tracks connected clients per user. All membership changes and fan-out
// happen on the Run goroutine.
type Hub struct {
	log        *zap.Logger
	clients    map[uuid.UUID]map[*client]struct{}
	broadcast  chan message
	register   chan *client
	unregister chan *client
	count      chan countQuery
	done       chan struct{}
}

// NewHub creates a hub. Run must be started before clients connect.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		log:        log,
		clients:    make(map[uuid.UUID]map[*client]struct{}),
		broadcast:  make(chan message, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		count:      make(chan countQuery),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is cancelled, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for _, set := range h.clients {
				for c := range set {
					close(c.send)
				}
			}
			h.clients = make(map[uuid.UUID]map[*client]struct{})
			return

		case c := <-h.register:
			set, ok := h.clients[c.userID]
			if !ok {
				set = make(map[*client]struct{})
				h.clients[c.userID] = set
			}
			set[c] = struct{}{}

		case c := <-h.unregister:
			h.remove(c)

		case q := <-h.count:
			q.reply <- len(h.clients[q.userID])

		case msg := <-h.broadcast:
			for c := range h.clients[msg.userID] {
				select {
				case c.send <- msg.event:
				default:
					// Slow consumer; drop it and let it reconnect.
					h.log.Warn("event_client_dropped", zap.String("user_id", msg.userID.String()))
					h.remove(c)
				}
			}
		}
	}
}

func (h *Hub) remove(c *client) {
	set, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
}

// Publish queues ev for userID's connections. It never blocks the caller;
// when the hub is saturated the event is dropped and logged.
func (h *Hub) Publish(userID uuid.UUID, ev models.ChangeEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	select {
	case h.broadcast <- message{userID: userID, event: ev}:
	default:
		h.log.Warn("event_dropped_hub_full",
			zap.String("user_id", userID.String()),
			zap.String("entity", ev.Entity),
		)
	}
}

// Attach registers conn for userID and pumps events to it until the peer
// goes away. It blocks for the life of the connection.
func (h *Hub) Attach(ctx context.Context, userID uuid.UUID, conn *websocket.Conn) {
	c := &client{userID: userID, conn: conn, send: make(chan models.ChangeEvent, sendBufferSize)}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	case <-ctx.Done():
		_ = conn.Close()
		return
	}

	go h.readPump(c)
	h.writePump(c)
}

// readPump discards client frames and keeps the read deadline fresh; it only
// exists to process control frames and notice disconnects.
func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case ev, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Subscribers reports how many connections userID has open.
func (h *Hub) Subscribers(ctx context.Context, userID uuid.UUID) int {
	q := countQuery{userID: userID, reply: make(chan int, 1)}
	select {
	case h.count <- q:
	case <-h.done:
		return 0
	case <-ctx.Done():
		return 0
	}
	return <-q.reply
}
