package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/benvon/smart-notes/internal/models"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const eventsPath = "/api/events"

// HandleEvent invalidates the cached reads a server change event makes stale.
func (c *Client) HandleEvent(ev models.ChangeEvent) {
	ep, ok := endpointsFor(ev.Entity)
	if !ok {
		c.logger.Debug("unknown_event_entity", zap.String("entity", ev.Entity))
		return
	}
	c.cache.Invalidate(ep.invalidates...)
}

// eventsURL converts the server URL to its websocket change feed URL.
func (c *Client) eventsURL() (string, error) {
	u, err := c.resolve(eventsPath, nil)
	if err != nil {
		return "", err
	}
	target := u.String()
	switch c.baseURL.Scheme {
	case "https":
		return "wss" + target[len("https"):], nil
	default:
		return "ws" + target[len("http"):], nil
	}
}

// Subscribe reads the caller's change feed until ctx is cancelled or the
// connection drops. Each event first invalidates the cache, then goes to
// handler. It returns nil when ctx ends the subscription.
func (c *Client) Subscribe(ctx context.Context, handler func(models.ChangeEvent)) error {
	target, err := c.eventsURL()
	if err != nil {
		return err
	}
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, target, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return &APIError{StatusCode: resp.StatusCode, Message: "Failed to subscribe to events."}
		}
		return fmt.Errorf("failed to subscribe to events: %w", err)
	}

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	})
	defer func() {
		stop()
		_ = conn.Close()
	}()

	for {
		var ev models.ChangeEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("event feed closed: %w", err)
		}
		c.HandleEvent(ev)
		if handler != nil {
			handler(ev)
		}
	}
}
