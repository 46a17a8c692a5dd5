package events

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benvon/smart-notes/internal/models"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveHub runs a hub behind a websocket endpoint that attaches every
// connection to the user named in the "user" query parameter.
func serveHub(t *testing.T) (*Hub, string, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil)
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(r.URL.Query().Get("user"))
		if err != nil {
			http.Error(w, "bad user", http.StatusBadRequest)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Attach(r.Context(), userID, conn)
	}))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http"), cancel
}

func dial(t *testing.T, base string, userID uuid.UUID) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(base+"?user="+userID.String(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForSubscribers(t *testing.T, hub *Hub, userID uuid.UUID, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return hub.Subscribers(context.Background(), userID) == n
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHub_PublishReachesOnlyTheUser(t *testing.T) {
	t.Parallel()
	hub, url, _ := serveHub(t)

	alice, bob := uuid.New(), uuid.New()
	aliceConns := []*websocket.Conn{dial(t, url, alice), dial(t, url, alice)}
	bobConn := dial(t, url, bob)
	waitForSubscribers(t, hub, alice, 2)
	waitForSubscribers(t, hub, bob, 1)

	noteID := uuid.New()
	hub.Publish(alice, models.ChangeEvent{Type: models.ChangeUpdated, Entity: models.EntityNote, ID: noteID})

	for _, conn := range aliceConns {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var ev models.ChangeEvent
		require.NoError(t, conn.ReadJSON(&ev))
		assert.Equal(t, noteID, ev.ID)
		assert.Equal(t, models.ChangeUpdated, ev.Type)
		assert.False(t, ev.At.IsZero(), "publish stamps a time")
	}

	require.NoError(t, bobConn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	var ev models.ChangeEvent
	err := bobConn.ReadJSON(&ev)
	require.Error(t, err)
	var netErr interface{ Timeout() bool }
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout(), "bob receives nothing")
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	t.Parallel()
	hub, url, _ := serveHub(t)

	user := uuid.New()
	conn := dial(t, url, user)
	waitForSubscribers(t, hub, user, 1)

	require.NoError(t, conn.Close())
	waitForSubscribers(t, hub, user, 0)

	// Publishing to a user with no connections is a no-op.
	hub.Publish(user, models.ChangeEvent{Type: models.ChangeDeleted, Entity: models.EntityTask})
}

func TestHub_ShutdownClosesConnections(t *testing.T) {
	t.Parallel()
	hub, url, cancel := serveHub(t)

	user := uuid.New()
	conn := dial(t, url, user)
	waitForSubscribers(t, hub, user, 1)

	cancel()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
	assert.Zero(t, hub.Subscribers(context.Background(), user))
}
