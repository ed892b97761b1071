package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"virtual_queue/internal/events"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	r := gin.New()
	r.GET("/api/queues/:id/ws", hub.QueueWebSocketHandler)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubDeliversQueueEvents(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "/api/queues/q1/ws")
	require.Eventually(t, func() bool { return hub.ClientCount("q1") == 1 }, time.Second, 10*time.Millisecond)

	evt := events.Event{ID: "e1", Type: events.SessionEnqueued, QueueID: "q1", SessionID: "s1", Rank: 3}
	require.NoError(t, hub.Publish(context.Background(), evt))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg WSMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, events.SessionEnqueued, msg.EventType)
	assert.Equal(t, "q1", msg.QueueID)
	assert.Equal(t, 3, msg.Data.Rank)
}

func TestHubFiltersBySession(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "/api/queues/q1/ws?session_id=mine")
	require.Eventually(t, func() bool { return hub.ClientCount("q1") == 1 }, time.Second, 10*time.Millisecond)

	ctx := context.Background()
	require.NoError(t, hub.Publish(ctx, events.Event{Type: events.SessionCalled, QueueID: "q1", SessionID: "other"}))
	require.NoError(t, hub.Publish(ctx, events.Event{Type: events.SessionCalled, QueueID: "q2", SessionID: "mine"}))
	require.NoError(t, hub.Publish(ctx, events.Event{Type: events.SessionLeft, QueueID: "q1", SessionID: "mine"}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg WSMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, events.SessionLeft, msg.EventType)
	assert.Equal(t, "mine", msg.Data.SessionID)
}

func TestHubForgetsClosedClients(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "/api/queues/q1/ws")
	require.Eventually(t, func() bool { return hub.ClientCount("q1") == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount("q1") == 0 }, 2*time.Second, 10*time.Millisecond)
}
