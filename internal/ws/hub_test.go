package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"matchmap/internal/domain/request"
	"matchmap/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(logger.NewTestLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func dial(t *testing.T, hub *Hub, topic uuid.UUID) *websocket.Conn {
	t.Helper()
	h := NewHandler(hub, logger.NewTestLogger(t))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.serve(w, r, topic)
	}))
	t.Cleanup(srv.Close)

	before := hub.TopicCount(topic)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return hub.TopicCount(topic) == before+1 }, time.Second, 5*time.Millisecond)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) RequestUpdatedEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var evt RequestUpdatedEvent
	require.NoError(t, json.Unmarshal(data, &evt))
	return evt
}

func TestHub_RequestUpdatedReachesTenantOnly(t *testing.T) {
	hub := startHub(t)
	tenantA, tenantB := uuid.New(), uuid.New()
	connA := dial(t, hub, tenantA)
	connB := dial(t, hub, tenantB)

	reqID := uuid.New()
	hub.RequestUpdated(tenantA, reqID, request.StatusRunning)

	evt := readEvent(t, connA)
	assert.Equal(t, EventRequestUpdated, evt.Type)
	assert.Equal(t, reqID, evt.RequestID)
	assert.Equal(t, request.StatusRunning, evt.Status)
	_, err := time.Parse(time.RFC3339, evt.Timestamp)
	assert.NoError(t, err)

	require.NoError(t, connB.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err = connB.ReadMessage()
	assert.Error(t, err, "other tenants must not receive the event")
}

func TestHub_FansOutWithinTopic(t *testing.T) {
	hub := startHub(t)
	tenantID := uuid.New()
	first := dial(t, hub, tenantID)
	second := dial(t, hub, tenantID)
	assert.Equal(t, 2, hub.ClientCount())

	hub.RequestUpdated(tenantID, uuid.New(), request.StatusDone)

	assert.Equal(t, request.StatusDone, readEvent(t, first).Status)
	assert.Equal(t, request.StatusDone, readEvent(t, second).Status)
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	hub := startHub(t)
	tenantID := uuid.New()
	conn := dial(t, hub, tenantID)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.TopicCount(tenantID) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_CallsAfterShutdownReturn(t *testing.T) {
	hub := NewHub(logger.NewTestLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	late := &Client{hub: hub, topic: uuid.New(), send: make(chan []byte, 1)}
	returned := make(chan struct{})
	go func() {
		defer close(returned)
		for range 2 * cap(hub.unregister) {
			hub.Unregister(&Client{hub: hub, topic: uuid.New(), send: make(chan []byte, 1)})
			hub.Broadcast(late.topic, []byte("x"))
		}
		hub.Register(late)
	}()

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("hub calls blocked after Run returned")
	}
	_, open := <-late.send
	assert.False(t, open, "late client is closed, not parked")
	assert.Zero(t, hub.ClientCount())
}

func TestHub_NilSafe(t *testing.T) {
	var hub *Hub
	assert.NotPanics(t, func() {
		hub.RequestUpdated(uuid.New(), uuid.New(), request.StatusDone)
		hub.Broadcast(uuid.New(), []byte("x"))
	})
	assert.Zero(t, hub.ClientCount())
}
