package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fareast/internal/monitoring"
	"fareast/internal/orders"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingMirror struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (m *recordingMirror) Mirror(_ context.Context, eventType string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, eventType+" "+string(body))
	return m.err
}

func (m *recordingMirror) recorded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.events...)
}

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(monitoring.NewMetricsCollector(), zaptest.NewLogger(t).Sugar())
	srv := httptest.NewServer(NewKitchenServer(hub, nil, nil, zaptest.NewLogger(t).Sugar()).Router())
	t.Cleanup(srv.Close)
	return hub, srv
}

// dial connects a display and consumes the welcome message
func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	welcome := readJSON(t, conn)
	require.Equal(t, "welcome", welcome["type"])
	require.Equal(t, "Connected!", welcome["message"])
	return conn
}

func readText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(data)
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(readText(t, conn)), &msg))
	return msg
}

func TestHub_PingPong(t *testing.T) {
	hub, srv := newTestHub(t)
	hub.now = func() time.Time { return time.UnixMilli(1767225600123) }
	conn := dial(t, srv, "/ws")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	pong := readJSON(t, conn)
	assert.Equal(t, "pong", pong["type"])
	assert.Equal(t, float64(1767225600123), pong["timestamp"])
}

func TestHub_EchoesNonJSON(t *testing.T) {
	_, srv := newTestHub(t)
	conn := dial(t, srv, "/ws")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hello kitchen")))
	assert.Equal(t, "Echo: hello kitchen", readText(t, conn))
}

func TestHub_UnknownMessageType(t *testing.T) {
	_, srv := newTestHub(t)
	conn := dial(t, srv, "/ws")

	for _, frame := range []string{`{"type":"dance"}`, `{"hello":1}`, `[1,2,3]`, `42`} {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
		msg := readJSON(t, conn)
		assert.Equal(t, "error", msg["type"], frame)
		assert.Equal(t, "Unknown message type", msg["message"], frame)
	}
}

func TestHub_RelaysBroadcastToOtherClients(t *testing.T) {
	hub, srv := newTestHub(t)
	sender := dial(t, srv, "/ws")
	receiver := dial(t, srv, "/")
	require.Equal(t, 2, hub.ClientCount())

	require.NoError(t, sender.WriteMessage(websocket.TextMessage, []byte(`{"type":"broadcast","payload":{"note":"86 the scallops"}}`)))

	msg := readJSON(t, receiver)
	assert.Equal(t, "broadcast", msg["type"])
	assert.Equal(t, map[string]interface{}{"note": "86 the scallops"}, msg["payload"])

	// the sender hears nothing back; its next message is the pong
	require.NoError(t, sender.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	assert.Equal(t, "pong", readJSON(t, sender)["type"])
}

func TestHub_BroadcastNewOrder(t *testing.T) {
	hub, srv := newTestHub(t)
	mirror := &recordingMirror{}
	hub.SetMirror(mirror)

	first := dial(t, srv, "/ws")
	second := dial(t, srv, "/ws")

	size := "Qt"
	payload := orders.Payload{
		OrderNumber: "1",
		PhoneNumber: "607-555-1234",
		Items: []orders.ItemPayload{
			{Name: "General Tso's Chicken", Quantity: 1},
			{Name: "Roast Pork Fried Rice", Quantity: 1, Size: &size},
		},
		Time:   "2026-03-14T18:00:01.000Z",
		Total:  24.74,
		Status: "pending",
	}

	sent := hub.BroadcastNewOrder(context.Background(), payload)
	assert.Equal(t, 2, sent)

	for _, conn := range []*websocket.Conn{first, second} {
		msg := readJSON(t, conn)
		assert.Equal(t, "new_order", msg["type"])
		body := msg["payload"].(map[string]interface{})
		assert.Equal(t, "1", body["orderNumber"])
		assert.Equal(t, "607-555-1234", body["phoneNumber"])
		assert.Equal(t, 24.74, body["total"])
		assert.Equal(t, "pending", body["status"])
		items := body["items"].([]interface{})
		require.Len(t, items, 2)
		assert.Nil(t, items[0].(map[string]interface{})["size"])
		assert.Equal(t, "Qt", items[1].(map[string]interface{})["size"])
	}

	hub.Close()
	events := mirror.recorded()
	require.Len(t, events, 1)
	assert.True(t, strings.HasPrefix(events[0], `new_order {"type":"new_order"`))
}

func TestHub_BroadcastWithoutClients(t *testing.T) {
	hub := NewHub(nil, zaptest.NewLogger(t).Sugar())
	mirror := &recordingMirror{err: errors.New("broker down")}
	hub.SetMirror(mirror)

	assert.Equal(t, 0, hub.BroadcastNewOrder(context.Background(), orders.Payload{OrderNumber: "7"}))
	hub.Close()
	assert.Len(t, mirror.recorded(), 1)
}

// stalledMirror blocks every publish until released
type stalledMirror struct {
	release chan struct{}
	calls   atomic.Int32
}

func (m *stalledMirror) Mirror(_ context.Context, _ string, _ []byte) error {
	m.calls.Add(1)
	<-m.release
	return nil
}

func TestHub_StalledMirrorDoesNotBlockPublish(t *testing.T) {
	hub := NewHub(nil, zaptest.NewLogger(t).Sugar())
	mirror := &stalledMirror{release: make(chan struct{})}
	hub.SetMirror(mirror)

	start := time.Now()
	for i := 0; i < mirrorBuffer+20; i++ {
		hub.PublishNewOrder(context.Background(), orders.Payload{OrderNumber: "1"})
	}
	hub.BroadcastStatus(context.Background(), "1", "ready", time.Now())
	assert.Less(t, time.Since(start), time.Second)

	close(mirror.release)
	hub.Close()

	// one event in flight plus a full queue; the rest were dropped
	calls := int(mirror.calls.Load())
	assert.LessOrEqual(t, calls, mirrorBuffer+1)
	assert.GreaterOrEqual(t, calls, mirrorBuffer)
}

func TestHub_CloseWithoutMirror(t *testing.T) {
	hub := NewHub(nil, nil)
	hub.Close()
	assert.Equal(t, 0, hub.BroadcastNewOrder(context.Background(), orders.Payload{OrderNumber: "3"}))
}

func TestHub_DisconnectRemovesClient(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv, "/ws")
	require.Equal(t, 1, hub.ClientCount())

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, hub.BroadcastNewOrder(context.Background(), orders.Payload{OrderNumber: "2"}))
}
