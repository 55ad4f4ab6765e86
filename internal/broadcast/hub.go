// Package broadcast keeps kitchen displays in sync with orders: a websocket
// hub that pushes new orders and status changes, and the REST endpoints the
// displays use to load history and move orders along.
package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"fareast/internal/monitoring"
	"fareast/internal/orders"

	"go.uber.org/zap"
)

// Message types on the push channel
const (
	TypeWelcome     = "welcome"
	TypePing        = "ping"
	TypePong        = "pong"
	TypeBroadcast   = "broadcast"
	TypeError       = "error"
	TypeNewOrder    = "new_order"
	TypeOrderStatus = "order_status"
)

// Mirror receives a copy of every order event the hub pushes, so other
// processes can follow along
type Mirror interface {
	Mirror(ctx context.Context, eventType string, body []byte) error
}

// Envelope is a server-to-client event
type Envelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
	Message string      `json:"message,omitempty"`
}

// StatusPayload is pushed after an operator changes an order's status
type StatusPayload struct {
	OrderNumber string `json:"orderNumber"`
	Status      string `json:"status"`
	UpdatedAt   string `json:"updatedAt"`
}

// mirrorBuffer bounds how many events may wait for the mirror
const mirrorBuffer = 256

type mirrored struct {
	eventType string
	body      []byte
}

// Hub tracks connected kitchen displays and fans messages out to them
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}

	mirrorQueue chan mirrored
	mirrorDone  chan struct{}

	metrics *monitoring.MetricsCollector
	logger  *zap.SugaredLogger
	now     func() time.Time
}

// NewHub creates an empty hub
func NewHub(metrics *monitoring.MetricsCollector, logger *zap.SugaredLogger) *Hub {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if metrics == nil {
		metrics = monitoring.NewMetricsCollector()
	}
	return &Hub{
		clients: make(map[*Client]struct{}),
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// SetMirror attaches a mirror for order events. Events are handed to it by a
// single background goroutine; when it falls behind, new events are dropped.
// Only the first mirror is kept. Close stops it.
func (h *Hub) SetMirror(m Mirror) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m == nil || h.mirrorQueue != nil {
		return
	}
	h.mirrorQueue = make(chan mirrored, mirrorBuffer)
	h.mirrorDone = make(chan struct{})
	go h.runMirror(m, h.mirrorQueue, h.mirrorDone)
}

func (h *Hub) runMirror(m Mirror, queue <-chan mirrored, done chan<- struct{}) {
	defer close(done)
	for ev := range queue {
		if err := m.Mirror(context.Background(), ev.eventType, ev.body); err != nil {
			h.logger.Warnw("Failed to mirror event", "type", ev.eventType, "error", err)
		}
	}
}

// Close stops the mirror after it has drained the queued events
func (h *Hub) Close() {
	h.mu.Lock()
	queue, done := h.mirrorQueue, h.mirrorDone
	h.mirrorQueue, h.mirrorDone = nil, nil
	h.mu.Unlock()

	if queue != nil {
		close(queue)
		<-done
	}
}

func (h *Hub) enqueueMirror(eventType string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.mirrorQueue == nil {
		return
	}
	select {
	case h.mirrorQueue <- mirrored{eventType: eventType, body: data}:
	default:
		h.logger.Warnw("Mirror queue full, dropping event", "type", eventType)
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.metrics.SetClients(n)
	h.logger.Infow("Client connected", "client_id", c.id, "clients", n)
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	c.close()
	h.metrics.SetClients(n)
	h.logger.Infow("Client disconnected", "client_id", c.id, "clients", n)
}

// deliver queues data on every client except skip and returns how many
// accepted it. Clients whose buffers are full are skipped.
func (h *Hub) deliver(data []byte, skip *Client) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for c := range h.clients {
		if c == skip {
			continue
		}
		if c.enqueue(data) {
			sent++
		} else {
			h.logger.Warnw("Client buffer full, dropping message", "client_id", c.id)
		}
	}
	return sent
}

func (h *Hub) publish(_ context.Context, eventType string, payload interface{}) int {
	data, err := json.Marshal(Envelope{Type: eventType, Payload: payload})
	if err != nil {
		h.logger.Errorw("Failed to encode event", "type", eventType, "error", err)
		return 0
	}

	sent := h.deliver(data, nil)
	h.metrics.RecordBroadcast(eventType, sent)
	h.enqueueMirror(eventType, data)
	return sent
}

// BroadcastNewOrder pushes a new order to every connected client and returns
// how many accepted it. Nothing is retried or queued for later clients.
func (h *Hub) BroadcastNewOrder(ctx context.Context, payload orders.Payload) int {
	sent := h.publish(ctx, TypeNewOrder, payload)
	h.logger.Infow("Order broadcast", "order_number", payload.OrderNumber, "delivered", sent)
	return sent
}

// PublishNewOrder lets the submission pipeline publish through the hub
func (h *Hub) PublishNewOrder(ctx context.Context, payload orders.Payload) int {
	return h.BroadcastNewOrder(ctx, payload)
}

// BroadcastStatus pushes an order status change to every connected client
func (h *Hub) BroadcastStatus(ctx context.Context, orderNumber, status string, updatedAt time.Time) int {
	return h.publish(ctx, TypeOrderStatus, StatusPayload{
		OrderNumber: orderNumber,
		Status:      status,
		UpdatedAt:   orders.FormatTime(updatedAt),
	})
}

type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// handleMessage answers one frame from a client
func (h *Hub) handleMessage(c *Client, raw []byte) {
	if !json.Valid(raw) {
		c.enqueue([]byte("Echo: " + string(raw)))
		return
	}

	var msg inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		msg = inbound{}
	}

	switch msg.Type {
	case TypePing:
		c.sendJSON(struct {
			Type      string `json:"type"`
			Timestamp int64  `json:"timestamp"`
		}{TypePong, h.now().UnixMilli()})

	case TypeBroadcast:
		payload := msg.Payload
		if len(payload) == 0 {
			payload = json.RawMessage("null")
		}
		data, err := json.Marshal(struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}{TypeBroadcast, payload})
		if err != nil {
			c.sendJSON(Envelope{Type: TypeError, Message: "Invalid payload"})
			return
		}
		sent := h.deliver(data, c)
		h.metrics.RecordBroadcast(TypeBroadcast, sent)

	default:
		c.sendJSON(Envelope{Type: TypeError, Message: "Unknown message type"})
	}
}
