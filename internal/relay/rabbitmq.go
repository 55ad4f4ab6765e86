// Package relay republishes kitchen display events to RabbitMQ so processes
// other than the hub (a second display server, a ticket printer) can follow
// orders as they arrive.
package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// DefaultQueue receives every event
const DefaultQueue = "orders.events"

// Config describes the broker connection
type Config struct {
	URL     string
	Queue   string
	Timeout time.Duration
}

// Channel is the part of an AMQP channel the relay uses
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Relay publishes events to a durable queue
type Relay struct {
	mu      sync.RWMutex
	conn    *amqp.Connection
	channel Channel
	queue   string
	timeout time.Duration
	logger  *zap.SugaredLogger
}

// Dial connects to the broker and declares the event queue
func Dial(cfg Config, logger *zap.SugaredLogger) (*Relay, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	r, err := New(channel, cfg, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	r.conn = conn
	return r, nil
}

// New creates a relay on an open channel and declares the queue
func New(channel Channel, cfg Config, logger *zap.SugaredLogger) (*Relay, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	queue := cfg.Queue
	if queue == "" {
		queue = DefaultQueue
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	_, err := channel.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		channel.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	return &Relay{
		channel: channel,
		queue:   queue,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Queue returns the queue events are published to
func (r *Relay) Queue() string {
	return r.queue
}

// Mirror publishes one event body, tagged with its type
func (r *Relay) Mirror(ctx context.Context, eventType string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	r.mu.RLock()
	defer r.mu.RUnlock()

	err := r.channel.PublishWithContext(
		ctx,
		"",      // exchange
		r.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Type:         eventType,
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}

	r.logger.Debugw("Event relayed", "type", eventType, "queue", r.queue)
	return nil
}

// Close closes the channel and the connection
func (r *Relay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
