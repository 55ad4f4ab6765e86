package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fareast/internal/models"
	"fareast/internal/monitoring"
	"fareast/internal/pricing"

	"go.uber.org/zap"
)

// Store persists orders and counts them for numbering
type Store interface {
	Counter
	Create(ctx context.Context, order *models.Order) error
}

// Publisher fans a new order out to kitchen displays. It returns how many
// clients accepted the message.
type Publisher interface {
	PublishNewOrder(ctx context.Context, payload Payload) int
}

// SubmitItem is one item as the agent describes it
type SubmitItem struct {
	Name          string
	Quantity      int
	Size          string
	Price         float64
	Modifications string
}

// SubmitRequest is the agent's submit_order call
type SubmitRequest struct {
	PhoneNumber string
	Items       []SubmitItem
	Notes       string
	TotalPrice  float64
	CallSID     string
}

// Pipeline turns an agent order into a numbered, persisted, broadcast order
type Pipeline struct {
	store     Store
	numberer  *Numberer
	resolver  *pricing.Resolver
	publisher Publisher
	metrics   *monitoring.MetricsCollector
	logger    *zap.SugaredLogger
	now       func() time.Time
}

// NewPipeline wires a submission pipeline. publisher may be nil.
func NewPipeline(store Store, numberer *Numberer, resolver *pricing.Resolver, publisher Publisher, metrics *monitoring.MetricsCollector, logger *zap.SugaredLogger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if metrics == nil {
		metrics = monitoring.NewMetricsCollector()
	}
	return &Pipeline{
		store:     store,
		numberer:  numberer,
		resolver:  resolver,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// SetClock replaces the pipeline's clock
func (p *Pipeline) SetClock(now func() time.Time) {
	p.now = now
}

// Submit numbers, prices, persists and broadcasts an order. It always returns
// a sentence for the caller to relay; failures are logged, never returned.
// When persistence fails the caller still gets the total so the call can end
// normally, and nothing is broadcast.
func (p *Pipeline) Submit(ctx context.Context, req SubmitRequest) string {
	if msg := checkRequest(req); msg != "" {
		p.metrics.RecordSubmission("rejected", 0)
		p.logger.Warnw("Rejected order submission", "reason", msg, "call_sid", req.CallSID)
		return msg
	}

	start := p.now()
	now := start.UTC()

	number, err := p.numberer.Next(ctx, now)
	if err != nil {
		return p.degraded(req, "", err, start)
	}

	order := models.Order{
		OrderNumber: number,
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		Status:      models.OrderStatusPending,
		OrderType:   models.OrderTypePickup,
		Total:       req.TotalPrice,
		Notes:       req.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	for _, item := range req.Items {
		line := p.resolver.PriceLine(item.Name, item.Size, item.Quantity, item.Price)
		p.metrics.RecordLineItem(line.MenuItemID != nil)
		if len(line.Flags) > 0 {
			p.logger.Infow("Flagged order line",
				"order_number", number,
				"item", item.Name,
				"flags", line.Flags,
				"unit_price", line.UnitPrice,
			)
		}

		order.Items = append(order.Items, models.OrderLineItem{
			MenuItemID: line.MenuItemID,
			ItemName:   strings.TrimSpace(item.Name),
			Quantity:   line.Quantity,
			Size:       line.Size,
			UnitPrice:  line.UnitPrice,
			Total:      line.LineTotal,
			Notes:      item.Modifications,
			CreatedAt:  now,
		})
	}

	if err := p.store.Create(ctx, &order); err != nil {
		return p.degraded(req, number, err, start)
	}

	delivered := 0
	if p.publisher != nil {
		delivered = p.publisher.PublishNewOrder(ctx, PayloadFromOrder(order))
	}

	p.metrics.RecordSubmission("persisted", p.now().Sub(start))
	p.metrics.Monitor().RecordOrder(order.OrderNumber, order.Total, now)
	p.logger.Infow("Order submitted",
		"order_number", order.OrderNumber,
		"call_sid", req.CallSID,
		"items", len(order.Items),
		"total", order.Total,
		"delivered", delivered,
	)

	return fmt.Sprintf("Order %s submitted successfully. Total: $%.2f", order.OrderNumber, order.Total)
}

func (p *Pipeline) degraded(req SubmitRequest, number string, err error, start time.Time) string {
	p.metrics.RecordSubmission("degraded", p.now().Sub(start))
	p.logger.Errorw("Failed to persist order",
		"order_number", number,
		"call_sid", req.CallSID,
		"phone_number", req.PhoneNumber,
		"error", err,
	)
	return fmt.Sprintf("Order recorded. Total: $%.2f", req.TotalPrice)
}

func checkRequest(req SubmitRequest) string {
	if strings.TrimSpace(req.PhoneNumber) == "" {
		return "Could not submit order: a phone number is required"
	}
	if len(req.Items) == 0 {
		return "Could not submit order: the order has no items"
	}
	for i, item := range req.Items {
		if strings.TrimSpace(item.Name) == "" {
			return fmt.Sprintf("Could not submit order: item %d has no name", i+1)
		}
	}
	return ""
}
