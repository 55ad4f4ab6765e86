package monitoring

import (
	"sync"
	"time"

	"fareast/internal/pricing"
)

// Monitor keeps the last-known operational values served by /health
type Monitor struct {
	mu      sync.RWMutex
	values  map[string]interface{}
	orders  int
	revenue float64
	hangups map[string]int
	started time.Time
	now     func() time.Time
}

// NewMonitor creates an empty monitor
func NewMonitor() *Monitor {
	return &Monitor{
		values:  make(map[string]interface{}),
		hangups: make(map[string]int),
		started: time.Now(),
		now:     time.Now,
	}
}

// RecordMetric stores a named value
func (m *Monitor) RecordMetric(name string, value interface{}) {
	m.mu.Lock()
	m.values[name] = value
	m.mu.Unlock()
}

// GetMetric returns a named value from the current snapshot
func (m *Monitor) GetMetric(name string) (interface{}, bool) {
	v, ok := m.GetMetrics()[name]
	return v, ok
}

// GetMetrics returns a copy of every value plus the order and call counters
func (m *Monitor) GetMetrics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := make(map[string]interface{}, len(m.values)+4)
	for k, v := range m.values {
		snapshot[k] = v
	}
	if m.orders > 0 {
		snapshot["orders_since_start"] = m.orders
		snapshot["revenue_since_start"] = pricing.RoundCents(m.revenue)
	}
	if len(m.hangups) > 0 {
		hangups := make(map[string]int, len(m.hangups))
		for outcome, n := range m.hangups {
			hangups[outcome] = n
		}
		snapshot["hangups"] = hangups
	}
	snapshot["uptime_seconds"] = m.now().Sub(m.started).Seconds()
	return snapshot
}

// Reset clears everything except the start time
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = make(map[string]interface{})
	m.hangups = make(map[string]int)
	m.orders = 0
	m.revenue = 0
}

// RecordOrder records a persisted order
func (m *Monitor) RecordOrder(orderNumber string, total float64, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.orders++
	m.revenue += total
	m.values["last_order_number"] = orderNumber
	m.values["last_order_total"] = total
	m.values["last_order_at"] = at.UTC().Format(time.RFC3339)
}

// RecordHangUp counts a hang-up outcome
func (m *Monitor) RecordHangUp(outcome string) {
	m.mu.Lock()
	m.hangups[outcome]++
	m.mu.Unlock()
}
