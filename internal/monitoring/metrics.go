package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector handles prometheus metrics for orders, the dashboard hub
// and calls. It also keeps a Monitor with the last-known values for /health.
type MetricsCollector struct {
	registry *prometheus.Registry
	metrics  map[string]prometheus.Collector
	monitor  *Monitor
}

// NewMetricsCollector creates a collector on its own registry
func NewMetricsCollector() *MetricsCollector {
	registry := prometheus.NewRegistry()

	metrics := map[string]prometheus.Collector{
		"orders_submitted": prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orders_submitted_total",
				Help: "Order submissions by outcome",
			},
			[]string{"outcome"},
		),
		"line_items": prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_line_items_total",
				Help: "Order line items by catalog match result",
			},
			[]string{"match"},
		),
		"submit_duration": prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "order_submit_duration_seconds",
				Help:    "Time taken to number, persist and broadcast an order",
				Buckets: prometheus.DefBuckets,
			},
		),
		"broadcast_clients": prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "broadcast_clients",
				Help: "Connected kitchen display clients",
			},
		),
		"broadcast_messages": prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "broadcast_messages_total",
				Help: "Messages delivered to kitchen display clients by type",
			},
			[]string{"type"},
		),
		"status_updates": prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_status_updates_total",
				Help: "Order status changes by new status",
			},
			[]string{"status"},
		),
		"hangups": prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "call_hangups_total",
				Help: "Hang-up requests by outcome",
			},
			[]string{"outcome"},
		),
		"media_frames": prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "media_frames_total",
				Help: "Audio frames received from the telephony stream",
			},
		),
	}

	for _, metric := range metrics {
		registry.MustRegister(metric)
	}

	return &MetricsCollector{
		registry: registry,
		metrics:  metrics,
		monitor:  NewMonitor(),
	}
}

// Registry returns the prometheus registry backing the collector
func (mc *MetricsCollector) Registry() *prometheus.Registry {
	return mc.registry
}

// Handler serves the registry in the prometheus exposition format
func (mc *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{})
}

// Monitor returns the in-process snapshot store
func (mc *MetricsCollector) Monitor() *Monitor {
	return mc.monitor
}

// RecordSubmission records an order submission outcome and its duration
func (mc *MetricsCollector) RecordSubmission(outcome string, took time.Duration) {
	if counter, ok := mc.metrics["orders_submitted"].(*prometheus.CounterVec); ok {
		counter.WithLabelValues(outcome).Inc()
	}
	if histogram, ok := mc.metrics["submit_duration"].(prometheus.Histogram); ok {
		histogram.Observe(took.Seconds())
	}
	mc.monitor.RecordMetric("last_submission_outcome", outcome)
}

// RecordLineItem records whether a line resolved against the menu
func (mc *MetricsCollector) RecordLineItem(matched bool) {
	match := "unmatched"
	if matched {
		match = "matched"
	}
	if counter, ok := mc.metrics["line_items"].(*prometheus.CounterVec); ok {
		counter.WithLabelValues(match).Inc()
	}
}

// SetClients records the number of connected dashboard clients
func (mc *MetricsCollector) SetClients(n int) {
	if gauge, ok := mc.metrics["broadcast_clients"].(prometheus.Gauge); ok {
		gauge.Set(float64(n))
	}
	mc.monitor.RecordMetric("connected_clients", n)
}

// RecordBroadcast records messages delivered to clients
func (mc *MetricsCollector) RecordBroadcast(msgType string, delivered int) {
	if counter, ok := mc.metrics["broadcast_messages"].(*prometheus.CounterVec); ok {
		counter.WithLabelValues(msgType).Add(float64(delivered))
	}
}

// RecordStatusUpdate records an order status change
func (mc *MetricsCollector) RecordStatusUpdate(status string) {
	if counter, ok := mc.metrics["status_updates"].(*prometheus.CounterVec); ok {
		counter.WithLabelValues(status).Inc()
	}
}

// RecordHangUp records a hang-up request outcome
func (mc *MetricsCollector) RecordHangUp(outcome string) {
	if counter, ok := mc.metrics["hangups"].(*prometheus.CounterVec); ok {
		counter.WithLabelValues(outcome).Inc()
	}
	mc.monitor.RecordHangUp(outcome)
}

// RecordMediaFrame counts one inbound audio frame
func (mc *MetricsCollector) RecordMediaFrame() {
	if counter, ok := mc.metrics["media_frames"].(prometheus.Counter); ok {
		counter.Inc()
	}
}
