package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCollector_Record(t *testing.T) {
	mc := NewMetricsCollector()

	mc.RecordSubmission("persisted", 20*time.Millisecond)
	mc.RecordSubmission("degraded", time.Millisecond)
	mc.RecordLineItem(true)
	mc.RecordLineItem(false)
	mc.RecordLineItem(false)
	mc.SetClients(3)
	mc.RecordBroadcast("new_order", 3)
	mc.RecordHangUp("completed")
	mc.RecordMediaFrame()

	submitted := mc.metrics["orders_submitted"].(*prometheus.CounterVec)
	assert.Equal(t, 1.0, testutil.ToFloat64(submitted.WithLabelValues("persisted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(submitted.WithLabelValues("degraded")))

	lines := mc.metrics["line_items"].(*prometheus.CounterVec)
	assert.Equal(t, 2.0, testutil.ToFloat64(lines.WithLabelValues("unmatched")))

	assert.Equal(t, 3.0, testutil.ToFloat64(mc.metrics["broadcast_clients"]))
	assert.Equal(t, 1.0, testutil.ToFloat64(mc.metrics["media_frames"]))

	snapshot := mc.Monitor().GetMetrics()
	assert.Equal(t, 3, snapshot["connected_clients"])
	assert.Equal(t, "degraded", snapshot["last_submission_outcome"])
	assert.Equal(t, map[string]int{"completed": 1}, snapshot["hangups"])
}

func TestMetricsCollector_Handler(t *testing.T) {
	mc := NewMetricsCollector()
	mc.RecordSubmission("persisted", time.Millisecond)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/metrics", nil)
	mc.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `orders_submitted_total{outcome="persisted"} 1`)
}
