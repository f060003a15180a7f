// internal/metrics/prometheus/prometheus_test.go
package prometheus

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/tamzrod/stlink-bridge/internal/metrics"
)

var _ metrics.Recorder = (*Metrics)(nil)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, nil)

	m.Connected(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.connected))
	m.Connected(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.connected))

	m.Transaction("i2c_write", "i2c_error", 1)
	m.Transaction("i2c_write", "ok", 2)
	m.Transaction("gpio_read", "ok", 0)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transactions.WithLabelValues("i2c_write", "i2c_error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.bytes.WithLabelValues("i2c_write")))

	m.PollTick(true)
	m.PollTick(false)
	m.PollTick(false)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ticks.WithLabelValues("dropped")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ticks.WithLabelValues("read")))

	m.SessionLost()
	m.Hotplug("removal")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsLost))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.hotplug.WithLabelValues("removal")))
}
