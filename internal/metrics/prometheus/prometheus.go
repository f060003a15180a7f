// internal/metrics/prometheus/prometheus.go
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Config struct {
	Namespace string
	Subsystem string
}

func DefaultConfig() *Config {
	return &Config{
		Namespace: "bridge",
		Subsystem: "core",
	}
}

// Metrics implements metrics.Recorder on a prometheus registry.
type Metrics struct {
	connected    prometheus.Gauge
	sessionsLost prometheus.Counter
	hotplug      *prometheus.CounterVec
	transactions *prometheus.CounterVec
	bytes        *prometheus.CounterVec
	ticks        *prometheus.CounterVec
}

// New registers every collector on reg.
func New(reg prometheus.Registerer, conf *Config) *Metrics {
	if conf == nil {
		conf = DefaultConfig()
	}
	m := &Metrics{
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: conf.Namespace, Subsystem: conf.Subsystem,
			Name: "connected", Help: "1 while a bridge session is connected"}),
		sessionsLost: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: conf.Namespace, Subsystem: conf.Subsystem,
			Name: "sessions_lost_total", Help: "Sessions torn down because the device disappeared"}),
		hotplug: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: conf.Namespace, Subsystem: conf.Subsystem,
			Name: "hotplug_events_total", Help: "Hot-plug notifications handled"}, []string{"event"}),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: conf.Namespace, Subsystem: conf.Subsystem,
			Name: "transactions_total", Help: "Hardware transactions by operation and result code"}, []string{"op", "code"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: conf.Namespace, Subsystem: conf.Subsystem,
			Name: "transferred_total", Help: "Bytes or channels transferred, partial transfers included"}, []string{"op"}),
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: conf.Namespace, Subsystem: conf.Subsystem,
			Name: "poll_ticks_total", Help: "GPIO polling ticks"}, []string{"result"}),
	}
	reg.MustRegister(m.connected, m.sessionsLost, m.hotplug, m.transactions, m.bytes, m.ticks)
	return m
}

func (m *Metrics) Connected(up bool) {
	if up {
		m.connected.Set(1)
		return
	}
	m.connected.Set(0)
}

func (m *Metrics) SessionLost() { m.sessionsLost.Inc() }

func (m *Metrics) Hotplug(event string) { m.hotplug.WithLabelValues(event).Inc() }

func (m *Metrics) Transaction(op string, code string, n int) {
	m.transactions.WithLabelValues(op, code).Inc()
	if n > 0 {
		m.bytes.WithLabelValues(op).Add(float64(n))
	}
}

func (m *Metrics) PollTick(dropped bool) {
	if dropped {
		m.ticks.WithLabelValues("dropped").Inc()
		return
	}
	m.ticks.WithLabelValues("read").Inc()
}
