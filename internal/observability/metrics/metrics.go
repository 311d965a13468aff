package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters/histograms for the availability editor.
type SchedulingMetrics struct {
	toggleTotal *prometheus.CounterVec
	syncTotal   *prometheus.CounterVec
	syncLatency *prometheus.HistogramVec
	bulkTotal   *prometheus.CounterVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		toggleTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telecare",
			Subsystem: "schedule",
			Name:      "toggle_total",
			Help:      "Total slot toggle attempts by outcome",
		}, []string{"outcome"}),
		syncTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telecare",
			Subsystem: "schedule",
			Name:      "sync_calls_total",
			Help:      "Total availability store calls",
		}, []string{"op", "status"}),
		syncLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "telecare",
			Subsystem: "schedule",
			Name:      "sync_latency_seconds",
			Help:      "Latency of availability store calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		bulkTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telecare",
			Subsystem: "schedule",
			Name:      "bulk_ops_total",
			Help:      "Total bulk schedule operations",
		}, []string{"kind", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.toggleTotal, m.syncTotal, m.syncLatency, m.bulkTotal)
	return m
}

func (m *SchedulingMetrics) ObserveToggle(outcome string) {
	if m == nil {
		return
	}
	m.toggleTotal.WithLabelValues(outcome).Inc()
}

func (m *SchedulingMetrics) ObserveSync(op, status string, seconds float64) {
	if m == nil {
		return
	}
	m.syncTotal.WithLabelValues(op, status).Inc()
	m.syncLatency.WithLabelValues(op).Observe(seconds)
}

func (m *SchedulingMetrics) ObserveBulk(kind, status string) {
	if m == nil {
		return
	}
	m.bulkTotal.WithLabelValues(kind, status).Inc()
}
