package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestSchedulingMetricsObserve(t *testing.T) {
	m := NewSchedulingMetrics(prometheus.NewRegistry())
	m.ObserveToggle("accepted")
	m.ObserveToggle("conflict")
	m.ObserveSync("fetch", "ok", 0.1)
	m.ObserveBulk("applyWeek", "ok")
}

func TestSchedulingMetricsCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSchedulingMetrics(reg)
	m.ObserveSync("write", "error", 0.5)
}

func TestSchedulingMetricsNilSafe(t *testing.T) {
	var m *SchedulingMetrics
	m.ObserveToggle("accepted")
	m.ObserveSync("fetch", "ok", 0.1)
	m.ObserveBulk("clearMonth", "error")
}
