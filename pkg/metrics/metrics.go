// Package metrics holds the Prometheus collectors for document editing,
// persistence and evaluation.
//
// A nil *Metrics is valid and records nothing, so packages can take one as
// an optional dependency.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "lignin"

// Metrics groups every collector. Create one per registry with New.
type Metrics struct {
	mutations   *prometheus.CounterVec
	noops       *prometheus.CounterVec
	historyOps  *prometheus.CounterVec
	nodes       prometheus.Gauge
	parts       prometheus.Gauge
	loads       *prometheus.CounterVec
	evalLatency *prometheus.HistogramVec
	evalCache   *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// Labels: action (add_primitive, boolean, remove, ...)
		mutations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "mutations_total",
			Help:      "Mutations applied to the document, by action",
		}, []string{"action"}),

		// Labels: action
		noops: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "noops_total",
			Help:      "Mutations ignored because of stale or invalid arguments, by action",
		}, []string{"action"}),

		// Labels: op (undo, redo)
		historyOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "history_ops_total",
			Help:      "Undo and redo steps taken",
		}, []string{"op"}),

		nodes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "nodes",
			Help:      "Nodes in the live document",
		}),

		parts: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "parts",
			Help:      "Live parts in the document",
		}),

		// Labels: format (verbose, compact), status (ok, error)
		loads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "persist",
			Name:      "loads_total",
			Help:      "Documents loaded, by format and outcome",
		}, []string{"format", "status"}),

		// Labels: status (ok, error, canceled)
		evalLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "eval",
			Name:      "duration_seconds",
			Help:      "Document evaluation latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}, []string{"status"}),

		// Labels: result (hit, miss)
		evalCache: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "eval",
			Name:      "cache_lookups_total",
			Help:      "Solid cache lookups during evaluation",
		}, []string{"result"}),
	}
}

// RecordMutation counts an applied mutation and updates the size gauges.
func (m *Metrics) RecordMutation(action string, nodes, parts int) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(action).Inc()
	m.SetSize(nodes, parts)
}

// RecordNoop counts a mutation that changed nothing.
func (m *Metrics) RecordNoop(action string) {
	if m == nil {
		return
	}
	m.noops.WithLabelValues(action).Inc()
}

// RecordHistory counts an undo or redo step.
func (m *Metrics) RecordHistory(op string) {
	if m == nil {
		return
	}
	m.historyOps.WithLabelValues(op).Inc()
}

// SetSize sets the node and part gauges.
func (m *Metrics) SetSize(nodes, parts int) {
	if m == nil {
		return
	}
	m.nodes.Set(float64(nodes))
	m.parts.Set(float64(parts))
}

// RecordLoad counts a document load.
func (m *Metrics) RecordLoad(format string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.loads.WithLabelValues(format, status).Inc()
}

// RecordEval observes one evaluation.
func (m *Metrics) RecordEval(status string, seconds float64) {
	if m == nil {
		return
	}
	m.evalLatency.WithLabelValues(status).Observe(seconds)
}

// RecordCache counts a solid cache lookup.
func (m *Metrics) RecordCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.evalCache.WithLabelValues(result).Inc()
}
