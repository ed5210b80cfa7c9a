package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return New(reg), reg
}

func TestRecordMutation(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordMutation("add_primitive", 4, 1)
	m.RecordMutation("add_primitive", 8, 2)
	m.RecordMutation("boolean", 12, 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.mutations.WithLabelValues("add_primitive")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mutations.WithLabelValues("boolean")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.nodes))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.parts))
}

func TestRecordNoopAndHistory(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordNoop("remove")
	m.RecordHistory("undo")
	m.RecordHistory("undo")
	m.RecordHistory("redo")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.noops.WithLabelValues("remove")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.historyOps.WithLabelValues("undo")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.historyOps.WithLabelValues("redo")))
}

func TestRecordLoadAndEval(t *testing.T) {
	m, reg := newTestMetrics(t)

	m.RecordLoad("compact", nil)
	m.RecordLoad("verbose", errors.New("bad"))
	m.RecordEval("ok", 0.02)
	m.RecordCache(true)
	m.RecordCache(false)
	m.RecordCache(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.loads.WithLabelValues("compact", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loads.WithLabelValues("verbose", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.evalCache.WithLabelValues("miss")))

	n, err := testutil.GatherAndCount(reg, "lignin_eval_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordMutation("x", 1, 1)
		m.RecordNoop("x")
		m.RecordHistory("undo")
		m.SetSize(1, 1)
		m.RecordLoad("compact", nil)
		m.RecordEval("ok", 1)
		m.RecordCache(true)
	})
}

func TestDoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
