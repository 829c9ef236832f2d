package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	require.NoError(t, m.Track("mail:send").End(nil))
	boom := errors.New("smtp down")
	assert.Same(t, boom, m.Track("mail:send").End(boom))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("mail:send", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("mail:send", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("mail:send")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestAddProducedIgnoresEmptyRuns(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.AddProduced("devices:control-reminders", 0)
	m.AddProduced("devices:control-reminders", 3)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.produced.WithLabelValues("devices:control-reminders")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.AddProduced("x", 1)
	assert.NoError(t, m.Track("x").End(nil))
}
