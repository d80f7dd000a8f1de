package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.RecordApplied("READ")
	m.RecordApplied("READ")
	m.RecordApplied("WRITE")
	m.UnknownProcess()
	m.BytesRead(128)
	m.BytesRead(-5)
	m.CacheHit()
	m.CacheMiss()
	m.CacheMiss()
	m.SessionFinished("complete", 0.5)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.records.WithLabelValues("READ")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.records.WithLabelValues("WRITE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.unknownProcesses))
	assert.Equal(t, 128.0, testutil.ToFloat64(m.bytesRead))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheHits))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheMisses))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessions.WithLabelValues("complete")))
}

func TestMetrics_PrivateRegistries(t *testing.T) {
	a := New()
	b := New()
	a.UnknownProcess()

	assert.Equal(t, 0.0, testutil.ToFloat64(b.unknownProcesses))

	families, err := a.Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordApplied("READ")
		m.UnknownProcess()
		m.BytesRead(1)
		m.SessionFinished("failed", 1)
		m.CacheHit()
		m.CacheMiss()
	})
}
