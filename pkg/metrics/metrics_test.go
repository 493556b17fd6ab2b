package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.AddRequests(3)
	m.AddWrites(2)
	m.CacheLookup(true)
	m.CacheLookup(false)
	m.CacheLookup(false)
	m.JobFinished("success")
	m.SetRateLimitRemaining(42)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.requestsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.writesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookupsTotal.WithLabelValues(ResultHit)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookupsTotal.WithLabelValues(ResultMiss)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobsTotal.WithLabelValues("success")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.rateLimitRemaining))

	families, err := registry.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 5)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.AddRequests(1)
		m.AddWrites(1)
		m.CacheLookup(true)
		m.JobFinished("failed")
		m.SetRateLimitRemaining(1)
	})
}

func TestNew_NilRegistry(t *testing.T) {
	m := New(nil)
	m.AddRequests(1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal))
}
