package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersAllMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	require.NotNil(t, m)

	m.CacheHits.Inc()
	m.CacheMisses.Inc()
	m.CacheEvictions.Inc()
	m.CompileDuration.WithLabelValues("conversion").Observe(0.01)
	m.AffectedSetSize.Observe(3)
	m.Compiles.WithLabelValues("success").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNewPanicsOnDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) }, "promauto registering the same metric names twice must panic")
}
