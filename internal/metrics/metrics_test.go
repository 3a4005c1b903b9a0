package metrics_test

import (
	"strings"
	"testing"

	"github.com/UnknownOlympus/coordinfo/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)

	m.RowsProcessed.WithLabelValues("enriched").Add(3)
	m.RowsProcessed.WithLabelValues("empty").Inc()
	m.RowsWritten.Add(100)
	m.BatchesFlushed.Inc()
	m.CurrentRow.Set(42)
	m.Timeouts.Inc()
	m.APIErrors.WithLabelValues("service").Inc()
	m.RequestSeconds.WithLabelValues("nominatim").Observe(0.2)

	assert.InDelta(t, 3, testutil.ToFloat64(m.RowsProcessed.WithLabelValues("enriched")), 0)
	assert.InDelta(t, 42, testutil.ToFloat64(m.CurrentRow), 0)

	expected := `
# HELP coordinfo_rows_written_total Total number of enriched rows appended to the output file.
# TYPE coordinfo_rows_written_total counter
coordinfo_rows_written_total 100
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "coordinfo_rows_written_total"))

	count, err := testutil.GatherAndCount(reg, "coordinfo_rows_processed_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestNewMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.NewMetrics(reg)

	assert.Panics(t, func() {
		metrics.NewMetrics(reg)
	})
}
