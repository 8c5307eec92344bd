package observability

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)
	assert.Panics(t, func() { NewMetrics(reg) })
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetricsForTesting()

	m.UnmappedCodes.WithLabelValues("OWRD", "method").Inc()
	m.UnmappedCodes.WithLabelValues("OWRD", "method").Inc()
	m.DuplicatesRemoved.WithLabelValues("CDWR").Add(3)

	assert.InDelta(t, 2, testutil.ToFloat64(m.UnmappedCodes.WithLabelValues("OWRD", "method")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.DuplicatesRemoved.WithLabelValues("CDWR")), 0)
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := NewMetricsForTesting()
	m.SitesWritten.Set(12)
	m.UpstreamRequests.WithLabelValues("USGS", "gwlevels", "success").Inc()

	path := filepath.Join(t.TempDir(), "gw_etl.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "gw_etl_sites_written 12")
	assert.Contains(t, string(data), `gw_etl_upstream_requests_total{agency="USGS",feed="gwlevels",outcome="success"} 1`)
}

func TestMetrics_WriteTextfileWithoutGatherer(t *testing.T) {
	m := &Metrics{}
	err := m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom"))
	require.Error(t, err)
}
