package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gw_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for one run.
type Metrics struct {
	UpstreamRequests *prometheus.CounterVec   // labels: agency, feed, outcome={success,not_found,error}
	UpstreamDuration *prometheus.HistogramVec // labels: agency, feed

	MeasurementsImported *prometheus.CounterVec // labels: agency
	MeasurementsRejected *prometheus.CounterVec // labels: agency
	DuplicatesRemoved    *prometheus.CounterVec // labels: agency
	UnmappedCodes        *prometheus.CounterVec // labels: agency, category
	MissingSites         *prometheus.CounterVec // labels: agency

	SitesWritten          prometheus.Gauge
	MeasurementsWritten   prometheus.Gauge
	MeasurementsPublished prometheus.Counter
	RunDuration           prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewMetrics creates all run metrics and registers them with reg. When reg is
// also a Gatherer (as *prometheus.Registry is), WriteTextfile can dump them.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(m.collectors()...)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

func newMetrics() *Metrics {
	return &Metrics{
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Agency web service requests by feed and outcome.",
		}, []string{"agency", "feed", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Agency web service request duration in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"agency", "feed"}),
		MeasurementsImported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "measurements_imported_total",
			Help:      "Measurements normalized by each importer.",
		}, []string{"agency"}),
		MeasurementsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "measurements_rejected_total",
			Help:      "Rows dropped because their date or time could not be parsed.",
		}, []string{"agency"}),
		DuplicatesRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_removed_total",
			Help:      "Measurements dropped in favor of a higher-precedence agency.",
		}, []string{"agency"}),
		UnmappedCodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unmapped_codes_total",
			Help:      "Source codes with no canonical mapping.",
		}, []string{"agency", "category"}),
		MissingSites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "missing_sites_total",
			Help:      "Collection sites for which an agency returned no data.",
		}, []string{"agency"}),
		SitesWritten: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sites_written",
			Help:      "Sites written to the summary file by the last run.",
		}),
		MeasurementsWritten: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "measurements_written",
			Help:      "Measurements written to the waterlevel file by the last run.",
		}),
		MeasurementsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "measurements_published_total",
			Help:      "Measurements published to Kafka.",
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.MeasurementsImported,
		m.MeasurementsRejected,
		m.DuplicatesRemoved,
		m.UnmappedCodes,
		m.MissingSites,
		m.SitesWritten,
		m.MeasurementsWritten,
		m.MeasurementsPublished,
		m.RunDuration,
	}
}

// WriteTextfile dumps the registered metrics in node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m.gatherer == nil {
		return fmt.Errorf("write metrics %s: registry cannot be gathered", path)
	}
	if err := prometheus.WriteToTextfile(path, m.gatherer); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
