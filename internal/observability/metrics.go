package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	// Backend API metrics.
	BackendRequests *prometheus.CounterVec   // labels: endpoint={stations,levels}, outcome={success,error}
	BackendDuration *prometheus.HistogramVec // labels: endpoint={stations,levels}

	// Aggregation metrics.
	StationFetches      *prometheus.CounterVec // labels: outcome={success,error,timeout}
	RegionsAggregated   *prometheus.CounterVec // labels: result={ok,empty,error}
	PointsTrimmed       prometheus.Counter
	AggregationDuration prometheus.Histogram
	RegionCoverage      *prometheus.GaugeVec // labels: region

	// Refresh pipeline metrics.
	PipelineRunning    prometheus.Gauge
	SnapshotsPublished prometheus.Counter
	PublishErrors      prometheus.Counter
	CycleDuration      prometheus.Histogram
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := NewMetricsForTesting()

	prometheus.MustRegister(
		m.BackendRequests,
		m.BackendDuration,
		m.StationFetches,
		m.RegionsAggregated,
		m.PointsTrimmed,
		m.AggregationDuration,
		m.RegionCoverage,
		m.PipelineRunning,
		m.SnapshotsPublished,
		m.PublishErrors,
		m.CycleDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		BackendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "groundwater",
			Name:      "backend_requests_total",
			Help:      "Backend API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		BackendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "groundwater",
			Name:      "backend_request_duration_seconds",
			Help:      "Backend API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"endpoint"}),
		StationFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "groundwater",
			Name:      "station_fetches_total",
			Help:      "Per-station level fetches by outcome.",
		}, []string{"outcome"}),
		RegionsAggregated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "groundwater",
			Name:      "regions_aggregated_total",
			Help:      "Region aggregations by result.",
		}, []string{"result"}),
		PointsTrimmed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "groundwater",
			Name:      "points_trimmed_total",
			Help:      "Trailing series points dropped for low station coverage.",
		}),
		AggregationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "groundwater",
			Name:      "aggregation_duration_seconds",
			Help:      "Duration of a complete region aggregation, fetches included.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		RegionCoverage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "groundwater",
			Name:      "region_latest_coverage_ratio",
			Help:      "Fraction of region stations reporting on the latest retained date.",
		}, []string{"region"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "groundwater",
			Name:      "pipeline_running",
			Help:      "1 when the refresh pipeline is active, 0 when shut down.",
		}),
		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "groundwater",
			Name:      "snapshots_published_total",
			Help:      "Region snapshots handed to the snapshot loaders.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "groundwater",
			Name:      "publish_errors_total",
			Help:      "Failed snapshot batch loads.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "groundwater",
			Name:      "refresh_cycle_duration_seconds",
			Help:      "Duration of a complete refresh cycle over all tracked regions.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
}
