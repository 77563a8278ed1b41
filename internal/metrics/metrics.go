package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP Metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Cache Metrics
	CacheRequestsTotal *prometheus.CounterVec

	// Application Metrics
	IPLookupsTotal  *prometheus.CounterVec
	IPLookupsErrors *prometheus.CounterVec

	// Refresh Metrics
	RefreshRunsTotal    *prometheus.CounterVec
	RefreshDuration     prometheus.Histogram
	SnapshotReloads     *prometheus.CounterVec
	SnapshotBuildEpoch  prometheus.Gauge
	SnapshotLoadedAtSec prometheus.Gauge
}

// New creates and registers all Prometheus metrics with the default registry
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates all metrics and registers them with reg
// Tests pass a fresh prometheus.NewRegistry() to avoid duplicate registration
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint", "status"},
		),

		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 7),
			},
			[]string{"method", "endpoint", "status"},
		),

		CacheRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "record_cache_requests_total",
				Help: "Total number of record cache requests by result",
			},
			[]string{"cache", "result"},
		),

		IPLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ip_lookups_total",
				Help: "Total number of IP lookups",
			},
			[]string{"result"},
		),

		IPLookupsErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ip_lookups_errors_total",
				Help: "Total number of IP lookups answered with an empty record because of an error",
			},
			[]string{"error_type"},
		),

		RefreshRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "refresh_runs_total",
				Help: "Total number of database refresh runs by outcome",
			},
			[]string{"outcome"},
		),

		RefreshDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "refresh_duration_seconds",
				Help:    "Duration of the external updater invocation in seconds",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
			},
		),

		SnapshotReloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snapshot_reloads_total",
				Help: "Total number of snapshot reload attempts by result",
			},
			[]string{"trigger", "result"},
		),

		SnapshotBuildEpoch: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "snapshot_build_epoch_seconds",
				Help: "Build epoch of the currently published database snapshot",
			},
		),

		SnapshotLoadedAtSec: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "snapshot_loaded_at_seconds",
				Help: "Unix time the currently published snapshot was opened",
			},
		),
	}
}
