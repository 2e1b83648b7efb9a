// Package metrics provides Prometheus metrics for the HTTP surface and the
// dataset pipelines.
//
// HTTP:
//   - http_request_total: Counter with method, path, and status labels
//   - http_request_duration_seconds: Histogram with method and path labels
//   - http_request_in_flight: Gauge for concurrent requests
//
// Pipelines:
//   - dataset_loads_total: Counter with dataset and result labels
//   - dataset_load_duration_seconds: Histogram with dataset label
//   - dataset_entities: Gauge with dataset label
//   - dataset_rows_dropped_total: Counter with dataset label
//   - cache_persist_failures_total: Counter with dataset and reason labels
//   - cache_hydrations_total: Counter with dataset label
//
// All metrics are registered with the Prometheus default registry during
// package initialization.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	DatasetLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataset_loads_total",
			Help: "Dataset fetch+parse+store cycles by result",
		},
		[]string{"dataset", "result"},
	)

	DatasetLoadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dataset_load_duration_seconds",
			Help:    "Duration of a dataset fetch+parse+store cycle",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"dataset"},
	)

	DatasetEntities = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dataset_entities",
			Help: "Entities currently held per dataset",
		},
		[]string{"dataset"},
	)

	DatasetRowsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataset_rows_dropped_total",
			Help: "Feed rows dropped during normalization",
		},
		[]string{"dataset"},
	)

	CachePersistFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_persist_failures_total",
			Help: "Durable snapshot writes that fell back to memory-only",
		},
		[]string{"dataset", "reason"},
	)

	CacheHydrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hydrations_total",
			Help: "Datasets restored from a fresh durable snapshot",
		},
		[]string{"dataset"},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets (IPs seen recently)",
		},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(DatasetLoads)
	prometheus.MustRegister(DatasetLoadDuration)
	prometheus.MustRegister(DatasetEntities)
	prometheus.MustRegister(DatasetRowsDropped)
	prometheus.MustRegister(CachePersistFailures)
	prometheus.MustRegister(CacheHydrations)
	prometheus.MustRegister(RateLimiterBucketsTotal)
}
