// Package metrics defines Prometheus metrics for trail.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trail_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trail_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trail_errors_total",
			Help: "Total errors by type",
		},
		[]string{"type"},
	)

	VersionsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trail_versions_recorded_total",
			Help: "Versions appended, by item type and event",
		},
		[]string{"item_type", "event"},
	)

	VersionsDeleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trail_versions_deleted_total",
			Help: "Version rows deleted by the row limit",
		},
		[]string{"item_type"},
	)

	FieldsCleared = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trail_fields_cleared_total",
			Help: "Version payload fields cleared by the field limits",
		},
		[]string{"item_type", "field"},
	)

	CleanerDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trail_cleaner_duration_seconds",
			Help:    "Duration of retention enforcement runs that touched the store",
			Buckets: prometheus.DefBuckets,
		},
	)

	CleanerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trail_cleaner_failures_total",
			Help: "Retention enforcement runs that failed",
		},
		[]string{"item_type"},
	)

	SweepQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "trail_sweep_queue_depth",
			Help: "Current sweep job queue depth",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration, RequestsTotal, ErrorsTotal,
		VersionsRecorded, VersionsDeleted, FieldsCleared,
		CleanerDuration, CleanerFailures, SweepQueueDepth,
	)
}
