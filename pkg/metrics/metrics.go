// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks gateway HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Gateway HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total gateway HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Total gateway HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// BackendRequestDuration tracks requests issued to the analyzer backend.
	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backend_request_duration_seconds",
			Help:    "Analyzer backend request duration in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "status"},
	)

	// StoreFetchesTotal counts store fetches by outcome.
	StoreFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_fetches_total",
			Help: "Store fetch operations by outcome",
		},
		[]string{"store", "outcome"},
	)

	// StoreEntries tracks the number of cached entities per store.
	StoreEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "store_entries",
			Help: "Cached entities per store",
		},
		[]string{"store"},
	)

	// EventsPublishedTotal counts store events pushed to the event bus.
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_events_published_total",
			Help: "Store change events published to NATS",
		},
		[]string{"store", "result"},
	)

	// DigestDuration tracks LLM digest generation.
	DigestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "digest_duration_seconds",
			Help:    "Dashboard digest generation duration",
			Buckets: []float64{.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"provider", "status"},
	)
)

// Store fetch outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
	OutcomeDenied  = "unauthenticated"
	OutcomeCached  = "cached"
)

// RecordRequest records metrics for a gateway HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordBackendRequest records metrics for a request sent to the backend.
func RecordBackendRequest(method, status string, duration float64) {
	BackendRequestDuration.WithLabelValues(method, status).Observe(duration)
}

// RecordFetch records a store fetch outcome.
func RecordFetch(store, outcome string) {
	StoreFetchesTotal.WithLabelValues(store, outcome).Inc()
}

// SetEntries records the current cache size of a store.
func SetEntries(store string, n int) {
	StoreEntries.WithLabelValues(store).Set(float64(n))
}

// RecordDigest records metrics for a digest generation.
func RecordDigest(provider, status string, duration float64) {
	DigestDuration.WithLabelValues(provider, status).Observe(duration)
}
