// Package metrics provides the Prometheus collectors of rxpad.
//
// HTTP collectors:
//   - http_request_total: Counter with method, path, and status labels
//   - http_request_duration_seconds: Histogram with method and path labels
//   - http_request_in_flight: Gauge for concurrent requests
//
// Domain collectors cover suggestion queries, catalog sizes and reloads,
// history writes and backend calls. Everything is registered with the
// default registry during package initialization.
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

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets (IPs seen in last ~5 minutes)",
		},
	)

	SuggestionQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suggestion_queries_total",
			Help: "Suggestion queries issued to a source, by outcome",
		},
		[]string{"outcome"},
	)

	KeystrokesCoalescedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "suggestion_keystrokes_coalesced_total",
			Help: "Text changes absorbed by the debounce window without a query",
		},
	)

	StaleResultsDiscardedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "suggestion_stale_results_discarded_total",
			Help: "Query results dropped because a newer query was issued",
		},
	)

	CatalogItems = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_items",
			Help: "Number of items loaded per catalog",
		},
		[]string{"catalog"},
	)

	CatalogReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_reloads_total",
			Help: "Catalog reloads, by status",
		},
		[]string{"status"},
	)

	HistoryWriteFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "history_write_failures_total",
			Help: "Recent-search history writes that failed and were ignored",
		},
	)

	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_requests_total",
			Help: "Requests to the prescription backend, by operation and result",
		},
		[]string{"operation", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestTotals,
		HTTPRequestDuration,
		HTTPRequestInFlight,
		RateLimiterBucketsTotal,
		SuggestionQueriesTotal,
		KeystrokesCoalescedTotal,
		StaleResultsDiscardedTotal,
		CatalogItems,
		CatalogReloadsTotal,
		HistoryWriteFailuresTotal,
		BackendRequestsTotal,
	)
}
