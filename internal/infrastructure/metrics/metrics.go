// Package metrics holds the Prometheus collectors shared by the HTTP layer and the usecases.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts HTTP requests partitioned by method, route, and status code
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration observes request latency in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// LedgerObservations counts upserts by outcome (inserted, merged, duplicate, stale)
	LedgerObservations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_observations_total",
			Help: "Price observations received by the ledger, by outcome",
		},
		[]string{"outcome"},
	)

	// LedgerConflicts counts optimistic write conflicts that triggered a retry
	LedgerConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_write_conflicts_total",
			Help: "Ledger read-modify-write attempts lost to a concurrent writer",
		},
	)

	// CascadeResolutions counts which tier produced the price of a resolution
	CascadeResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cascade_resolutions_total",
			Help: "Item resolutions by the tier that produced the price",
		},
		[]string{"tier"},
	)

	// RepricedItems counts store-switch item outcomes (updated, preserved, unchanged, failed)
	RepricedItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_switch_items_total",
			Help: "Items processed by store switches, by outcome",
		},
		[]string{"outcome"},
	)
)
