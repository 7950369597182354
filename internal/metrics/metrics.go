// Package metrics holds the Prometheus collectors exposed on the ops server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests tracks served requests by method, route template and status
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rubik_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPLatency tracks request handling time
	HTTPLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rubik_http_request_duration_seconds",
			Help:    "Latency of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Registrations counts accounts created through self-registration
	Registrations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rubik_registrations_total",
			Help: "Total number of self-registered accounts",
		},
	)

	// ApprovalActions counts staff decisions by action (approve, reject)
	ApprovalActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rubik_approval_actions_total",
			Help: "Total number of approval queue actions",
		},
		[]string{"action"},
	)

	// PendingAccounts is the approval queue length as of the last dashboard load
	PendingAccounts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rubik_pending_accounts",
			Help: "Number of accounts awaiting approval",
		},
	)

	// SearchRequests counts provider calls by outcome (ok, error)
	SearchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rubik_search_requests_total",
			Help: "Total number of search provider calls by outcome",
		},
		[]string{"outcome"},
	)

	// TitleFetches counts title lookups by outcome
	TitleFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rubik_title_fetches_total",
			Help: "Total number of result title fetches by outcome",
		},
		[]string{"outcome"},
	)
)
