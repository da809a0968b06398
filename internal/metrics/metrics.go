// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Deletion outcomes.
const (
	OutcomeDeleted  = "deleted"
	OutcomeNotFound = "not_found"
	OutcomeFailed   = "failed"
	OutcomeCanceled = "canceled"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trashmob_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trashmob_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	// User deletion metrics
	UserDeletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trashmob_user_deletions_total",
			Help: "User deletion runs by outcome",
		},
		[]string{"outcome"},
	)

	UserDeletionPhaseFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trashmob_user_deletion_phase_failures_total",
			Help: "User deletion failures by the phase that failed",
		},
		[]string{"phase"},
	)

	UserDeletionRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trashmob_user_deletion_rows_total",
			Help: "Rows deleted or rewritten by committed user deletions, by phase",
		},
		[]string{"phase"},
	)

	UserDeletionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trashmob_user_deletion_duration_seconds",
			Help:    "Wall time of one user deletion run, including rollbacks",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)
)
