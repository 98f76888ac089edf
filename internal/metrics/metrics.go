// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinehub_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinehub_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	ReviewMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinehub_review_mutations_total",
			Help: "Review create/edit/delete operations that committed.",
		},
		[]string{"op"},
	)

	ReviewVotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinehub_review_votes_total",
			Help: "Review helpfulness votes by outcome (added, retracted, switched).",
		},
		[]string{"outcome"},
	)

	VoteConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinehub_review_vote_conflicts_total",
			Help: "Vote writes that lost a compare-and-swap race.",
		},
	)

	AggregateRecomputeFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinehub_aggregate_recompute_failures_total",
			Help: "Rating recomputations that failed after a committed review write.",
		},
	)

	FeedClients = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cinehub_feed_clients",
			Help: "Connected activity feed clients by transport.",
		},
		[]string{"transport"},
	)
)

func RecordHTTPRequest(method, route, status string, d time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
