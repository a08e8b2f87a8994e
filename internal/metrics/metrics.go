// Package metrics declares the Prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "reproom"

var (
	// EngagementEvents counts accepted engagement mutations by kind
	// (reaction_add, reaction_remove, reaction_change, comment, view).
	EngagementEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engagement_events_total",
			Help:      "Engagement events recorded, by kind",
		},
		[]string{"kind"},
	)

	// ViewFailures counts view increments that failed and were swallowed.
	ViewFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "view_failures_total",
			Help:      "View increments that could not be recorded",
		},
	)

	// ChallengeTransitions counts challenge status changes by target status.
	ChallengeTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "challenge_transitions_total",
			Help:      "Challenge transitions, by resulting status",
		},
		[]string{"status"},
	)

	// LedgerRecomputes counts engagement recomputes of a user's points.
	LedgerRecomputes = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_recomputes_total",
			Help:      "Point recomputes from engagement",
		},
	)

	// PointsMoved sums absolute points moved by direct ledger mutations.
	PointsMoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_moved_total",
			Help:      "Points moved by ledger entries, by entry kind",
		},
		[]string{"kind"},
	)

	// LeaderboardCache counts cache lookups by result (hit, miss, error).
	LeaderboardCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leaderboard_cache_total",
			Help:      "Leaderboard cache lookups, by result",
		},
		[]string{"result"},
	)

	// HTTPRequests counts API requests by route and status code.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of API requests",
		},
		[]string{"route", "method", "status"},
	)

	// HTTPDuration observes API latency by route.
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "API request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)
