package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirp_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryDuration records GORM statement latency by outcome.
	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chirp_database_query_duration_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})

	// RateLimitDecisions counts limiter outcomes per resource.
	// decision is one of allowed, denied, error.
	RateLimitDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirp_rate_limit_decisions_total",
		Help: "Rate limiter decisions by resource and outcome",
	}, []string{"resource", "decision"})

	// IdentityLookups counts identity provider calls by provider and outcome.
	IdentityLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirp_identity_lookups_total",
		Help: "Identity provider lookups by provider and outcome",
	}, []string{"provider", "outcome"})

	// IdentityLookupDuration records identity provider call latency.
	IdentityLookupDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chirp_identity_lookup_duration_seconds",
		Help:    "Identity provider lookup latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	// PostsCreated counts successfully stored posts.
	PostsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chirp_posts_created_total",
		Help: "Total number of posts created",
	})

	// LikeMutations counts applied like and unlike operations.
	LikeMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirp_like_mutations_total",
		Help: "Like and unlike operations by action and result",
	}, []string{"action", "result"})
)

// RecordRateLimitDecision increments the decision counter for resource.
func RecordRateLimitDecision(resource, decision string) {
	RateLimitDecisions.WithLabelValues(resource, decision).Inc()
}

// RecordIdentityLookup increments the lookup counter for provider.
func RecordIdentityLookup(provider, outcome string) {
	IdentityLookups.WithLabelValues(provider, outcome).Inc()
}
