package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ripple_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// VotesApplied counts vote transactions by outcome (created, flipped, unchanged).
	VotesApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ripple_votes_applied_total",
		Help: "Total number of vote transactions by outcome",
	}, []string{"outcome"})

	// VoteConflictRetries counts first-vote races recovered via the update path.
	VoteConflictRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ripple_vote_conflict_retries_total",
		Help: "Total number of vote inserts retried as updates after a uniqueness conflict",
	})

	// FeedPageLatency records feed page query latency.
	FeedPageLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ripple_feed_page_seconds",
		Help:    "Feed page query latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// LoaderBatchSize records the number of distinct keys per batched fetch.
	LoaderBatchSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ripple_loader_batch_size",
		Help:    "Distinct keys per batched loader fetch",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
	}, []string{"loader"})
)
