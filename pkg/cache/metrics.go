package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks response cache hits by layer
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "news_cache_hits_total",
			Help: "Total number of response cache hits",
		},
		[]string{"layer"}, // "redis", "memory"
	)

	// CacheMisses tracks response cache misses by layer
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "news_cache_misses_total",
			Help: "Total number of response cache misses",
		},
		[]string{"layer"},
	)

	// CacheStoredBytes tracks bytes written into the response cache
	CacheStoredBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "news_cache_stored_bytes_total",
			Help: "Total response body bytes written to the response cache",
		},
		[]string{"layer"},
	)

	// PreferDecisions tracks freshness decisions by outcome
	PreferDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "news_cache_prefer_decisions_total",
			Help: "Total freshness decisions by result",
		},
		[]string{"result"}, // "fresh", "stale", "not_cached", "no_metadata"
	)

	// RecordsWritten tracks metadata records upserted after network fetches
	RecordsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "news_cache_records_written_total",
			Help: "Total number of cache metadata records written",
		},
	)

	// ParentPurges tracks delete-by-parent runs triggered by base resource refreshes
	ParentPurges = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "news_cache_parent_purges_total",
			Help: "Total number of pagination purges after a parent refresh",
		},
	)

	// NotModifiedResponses tracks 304 Not Modified responses
	NotModifiedResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "news_304_responses_total",
			Help: "Total number of 304 Not Modified responses",
		},
	)

	// ConditionalRequestsSent tracks requests revalidated with If-None-Match or If-Modified-Since
	ConditionalRequestsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "news_conditional_requests_total",
			Help: "Total number of conditional requests sent",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "news_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "urls", "metadata_get", "metadata_upsert", "metadata_delete"
	)
)
