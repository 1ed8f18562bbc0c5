// Package metrics exposes the Prometheus metrics of the news cache.
// All metrics are defined in their respective packages (cache, client,
// ratelimit, news) and registered via promauto, which keeps this package
// free of import cycles.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves the registered metrics in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - news_cache_hits_total{layer} (Counter): Response cache hits by layer (redis, memory)
//   - news_cache_misses_total{layer} (Counter): Response cache misses by layer
//   - news_cache_stored_bytes_total{layer} (Counter): Response bytes written
//   - news_cache_prefer_decisions_total{result} (Counter): Freshness decisions (fresh, stale, not_cached, no_metadata)
//   - news_cache_records_written_total (Counter): Metadata records written after network fetches
//   - news_cache_parent_purges_total (Counter): Page records purged after a first-page refresh
//   - news_304_responses_total (Counter): 304 Not Modified responses
//   - news_conditional_requests_total (Counter): Conditional requests sent
//   - news_cache_errors_total{operation} (Counter): Cache operation errors
//
// Quota Metrics (pkg/ratelimit):
//   - news_api_requests_remaining (Gauge): Requests remaining in the quota window
//   - news_rate_limit_blocks_total (Counter): Requests blocked due to critical quota
//   - news_rate_limit_throttles_total (Counter): Requests throttled due to low quota
//
// Request Metrics (pkg/client):
//   - news_requests_total{endpoint, status} (Counter): Requests by endpoint and outcome ("cache", "200", "304", ...)
//   - news_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - news_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - news_retries_total{error_class} (Counter): Retry attempts by error class
//   - news_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - news_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Topic Metrics (pkg/news):
//   - news_topics_lookups_total{source} (Counter): Topic lookups by source (local, remote, stale_local)
//
// Example Prometheus Queries:
//
//   # Share of requests answered without the network
//   sum(rate(news_requests_total{status="cache"}[5m])) / sum(rate(news_requests_total[5m]))
//
//   # Freshness decision breakdown
//   sum by (result) (rate(news_cache_prefer_decisions_total[5m]))
//
//   # Quota status
//   news_api_requests_remaining < 20
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(news_request_duration_seconds_bucket[5m]))
