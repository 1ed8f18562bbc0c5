// Package cache decides when a cached news API response is fresh enough to
// be served without a network round-trip.
//
// Three stores cooperate:
//
//   - a response byte cache (RedisResponses, MemoryResponses) holding raw
//     response bodies keyed by exact request URL
//   - a metadata store (see package metadata) holding one CacheRecord per
//     URL with its parent URL and fetch time
//   - the Manager, which reads both to answer IsPreferCache and writes the
//     metadata store in RecordFetch
//
// # Parent URLs
//
// Pages of the trendings endpoint share a parent URL: the request URL with
// its page parameter removed. Refetching the parent from the network
// deletes the records of every page filed under it, so stale pages are
// revalidated the next time they are requested.
//
//	cache.ParentURL("https://api.com/v2/trendings?topic=general&language=en&page=3")
//	// https://api.com/v2/trendings?topic=general&language=en
//
// # Freshness
//
// A cached response is preferred only while its record is younger than
// Policy.MaxAge AND was written on the same calendar day as now, in
// Policy.Location. The age is an absolute difference, so clock skew does
// not produce negative ages.
//
// # Basic Usage
//
//	responses := cache.NewRedisResponses(redisClient, cache.DefaultRetention)
//	store, _ := metadata.OpenSQLite("news.db")
//	manager := cache.NewManager(responses, store)
//
//	prefer, err := manager.IsPreferCache(ctx, url)
//	if err != nil || !prefer {
//		// fetch from the network, then:
//		_ = responses.Set(ctx, url, entry)
//		_ = manager.RecordFetch(ctx, url)
//	}
//
// # Metrics
//
//   - news_cache_hits_total{layer} - Response cache hits
//   - news_cache_misses_total{layer} - Response cache misses
//   - news_cache_stored_bytes_total{layer} - Body bytes written
//   - news_cache_prefer_decisions_total{result} - Freshness decisions
//   - news_cache_records_written_total - Metadata records written
//   - news_cache_parent_purges_total - Page purges after parent refresh
//   - news_304_responses_total - Conditional request successes
//   - news_conditional_requests_total - Conditional requests sent
//   - news_cache_errors_total{operation} - Cache operation errors
package cache
