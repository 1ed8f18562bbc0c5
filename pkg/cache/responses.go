package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultRetention is how long response bodies are kept. Freshness is
	// decided by the Manager, so this only bounds storage.
	DefaultRetention = 7 * 24 * time.Hour

	// ResponseKeyPrefix prefixes every response cache key in Redis.
	ResponseKeyPrefix = "news:resp:"
)

// RedisResponses is a response byte cache backed by Redis.
type RedisResponses struct {
	redis     *redis.Client
	retention time.Duration
}

// NewRedisResponses creates a Redis response cache. A non-positive
// retention selects DefaultRetention.
func NewRedisResponses(redisClient *redis.Client, retention time.Duration) *RedisResponses {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &RedisResponses{
		redis:     redisClient,
		retention: retention,
	}
}

func responseKey(url string) string {
	return ResponseKeyPrefix + url
}

// Get retrieves the cached response for url.
// Returns ErrCacheMiss if the key doesn't exist.
func (r *RedisResponses) Get(ctx context.Context, url string) (*CacheEntry, error) {
	data, err := r.redis.Get(ctx, responseKey(url)).Bytes()
	if err != nil {
		if err == redis.Nil {
			CacheMisses.WithLabelValues("redis").Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	CacheHits.WithLabelValues("redis").Inc()
	return &entry, nil
}

// Set stores the response for url for the configured retention.
func (r *RedisResponses) Set(ctx context.Context, url string, entry *CacheEntry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := r.redis.Set(ctx, responseKey(url), data, r.retention).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	CacheStoredBytes.WithLabelValues("redis").Add(float64(len(entry.Data)))
	return nil
}

// Delete removes the cached response for url.
func (r *RedisResponses) Delete(ctx context.Context, url string) error {
	if err := r.redis.Del(ctx, responseKey(url)).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// URLs lists every URL with a cached response.
func (r *RedisResponses) URLs(ctx context.Context) ([]string, error) {
	var urls []string
	iter := r.redis.Scan(ctx, 0, ResponseKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		urls = append(urls, strings.TrimPrefix(iter.Val(), ResponseKeyPrefix))
	}
	if err := iter.Err(); err != nil {
		CacheErrors.WithLabelValues("urls").Inc()
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return urls, nil
}
