//go:build integration

package client

import (
	"context"
	"testing"
	"time"

	"github.com/Sternrassler/trendnow-cache/internal/testutil"
	"github.com/Sternrassler/trendnow-cache/pkg/cache"
	"github.com/Sternrassler/trendnow-cache/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer creates a Redis container for integration testing.
func setupRedisContainer(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := redisContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := redisContainer.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func newIntegrationClient(t *testing.T, redisClient *redis.Client, api *testutil.MockNewsAPI) *Client {
	t.Helper()

	cfg := DefaultConfig(cache.NewRedisResponses(redisClient, time.Hour), newMemoryMetadata(), testAPIKey)
	cfg.BaseURL = api.URL()
	cfg.RateLimiter = ratelimit.NewTracker(redisClient, zerolog.Nop())
	cfg.RetryPolicy = fastRetryPolicy
	cfg.CacheOptions = []cache.Option{cache.WithLogger(zerolog.Nop())}

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func TestIntegration_FullRequestFlow(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	api := testutil.NewMockNewsAPI()
	defer api.Close()
	api.APIKey = testAPIKey

	client := newIntegrationClient(t, redisClient, api)
	ctx := context.Background()
	q := TrendingQuery{Topic: "general", Language: "en", Country: "US"}

	// Step 1: network fetch lands in Redis
	res, err := client.FetchTrendingNews(ctx, q)
	if err != nil {
		t.Fatalf("first fetch error = %v", err)
	}
	if res.CacheStatus != cache.StatusMiss {
		t.Errorf("CacheStatus = %q, want MISS", res.CacheStatus)
	}

	ttl, err := redisClient.TTL(ctx, cache.ResponseKeyPrefix+res.URL).Result()
	if err != nil {
		t.Fatalf("TTL() error = %v", err)
	}
	if ttl <= 0 || ttl > time.Hour {
		t.Errorf("TTL = %v, want retention of at most 1h", ttl)
	}

	// Step 2: record the fetch, then the next call is a hit
	if err := client.Cache().RecordFetch(ctx, res.URL); err != nil {
		t.Fatalf("RecordFetch() error = %v", err)
	}

	requests := api.GetRequestCount()
	res, err = client.FetchTrendingNews(ctx, q)
	if err != nil {
		t.Fatalf("second fetch error = %v", err)
	}
	if !res.FromCache() {
		t.Errorf("CacheStatus = %q, want HIT", res.CacheStatus)
	}
	if api.GetRequestCount() != requests {
		t.Error("cache hit made a network request")
	}

	// Step 3: later pages are cached under their own URL
	q.Page = 2
	page2, err := client.FetchTrendingNews(ctx, q)
	if err != nil {
		t.Fatalf("page 2 fetch error = %v", err)
	}
	if page2.FromCache() {
		t.Error("page 2 served from cache before it was fetched")
	}
	if cache.ParentURL(page2.URL) != client.TrendingURL(TrendingQuery{Topic: "general", Language: "en", Country: "US"}) {
		t.Errorf("page 2 parent = %q", cache.ParentURL(page2.URL))
	}
}

func TestIntegration_RateLimitIntegration(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	api := testutil.NewMockNewsAPI()
	defer api.Close()
	api.Remaining = 2

	client := newIntegrationClient(t, redisClient, api)
	ctx := context.Background()

	// First request reports a critical quota
	if _, err := client.FetchSupportedTopics(ctx); err != nil {
		t.Fatalf("FetchSupportedTopics() error = %v", err)
	}

	// Second request is blocked before reaching the network
	_, err := client.FetchSupportedTopics(ctx)
	if err == nil {
		t.Fatal("expected quota block")
	}
	if api.GetRequestCount() != 1 {
		t.Errorf("requests = %d, want 1", api.GetRequestCount())
	}
}

func TestIntegration_CachedPageSurvivesQuotaBlock(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	api := testutil.NewMockNewsAPI()
	defer api.Close()

	client := newIntegrationClient(t, redisClient, api)
	ctx := context.Background()
	q := TrendingQuery{Topic: "world", Language: "en"}

	res, err := client.FetchTrendingNews(ctx, q)
	if err != nil {
		t.Fatalf("fetch error = %v", err)
	}
	if err := client.Cache().RecordFetch(ctx, res.URL); err != nil {
		t.Fatalf("RecordFetch() error = %v", err)
	}

	// Quota drops to critical
	redisClient.Set(ctx, ratelimit.RedisKeyRequestsRemaining, 0, 0)

	res, err = client.FetchTrendingNews(ctx, q)
	if err != nil {
		t.Fatalf("fresh cached page should not need quota: %v", err)
	}
	if !res.FromCache() {
		t.Errorf("CacheStatus = %q, want HIT", res.CacheStatus)
	}
}
