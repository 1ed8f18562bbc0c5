package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for quota tracking.
var (
	newsRequestsRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "news_api_requests_remaining",
		Help: "Number of requests remaining in the current news API quota window",
	})

	newsRateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "news_rate_limit_blocks_total",
		Help: "Total number of requests blocked due to critical quota",
	})

	newsRateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "news_rate_limit_throttles_total",
		Help: "Total number of requests throttled due to low quota",
	})
)

// DefaultThrottleDelay is how long a request waits when the quota is low.
const DefaultThrottleDelay = time.Second

// Tracker monitors the news API quota and gates requests.
type Tracker struct {
	redis         *redis.Client
	logger        zerolog.Logger
	throttleDelay time.Duration
}

// NewTracker creates a new quota tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:         redisClient,
		logger:        logger,
		throttleDelay: DefaultThrottleDelay,
	}
}

// SetThrottleDelay overrides the delay applied in the warning state.
func (t *Tracker) SetThrottleDelay(d time.Duration) {
	t.throttleDelay = d
}

// GetState retrieves the current quota state from Redis.
// Returns a default healthy state if no data exists in Redis.
func (t *Tracker) GetState(ctx context.Context) (*RateLimitState, error) {
	remaining, err := t.redis.Get(ctx, RedisKeyRequestsRemaining).Int()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get requests remaining: %w", err)
	}

	resetTimestamp, err := t.redis.Get(ctx, RedisKeyResetTimestamp).Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get reset timestamp: %w", err)
	}

	lastUpdateStr, err := t.redis.Get(ctx, RedisKeyLastUpdate).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get last update: %w", err)
	}

	if err == redis.Nil {
		t.logger.Debug().Msg("No quota state in Redis, returning default healthy state")
		return &RateLimitState{
			RequestsRemaining: defaultRequestsRemaining,
			ResetAt:           time.Now().Add(60 * time.Second),
			LastUpdate:        time.Now(),
			IsHealthy:         true,
		}, nil
	}

	var lastUpdate time.Time
	if lastUpdateStr != "" {
		if err := json.Unmarshal([]byte(lastUpdateStr), &lastUpdate); err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
	}

	state := &RateLimitState{
		RequestsRemaining: remaining,
		ResetAt:           time.Unix(resetTimestamp, 0),
		LastUpdate:        lastUpdate,
	}
	state.UpdateHealth()

	return state, nil
}

// ParseHeaders extracts quota state from response headers.
// Returns nil, nil when the response carries no quota headers.
func ParseHeaders(headers http.Header, now time.Time) (*RateLimitState, error) {
	remainStr := headers.Get(HeaderRequestsRemaining)
	if remainStr == "" {
		return nil, nil
	}

	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		return nil, fmt.Errorf("parse %s header: %w", HeaderRequestsRemaining, err)
	}

	resetStr := headers.Get(HeaderRequestsReset)
	if resetStr == "" {
		return nil, fmt.Errorf("%s header missing", HeaderRequestsReset)
	}

	resetSeconds, err := strconv.Atoi(resetStr)
	if err != nil {
		return nil, fmt.Errorf("parse %s header: %w", HeaderRequestsReset, err)
	}

	state := &RateLimitState{
		RequestsRemaining: remain,
		ResetAt:           now.Add(time.Duration(resetSeconds) * time.Second),
		LastUpdate:        now,
	}
	state.UpdateHealth()
	return state, nil
}

// UpdateFromHeaders parses quota headers and updates Redis state.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	state, err := ParseHeaders(headers, time.Now())
	if err != nil || state == nil {
		return err
	}

	lastUpdateJSON, err := json.Marshal(state.LastUpdate)
	if err != nil {
		return fmt.Errorf("marshal last update: %w", err)
	}

	pipe := t.redis.TxPipeline()
	pipe.Set(ctx, RedisKeyRequestsRemaining, state.RequestsRemaining, 0)
	pipe.Set(ctx, RedisKeyResetTimestamp, state.ResetAt.Unix(), 0)
	pipe.Set(ctx, RedisKeyLastUpdate, lastUpdateJSON, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store quota state in redis: %w", err)
	}

	newsRequestsRemaining.Set(float64(state.RequestsRemaining))

	switch {
	case state.NeedsCriticalBlock():
		t.logger.Error().
			Int("requests_remaining", state.RequestsRemaining).
			Time("reset_at", state.ResetAt).
			Msg("News API quota CRITICAL - requests will be blocked")
	case state.NeedsThrottling():
		t.logger.Warn().
			Int("requests_remaining", state.RequestsRemaining).
			Time("reset_at", state.ResetAt).
			Msg("News API quota WARNING - requests will be throttled")
	default:
		t.logger.Debug().
			Int("requests_remaining", state.RequestsRemaining).
			Time("reset_at", state.ResetAt).
			Bool("is_healthy", state.IsHealthy).
			Msg("News API quota state updated")
	}

	return nil
}

// ShouldAllowRequest checks if a request should be allowed based on the quota.
// Returns false if the request should be blocked.
// Returns true but may wait for throttling in the warning state.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get quota state: %w", err)
	}

	if state.NeedsCriticalBlock() {
		t.logger.Error().
			Int("requests_remaining", state.RequestsRemaining).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("News API quota critical - blocking request")

		newsRateLimitBlocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling() {
		t.logger.Warn().
			Int("requests_remaining", state.RequestsRemaining).
			Msg("News API quota warning - throttling request")

		newsRateLimitThrottlesTotal.Inc()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(t.throttleDelay):
		}
	}

	return true, nil
}
