// Package client provides the news API HTTP client with quota tracking,
// response caching, and error handling.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/trendnow-cache/pkg/cache"
	"github.com/Sternrassler/trendnow-cache/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for news API client operations.
var (
	newsRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "news_requests_total",
		Help: "Total news API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	newsRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "news_request_duration_seconds",
		Help:    "News API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	newsErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "news_errors_total",
		Help: "Total news API errors by class",
	}, []string{"class"})
)

// API defaults.
const (
	DefaultBaseURL = "https://news-api14.p.rapidapi.com"
	DefaultAPIHost = "news-api14.p.rapidapi.com"
)

// Request headers sent on every call.
const (
	HeaderAPIHost = "x-rapidapi-host"
	HeaderAPIKey  = "x-rapidapi-key"
)

// Client is the news API client.
type Client struct {
	httpClient  *http.Client
	responses   cache.ResponseStore
	cache       *cache.Manager
	rateLimiter *ratelimit.Tracker
	clock       cache.Clock
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the news API, without trailing slash
	BaseURL string

	// RapidAPI credentials
	APIHost string
	APIKey  string

	// User-Agent header
	UserAgent string

	// Responses stores response bodies by exact request URL
	Responses cache.ResponseStore

	// Metadata stores the fetch records that drive freshness
	Metadata cache.MetadataStore

	// CacheOptions configure the cache manager (policy, clock, logger)
	CacheOptions []cache.Option

	// RateLimiter gates requests on the shared quota; optional
	RateLimiter *ratelimit.Tracker

	// Clock stamps stored responses; defaults to the system clock
	Clock cache.Clock

	// Timeout per HTTP attempt
	Timeout time.Duration

	// RetryPolicy picks backoff settings per error class; defaults to RetryConfigForErrorClass
	RetryPolicy RetryPolicy
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(responses cache.ResponseStore, metadata cache.MetadataStore, apiKey string) Config {
	return Config{
		BaseURL:     DefaultBaseURL,
		APIHost:     DefaultAPIHost,
		APIKey:      apiKey,
		UserAgent:   "trendnow-cache/1.0",
		Responses:   responses,
		Metadata:    metadata,
		Timeout:     30 * time.Second,
		RetryPolicy: RetryConfigForErrorClass,
	}
}

// New creates a new news API client.
func New(cfg Config) (*Client, error) {
	if cfg.Responses == nil {
		return nil, fmt.Errorf("response store is required")
	}

	if cfg.Metadata == nil {
		return nil, fmt.Errorf("metadata store is required")
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if cfg.APIHost == "" {
		cfg.APIHost = DefaultAPIHost
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = cache.SystemClock{}
	}

	logger := log.With().Str("component", "news-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		responses:   cfg.Responses,
		cache:       cache.NewManager(cfg.Responses, cfg.Metadata, cfg.CacheOptions...),
		rateLimiter: cfg.RateLimiter,
		clock:       cfg.Clock,
		config:      cfg,
		logger:      logger,
	}, nil
}

// Do performs an HTTP request with freshness checks, quota tracking, and retries.
//
// GET responses are answered from the response cache while the cache manager
// prefers them. Otherwise the request goes to the network, revalidating a
// stored body when one exists. The X-Cache header of the returned response
// tells the caller which path was taken.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Path
	url := req.URL.String()
	cacheable := req.Method == http.MethodGet

	startTime := time.Now()
	defer func() {
		newsRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Serve from cache when fresh
	var cachedEntry *cache.CacheEntry
	if cacheable {
		if resp := c.fromCache(ctx, req, url); resp != nil {
			newsRequestsTotal.WithLabelValues(endpoint, "cache").Inc()
			return resp, nil
		}

		entry, err := c.responses.Get(ctx, url)
		switch {
		case err == nil:
			cachedEntry = entry
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("url", url).Msg("Cache get error")
		}
	}

	// Step 2: Check quota
	if c.rateLimiter != nil {
		allowed, err := c.rateLimiter.ShouldAllowRequest(ctx)
		if err != nil {
			c.logger.Error().Err(err).Msg("Rate limit check failed")
			return nil, fmt.Errorf("rate limit check: %w", err)
		}
		if !allowed {
			c.logger.Warn().
				Str("endpoint", endpoint).
				Msg("Request blocked by rate limiter")
			newsRequestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
			return nil, ErrRequestBlocked
		}
	}

	// Step 3: Revalidate a stored body
	if cachedEntry != nil && cache.ShouldMakeConditionalRequest(cachedEntry) {
		cache.AddConditionalHeaders(req, cachedEntry)
		cache.ConditionalRequestsSent.Inc()
		c.logger.Debug().
			Str("url", url).
			Str("etag", cachedEntry.ETag).
			Msg("Making conditional request")
	}

	// Step 4: API headers
	c.setHeaders(req)

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Msg("Executing news API request")

	// Step 5: Execute with retry
	var resp *http.Response
	retryErr := retryWithBackoff(ctx, c.config.RetryPolicy, func() error {
		var reqErr error
		resp, reqErr = c.httpClient.Do(req)
		if reqErr != nil {
			c.logger.Error().Err(reqErr).Str("endpoint", endpoint).Msg("HTTP request failed")
			newsErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			newsRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return &APIError{
				ErrorClass: ErrorClassNetwork,
				Message:    "request failed",
				Err:        reqErr,
			}
		}

		if c.rateLimiter != nil {
			if err := c.rateLimiter.UpdateFromHeaders(ctx, resp.Header); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
			}
		}

		errClass := classifyStatus(resp.StatusCode)
		if errClass == "" {
			return nil
		}

		newsErrorsTotal.WithLabelValues(string(errClass)).Inc()
		newsRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("News API request error")

		if !shouldRetry(errClass) {
			// Let the caller handle the status
			return nil
		}

		resp.Body.Close()
		return &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    resp.Status,
		}
	}, classifyError)

	if retryErr != nil {
		return nil, retryErr
	}

	switch resp.StatusCode {
	case http.StatusNotModified:
		return c.revalidated(ctx, req, resp, url, cachedEntry), nil
	case http.StatusOK:
		newsRequestsTotal.WithLabelValues(endpoint, "200").Inc()
		if cacheable {
			c.store(ctx, resp, url)
		} else {
			resp.Header.Set(cache.HeaderCache, cache.StatusBypass)
		}
	default:
		if resp.StatusCode < 400 {
			newsRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
		}
		resp.Header.Set(cache.HeaderCache, cache.StatusBypass)
	}

	return resp, nil
}

// fromCache returns the stored response for url if the cache manager
// prefers it, or nil.
func (c *Client) fromCache(ctx context.Context, req *http.Request, url string) *http.Response {
	prefer, err := c.cache.IsPreferCache(ctx, url)
	if err != nil {
		c.logger.Warn().Err(err).Str("url", url).Msg("Freshness check failed, using network")
		return nil
	}
	if !prefer {
		return nil
	}

	entry, err := c.responses.Get(ctx, url)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("url", url).Msg("Cache get error")
		}
		return nil
	}

	c.logger.Debug().Str("url", url).Msg("Serving response from cache")
	return cache.EntryToResponse(entry, req)
}

// revalidated answers a 304 with the stored body and restarts its retention.
func (c *Client) revalidated(ctx context.Context, req *http.Request, resp *http.Response, url string, entry *cache.CacheEntry) *http.Response {
	if entry == nil {
		// Server validated headers we did not send
		resp.Header.Set(cache.HeaderCache, cache.StatusBypass)
		return resp
	}
	resp.Body.Close()

	newsRequestsTotal.WithLabelValues(req.URL.Path, "304").Inc()
	cache.NotModifiedResponses.Inc()
	now := c.clock.Now()
	c.logger.Debug().
		Str("url", url).
		Dur("age", entry.Age(now)).
		Msg("304 Not Modified - using cache")

	// entry may be shared with other callers; refresh a copy.
	updated := entry.Clone()
	updated.CachedAt = now
	status := cache.StatusRevalidated
	if err := c.responses.Set(ctx, url, updated); err != nil {
		c.logger.Warn().Err(err).Str("url", url).Msg("Failed to refresh cached response")
		status = cache.StatusBypass
	}

	out := cache.EntryToResponse(updated, req)
	out.Header.Set(cache.HeaderCache, status)
	return out
}

// store puts a 200 response into the response cache and tags it.
func (c *Client) store(ctx context.Context, resp *http.Response, url string) {
	entry, err := cache.ResponseToEntry(resp, c.clock.Now())
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		resp.Header.Set(cache.HeaderCache, cache.StatusBypass)
		return
	}

	if err := c.responses.Set(ctx, url, entry); err != nil {
		c.logger.Warn().Err(err).Str("url", url).Msg("Failed to cache response")
		resp.Header.Set(cache.HeaderCache, cache.StatusBypass)
		return
	}

	c.logger.Debug().
		Str("url", url).
		Int("bytes", len(entry.Data)).
		Msg("Cached response")
	resp.Header.Set(cache.HeaderCache, cache.StatusMiss)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderAPIHost, c.config.APIHost)
	req.Header.Set(HeaderAPIKey, c.config.APIKey)
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
}

// classifyError maps a failed attempt to its error class.
func classifyError(err error) ErrorClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorClass
	}
	return ErrorClassNetwork
}

// Get performs a GET request to a news API endpoint.
// endpoint is the path plus raw query, e.g. "/v2/trendings?topic=general".
func (c *Client) Get(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Cache returns the cache manager.
func (c *Client) Cache() *cache.Manager {
	return c.cache
}

// BaseURL returns the API base URL requests are sent to.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}
