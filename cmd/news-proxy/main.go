package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Sternrassler/trendnow-cache/pkg/cache"
	"github.com/Sternrassler/trendnow-cache/pkg/client"
	"github.com/Sternrassler/trendnow-cache/pkg/logging"
	"github.com/Sternrassler/trendnow-cache/pkg/metadata"
	"github.com/Sternrassler/trendnow-cache/pkg/metrics"
	"github.com/Sternrassler/trendnow-cache/pkg/models"
	"github.com/Sternrassler/trendnow-cache/pkg/news"
	"github.com/Sternrassler/trendnow-cache/pkg/ratelimit"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const headerRequestID = "X-Request-ID"

func main() {
	// .env is optional
	_ = godotenv.Load()

	logCfg := logging.ConfigFromEnv(os.Getenv)
	logCfg.Service = "news-proxy"
	logger := logging.Setup(logCfg)

	port := getEnv("PORT", "8080")
	redisURL := getEnv("REDIS_URL", "")
	dbPath := getEnv("CACHE_DB_PATH", "data/news-cache.db")
	apiKey := getEnv("NEWS_API_KEY", "")

	ctx := context.Background()

	var (
		redisClient *redis.Client
		responses   cache.ResponseStore
		store       cache.MetadataStore
		limiter     *ratelimit.Tracker
		checks      = map[string]pingFunc{}
	)

	sqliteStore, err := metadata.OpenSQLite(dbPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", dbPath).Msg("Failed to open metadata store")
	}
	defer sqliteStore.Close()
	checks["sqlite"] = sqliteStore.Ping
	store = sqliteStore

	if redisURL != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: redisURL})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Str("addr", redisURL).Msg("Failed to connect to Redis")
		}
		logger.Info().Str("addr", redisURL).Msg("Connected to Redis")

		responses = cache.NewRedisResponses(redisClient, cache.DefaultRetention)
		limiter = ratelimit.NewTracker(redisClient, logging.NewLogger("news-ratelimit"))
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }

		if getEnv("METADATA_BACKEND", "sqlite") == "redis" {
			store = metadata.NewRedisStore(redisClient)
		}
	} else {
		responses = cache.NewMemoryResponses(cache.DefaultRetention, cache.SystemClock{})
		logger.Warn().Msg("REDIS_URL not set, using in-memory response cache")
	}

	cfg := client.DefaultConfig(responses, store, apiKey)
	cfg.BaseURL = getEnv("NEWS_API_URL", client.DefaultBaseURL)
	cfg.RateLimiter = limiter
	cfg.CacheOptions = []cache.Option{cache.WithLogger(logging.NewLogger("news-cache"))}

	newsClient, err := client.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create news client")
	}
	defer newsClient.Close()

	repo := news.NewRepository(newsClient, newsClient.Cache(), sqliteStore,
		news.WithLogger(logging.NewLogger("news-repository")))

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           newMux(repo, checks, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Str("api", cfg.BaseURL).Msg("Starting news proxy")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Shutdown failed")
	}
	logger.Info().Msg("News proxy stopped")
}

// newsService is what the proxy serves from.
type newsService interface {
	FetchTrendingNews(ctx context.Context, q client.TrendingQuery) (*client.NewsResult, error)
	FetchSupportedTopics(ctx context.Context) ([]models.Topic, error)
}

type pingFunc func(ctx context.Context) error

func newMux(svc newsService, checks map[string]pingFunc, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler(checks))
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc(client.TrendingsPath, trendingsHandler(svc))
	mux.HandleFunc(client.TopicsPath, topicsHandler(svc))
	return requestIDMiddleware(logger, mux)
}

// requestIDMiddleware tags each request with an id, reusing the caller's
// X-Request-ID when present.
func requestIDMiddleware(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)

		reqLogger := logging.WithRequestID(logger, id)
		start := time.Now()
		next.ServeHTTP(w, r.WithContext(reqLogger.WithContext(r.Context())))

		reqLogger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func readyHandler(checks map[string]pingFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		for name, ping := range checks {
			if err := ping(ctx); err != nil {
				zerolog.Ctx(r.Context()).Warn().Err(err).Str("store", name).Msg("Readiness check failed")
				http.Error(w, name+" not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

func trendingsHandler(svc newsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		params := r.URL.Query()
		q := client.TrendingQuery{
			Topic:    params.Get("topic"),
			Language: params.Get("language"),
			Country:  params.Get("country"),
		}
		if raw := params.Get(cache.PageParam); raw != "" {
			page, err := strconv.Atoi(raw)
			if err != nil || page < 1 {
				http.Error(w, "invalid page", http.StatusBadRequest)
				return
			}
			q.Page = page
		}
		if q.Topic == "" || q.Language == "" {
			http.Error(w, "topic and language are required", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		res, err := svc.FetchTrendingNews(ctx, q)
		if err != nil {
			writeUpstreamError(w, r, err)
			return
		}

		w.Header().Set(cache.HeaderCache, res.CacheStatus)
		writeJSON(w, models.PaginationResponse[models.News]{
			Success:    true,
			Size:       res.Size,
			Page:       res.Page,
			TotalPages: res.TotalPages,
			Data:       res.News,
		})
	}
}

func topicsHandler(svc newsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		topics, err := svc.FetchSupportedTopics(ctx)
		if err != nil {
			writeUpstreamError(w, r, err)
			return
		}
		writeJSON(w, models.BasicResponse[[]models.Topic]{Success: true, Data: topics})
	}
}

// writeUpstreamError maps quota blocks to 429 and everything else to 502.
func writeUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Upstream request failed")

	status := http.StatusBadGateway
	var apiErr *client.APIError
	switch {
	case errors.Is(err, client.ErrRequestBlocked):
		status = http.StatusTooManyRequests
	case errors.As(err, &apiErr) && apiErr.ErrorClass == client.ErrorClassRateLimit:
		status = http.StatusTooManyRequests
	}
	http.Error(w, http.StatusText(status), status)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encode response", http.StatusInternalServerError)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
