package news

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/trendnow-cache/pkg/cache"
	"github.com/Sternrassler/trendnow-cache/pkg/client"
	"github.com/Sternrassler/trendnow-cache/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultTopic is listed first among supported topics.
const DefaultTopic = "general"

// DefaultMaxTopicsAge is how long a stored topic list is used before refetching.
const DefaultMaxTopicsAge = 7 * 24 * time.Hour

var topicsLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "news_topics_lookups_total",
	Help: "Supported topic lookups by source",
}, []string{"source"}) // "local", "remote", "stale_local"

// API is the part of the news API client the repository needs.
type API interface {
	FetchTrendingNews(ctx context.Context, q client.TrendingQuery) (*client.NewsResult, error)
	FetchSupportedTopics(ctx context.Context) ([]models.Topic, error)
}

// FetchRecorder records pages accepted from the network.
type FetchRecorder interface {
	RecordFetch(ctx context.Context, url string) error
}

// TopicStore persists the supported topic list.
type TopicStore interface {
	Topics(ctx context.Context) ([]models.Topic, error)
	SaveTopics(ctx context.Context, topics []models.Topic, savedAt time.Time) error
}

// Repository fetches news and topics and maintains their local caches.
type Repository struct {
	api          API
	recorder     FetchRecorder
	topics       TopicStore
	clock        cache.Clock
	maxTopicsAge time.Duration
	logger       zerolog.Logger
}

// Option configures a Repository.
type Option func(*Repository)

// WithClock sets the time source for topic ages.
func WithClock(clock cache.Clock) Option {
	return func(r *Repository) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithMaxTopicsAge sets how long stored topics stay valid.
func WithMaxTopicsAge(d time.Duration) Option {
	return func(r *Repository) {
		if d > 0 {
			r.maxTopicsAge = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Repository) {
		r.logger = logger
	}
}

// NewRepository creates a repository.
func NewRepository(api API, recorder FetchRecorder, topics TopicStore, opts ...Option) *Repository {
	if api == nil || recorder == nil || topics == nil {
		panic("news repository dependencies cannot be nil")
	}

	r := &Repository{
		api:          api,
		recorder:     recorder,
		topics:       topics,
		clock:        cache.SystemClock{},
		maxTopicsAge: DefaultMaxTopicsAge,
		logger:       log.With().Str("component", "news-repository").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FetchTrendingNews fetches one page of trending news.
//
// Pages that came from the network are recorded in the metadata store;
// pages served from the response cache are not. A failed record is logged
// and does not fail the fetch: the page is valid, it just will not be
// served from cache next time.
func (r *Repository) FetchTrendingNews(ctx context.Context, q client.TrendingQuery) (*client.NewsResult, error) {
	res, err := r.api.FetchTrendingNews(ctx, q)
	if err != nil {
		return nil, err
	}

	if !cache.IsNetworkFetch(res.CacheStatus) {
		r.logger.Debug().
			Str("url", res.URL).
			Str("cache_status", res.CacheStatus).
			Msg("Not recording fetch")
		return res, nil
	}

	if err := r.recorder.RecordFetch(ctx, res.URL); err != nil {
		r.logger.Warn().
			Err(err).
			Str("url", res.URL).
			Msg("Failed to record fetch")
	}
	return res, nil
}

// FetchSupportedTopics returns the supported topics with DefaultTopic first.
//
// The stored list is used while its age is under MaxTopicsAge; otherwise the
// API is asked and the answer stored. When the API fails and a stored list
// exists, the stored list is returned regardless of age.
func (r *Repository) FetchSupportedTopics(ctx context.Context) ([]models.Topic, error) {
	now := r.clock.Now()

	local, err := r.topics.Topics(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Failed to read stored topics")
		local = nil
	}

	if len(local) > 0 && r.topicsFresh(now, local[0].CreatedAt) {
		topicsLookups.WithLabelValues("local").Inc()
		return moveDefaultFirst(local), nil
	}

	remote, err := r.api.FetchSupportedTopics(ctx)
	if err != nil {
		if len(local) > 0 {
			topicsLookups.WithLabelValues("stale_local").Inc()
			r.logger.Warn().Err(err).Msg("Topics fetch failed, using stored topics")
			return moveDefaultFirst(local), nil
		}
		return nil, fmt.Errorf("fetch supported topics: %w", err)
	}
	topicsLookups.WithLabelValues("remote").Inc()

	stamped := make([]models.Topic, len(remote))
	for i, t := range remote {
		t.CreatedAt = now.UnixMilli()
		stamped[i] = t
	}

	if err := r.topics.SaveTopics(ctx, stamped, now); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to store topics")
	}

	return moveDefaultFirst(stamped), nil
}

// topicsFresh reports whether topics stored at createdAt (ms) are still valid.
func (r *Repository) topicsFresh(now time.Time, createdAt int64) bool {
	age := now.UnixMilli() - createdAt
	if age < 0 {
		age = -age
	}
	return time.Duration(age)*time.Millisecond < r.maxTopicsAge
}

// moveDefaultFirst returns topics with DefaultTopic moved to index 0,
// keeping the relative order of the others.
func moveDefaultFirst(topics []models.Topic) []models.Topic {
	out := make([]models.Topic, 0, len(topics))
	for _, t := range topics {
		if t.ID == DefaultTopic {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return topics
	}
	for _, t := range topics {
		if t.ID != DefaultTopic {
			out = append(out, t)
		}
	}
	return out
}
