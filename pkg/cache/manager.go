package cache

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Manager decides when a cached news response should be preferred over the
// network and keeps the metadata store in step with network fetches.
type Manager struct {
	responses  ResponseCache
	store      MetadataStore
	clock      Clock
	policy     Policy
	normalizer Normalizer
	logger     zerolog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the time source used for freshness checks and record stamps.
func WithClock(clock Clock) Option {
	return func(m *Manager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithPolicy sets the freshness window.
func WithPolicy(policy Policy) Option {
	return func(m *Manager) {
		m.policy = policy
	}
}

// WithNormalizer sets how parent URLs are derived.
func WithNormalizer(n Normalizer) Option {
	return func(m *Manager) {
		m.normalizer = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a cache manager over a response cache and a metadata store.
func NewManager(responses ResponseCache, store MetadataStore, opts ...Option) *Manager {
	if responses == nil {
		panic("response cache cannot be nil")
	}
	if store == nil {
		panic("metadata store cannot be nil")
	}

	m := &Manager{
		responses:  responses,
		store:      store,
		clock:      SystemClock{},
		policy:     DefaultPolicy(),
		normalizer: DefaultNormalizer(),
		logger:     log.With().Str("component", "news-cache").Logger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ParentURL returns the parent URL the manager files url under.
func (m *Manager) ParentURL(url string) string {
	return m.normalizer.ParentURL(url)
}

// IsPreferCache reports whether the cached response for url is fresh
// enough to skip the network.
//
// A URL without a cached body or without a metadata record is never
// preferred. Errors from either store are returned as is; callers should
// treat them as "fetch from the network".
func (m *Manager) IsPreferCache(ctx context.Context, url string) (bool, error) {
	urls, err := m.responses.URLs(ctx)
	if err != nil {
		CacheErrors.WithLabelValues("urls").Inc()
		return false, fmt.Errorf("list cached urls: %w", err)
	}
	if !slices.Contains(urls, url) {
		PreferDecisions.WithLabelValues("not_cached").Inc()
		m.logger.Debug().Str("url", url).Msg("No cached response")
		return false, nil
	}

	rec, err := m.store.Get(ctx, url)
	if errors.Is(err, ErrRecordNotFound) {
		PreferDecisions.WithLabelValues("no_metadata").Inc()
		m.logger.Debug().Str("url", url).Msg("Cached response has no metadata record")
		return false, nil
	}
	if err != nil {
		CacheErrors.WithLabelValues("metadata_get").Inc()
		return false, fmt.Errorf("get cache record: %w", err)
	}

	now := m.clock.Now()
	createdAt := rec.CreatedTime()
	if createdAt.After(now) {
		m.logger.Debug().
			Str("url", url).
			Time("created_at", createdAt).
			Msg("Cache record is dated in the future")
	}

	if !m.policy.IsFresh(now, createdAt) {
		PreferDecisions.WithLabelValues("stale").Inc()
		m.logger.Debug().
			Str("url", url).
			Time("created_at", createdAt).
			Msg("Cached response is stale")
		return false, nil
	}

	PreferDecisions.WithLabelValues("fresh").Inc()
	m.logger.Debug().
		Str("url", url).
		Time("created_at", createdAt).
		Msg("Preferring cached response")
	return true, nil
}

// RecordFetch records that a network response for url was accepted into the
// response cache. It must not be called for responses served from cache.
//
// When url is its own parent, every record filed under it is deleted
// before the new record is written, which invalidates previously cached
// pages of the resource. The two writes are not interrupted by ctx
// cancellation.
func (m *Manager) RecordFetch(ctx context.Context, url string) error {
	ctx = context.WithoutCancel(ctx)

	rec := NewCacheRecord(url, m.normalizer.ParentURL(url), m.clock.Now())
	parentURL := rec.ParentURL
	if rec.IsParent() {
		if err := m.store.DeleteByParent(ctx, parentURL); err != nil {
			CacheErrors.WithLabelValues("metadata_delete").Inc()
			return fmt.Errorf("delete records for parent %q: %w", parentURL, err)
		}
		ParentPurges.Inc()
		m.logger.Debug().Str("parent_url", parentURL).Msg("Purged page records")
	}

	if err := m.store.Upsert(ctx, rec); err != nil {
		CacheErrors.WithLabelValues("metadata_upsert").Inc()
		return fmt.Errorf("upsert cache record: %w", err)
	}
	RecordsWritten.Inc()

	m.logger.Debug().
		Str("url", url).
		Str("parent_url", parentURL).
		Int64("created_at", rec.CreatedAt).
		Msg("Recorded network fetch")
	return nil
}
