package cache

import (
	"context"
	"errors"
)

var (
	// ErrCacheMiss indicates the requested URL has no cached response body
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")

	// ErrRecordNotFound indicates the metadata store has no record for a URL
	ErrRecordNotFound = errors.New("cache record not found")
)

// ResponseCache is the part of the response byte cache the freshness
// policy depends on: the set of URLs it currently holds a body for.
type ResponseCache interface {
	URLs(ctx context.Context) ([]string, error)
}

// ResponseStore is a response byte cache keyed by exact request URL.
type ResponseStore interface {
	ResponseCache

	// Get returns ErrCacheMiss when url has no cached body.
	Get(ctx context.Context, url string) (*CacheEntry, error)
	Set(ctx context.Context, url string, entry *CacheEntry) error
	Delete(ctx context.Context, url string) error
}

// MetadataStore persists one CacheRecord per URL.
//
// Implementations must make Upsert and DeleteByParent atomic on their own;
// the Manager adds no locking on top.
type MetadataStore interface {
	// Get returns ErrRecordNotFound when url has no record.
	Get(ctx context.Context, url string) (*CacheRecord, error)

	// Upsert inserts rec or replaces the record with the same URL.
	Upsert(ctx context.Context, rec CacheRecord) error

	// DeleteByParent removes every record whose ParentURL equals parentURL.
	DeleteByParent(ctx context.Context, parentURL string) error
}
