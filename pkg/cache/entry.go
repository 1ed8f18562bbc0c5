package cache

import (
	"net/http"
	"time"
)

// CacheEntry is a cached news API response body.
type CacheEntry struct {
	// Data is the response body
	Data []byte `json:"data"`

	// ETag for conditional requests (If-None-Match)
	ETag string `json:"etag"`

	// LastModified is when the data was last modified (from the last-modified header)
	LastModified time.Time `json:"last_modified"`

	// StatusCode is the HTTP status code of the cached response
	StatusCode int `json:"status_code"`

	// Headers are the response headers
	Headers http.Header `json:"headers"`

	// CachedAt is when we cached this response
	CachedAt time.Time `json:"cached_at"`
}

// Clone returns a deep copy of e.
func (e *CacheEntry) Clone() *CacheEntry {
	c := *e
	if e.Data != nil {
		c.Data = append([]byte(nil), e.Data...)
	}
	c.Headers = e.Headers.Clone()
	return &c
}

// Age returns how long ago the entry was cached, never negative.
func (e *CacheEntry) Age(now time.Time) time.Duration {
	age := now.Sub(e.CachedAt)
	if age < 0 {
		return 0
	}
	return age
}
