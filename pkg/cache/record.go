package cache

import "time"

// CacheRecord is the bookkeeping stored for every URL whose response body
// was accepted into the response cache.
type CacheRecord struct {
	// URL is the exact request URL including its query string
	URL string `json:"url"`

	// ParentURL is the page-independent form of URL (equal to URL for
	// first pages and non-paginated endpoints)
	ParentURL string `json:"parent_url"`

	// CreatedAt is when the response was fetched, in milliseconds since epoch
	CreatedAt int64 `json:"created_at"`
}

// NewCacheRecord builds a record for url stamped with now.
func NewCacheRecord(url, parentURL string, now time.Time) CacheRecord {
	return CacheRecord{
		URL:       url,
		ParentURL: parentURL,
		CreatedAt: now.UnixMilli(),
	}
}

// CreatedTime returns CreatedAt as a time.Time.
func (r CacheRecord) CreatedTime() time.Time {
	return time.UnixMilli(r.CreatedAt)
}

// IsParent reports whether the record describes a base resource rather
// than a follow-up page.
func (r CacheRecord) IsParent() bool {
	return r.URL == r.ParentURL
}
