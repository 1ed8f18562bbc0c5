package cache

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type memoryItem struct {
	entry    *CacheEntry
	storedAt time.Time
}

// MemoryResponses is a process-local response byte cache. Entries older
// than the retention are dropped lazily on access. Get and Set copy
// entries, so callers never share a stored *CacheEntry.
type MemoryResponses struct {
	items     sync.Map
	retention time.Duration
	clock     Clock
}

// NewMemoryResponses creates an in-memory response cache. A nil clock
// selects the system clock; a non-positive retention selects DefaultRetention.
func NewMemoryResponses(retention time.Duration, clock Clock) *MemoryResponses {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &MemoryResponses{
		retention: retention,
		clock:     clock,
	}
}

func (m *MemoryResponses) expired(item memoryItem, now time.Time) bool {
	return now.Sub(item.storedAt) >= m.retention
}

// Get retrieves the cached response for url.
func (m *MemoryResponses) Get(_ context.Context, url string) (*CacheEntry, error) {
	v, ok := m.items.Load(url)
	if !ok {
		CacheMisses.WithLabelValues("memory").Inc()
		return nil, ErrCacheMiss
	}
	item, ok := v.(memoryItem)
	if !ok {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: unexpected item type %T", ErrInvalidEntry, v)
	}
	if m.expired(item, m.clock.Now()) {
		m.items.Delete(url)
		CacheMisses.WithLabelValues("memory").Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues("memory").Inc()
	return item.entry.Clone(), nil
}

// Set stores the response for url.
func (m *MemoryResponses) Set(_ context.Context, url string, entry *CacheEntry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}
	m.items.Store(url, memoryItem{entry: entry.Clone(), storedAt: m.clock.Now()})
	CacheStoredBytes.WithLabelValues("memory").Add(float64(len(entry.Data)))
	return nil
}

// Delete removes the cached response for url.
func (m *MemoryResponses) Delete(_ context.Context, url string) error {
	m.items.Delete(url)
	return nil
}

// URLs lists every URL with a live cached response, sorted.
func (m *MemoryResponses) URLs(_ context.Context) ([]string, error) {
	now := m.clock.Now()
	var urls []string
	m.items.Range(func(k, v any) bool {
		url, _ := k.(string)
		item, ok := v.(memoryItem)
		if !ok || m.expired(item, now) {
			m.items.Delete(k)
			return true
		}
		urls = append(urls, url)
		return true
	})
	sort.Strings(urls)
	return urls, nil
}
