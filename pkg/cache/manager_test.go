package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeStore is an in-memory MetadataStore that records the order of calls.
type fakeStore struct {
	mu      sync.Mutex
	records map[string]CacheRecord
	calls   []string

	getCalls  int
	getErr    error
	upsertErr error
	deleteErr error
}

func newFakeStore(records ...CacheRecord) *fakeStore {
	s := &fakeStore{records: make(map[string]CacheRecord)}
	for _, rec := range records {
		s.records[rec.URL] = rec
	}
	return s
}

func (s *fakeStore) Get(_ context.Context, url string) (*CacheRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	if s.getErr != nil {
		return nil, s.getErr
	}
	rec, ok := s.records[url]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &rec, nil
}

func (s *fakeStore) Upsert(_ context.Context, rec CacheRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "upsert:"+rec.URL)
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.records[rec.URL] = rec
	return nil
}

func (s *fakeStore) DeleteByParent(_ context.Context, parentURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "delete:"+parentURL)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	for url, rec := range s.records {
		if rec.ParentURL == parentURL {
			delete(s.records, url)
		}
	}
	return nil
}

// staticURLs is a ResponseCache over a fixed URL list.
type staticURLs struct {
	urls []string
	err  error
}

func (s staticURLs) URLs(context.Context) ([]string, error) {
	return s.urls, s.err
}

const (
	parentURL = "https://api.com/v2/trendings?topic=general&language=en&country=US"
	page2URL  = parentURL + "&page=2"
	page3URL  = parentURL + "&page=3"
)

func newTestManager(t *testing.T, responses ResponseCache, store MetadataStore, now string) *Manager {
	t.Helper()
	return NewManager(responses, store,
		WithClock(FixedClock{T: mustTime(t, now)}),
		WithLogger(zerolog.Nop()),
	)
}

func TestNewManager_Panic(t *testing.T) {
	tests := []struct {
		name      string
		responses ResponseCache
		store     MetadataStore
	}{
		{name: "nil response cache", store: newFakeStore()},
		{name: "nil metadata store", responses: staticURLs{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if r := recover(); r == nil {
					t.Error("NewManager should panic")
				}
			}()
			NewManager(tt.responses, tt.store)
		})
	}
}

func TestManager_IsPreferCache(t *testing.T) {
	tests := []struct {
		name      string
		now       string
		createdAt string
		want      bool
	}{
		{
			name:      "cache age is less than 1 hour",
			now:       "2025-01-02T23:00:00Z",
			createdAt: "2025-01-02T22:30:00Z",
			want:      true,
		},
		{
			name:      "more than 18 hours apart but same day",
			now:       "2025-01-02T00:00:00Z",
			createdAt: "2025-01-02T23:00:00Z",
			want:      true,
		},
		{
			name:      "record after current time on the next day",
			now:       "2025-01-02T23:00:00Z",
			createdAt: "2025-01-03T00:00:00Z",
			want:      false,
		},
		{
			name:      "more than 2 days apart",
			now:       "2025-01-02T23:00:00Z",
			createdAt: "2025-01-05T00:00:00Z",
			want:      false,
		},
		{
			name:      "less than 18 hours old but previous day",
			now:       "2025-01-02T00:05:00Z",
			createdAt: "2025-01-01T23:50:00Z",
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore(NewCacheRecord(parentURL, parentURL, mustTime(t, tt.createdAt)))
			m := newTestManager(t, staticURLs{urls: []string{parentURL}}, store, tt.now)

			got, err := m.IsPreferCache(context.Background(), parentURL)
			if err != nil {
				t.Fatalf("IsPreferCache() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("IsPreferCache() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestManager_IsPreferCache_NotCached(t *testing.T) {
	store := newFakeStore(NewCacheRecord(parentURL, parentURL, mustTime(t, "2025-01-02T22:30:00Z")))
	m := newTestManager(t, staticURLs{urls: []string{""}}, store, "2025-01-02T23:00:00Z")

	got, err := m.IsPreferCache(context.Background(), parentURL)
	if err != nil {
		t.Fatalf("IsPreferCache() error = %v", err)
	}
	if got {
		t.Error("IsPreferCache() = true for a URL with no cached body")
	}
	if store.getCalls != 0 {
		t.Errorf("metadata store consulted %d times, want 0", store.getCalls)
	}
}

func TestManager_IsPreferCache_NoMetadata(t *testing.T) {
	m := newTestManager(t, staticURLs{urls: []string{page2URL, parentURL}}, newFakeStore(), "2025-01-02T23:00:00Z")

	got, err := m.IsPreferCache(context.Background(), parentURL)
	if err != nil {
		t.Fatalf("IsPreferCache() error = %v, want nil for a missing record", err)
	}
	if got {
		t.Error("IsPreferCache() = true for a cached body without metadata")
	}
}

func TestManager_IsPreferCache_Errors(t *testing.T) {
	ctx := context.Background()
	errBoom := errors.New("boom")

	t.Run("response cache error", func(t *testing.T) {
		m := newTestManager(t, staticURLs{err: errBoom}, newFakeStore(), "2025-01-02T23:00:00Z")
		got, err := m.IsPreferCache(ctx, parentURL)
		if !errors.Is(err, errBoom) {
			t.Errorf("IsPreferCache() error = %v, want %v", err, errBoom)
		}
		if got {
			t.Error("IsPreferCache() = true on error")
		}
	})

	t.Run("metadata store error", func(t *testing.T) {
		store := newFakeStore()
		store.getErr = errBoom
		m := newTestManager(t, staticURLs{urls: []string{parentURL}}, store, "2025-01-02T23:00:00Z")
		got, err := m.IsPreferCache(ctx, parentURL)
		if !errors.Is(err, errBoom) {
			t.Errorf("IsPreferCache() error = %v, want %v", err, errBoom)
		}
		if got {
			t.Error("IsPreferCache() = true on error")
		}
	})
}

func TestManager_IsPreferCache_NoWrites(t *testing.T) {
	store := newFakeStore(NewCacheRecord(parentURL, parentURL, mustTime(t, "2025-01-02T22:30:00Z")))
	m := newTestManager(t, staticURLs{urls: []string{parentURL}}, store, "2025-01-02T23:00:00Z")

	if _, err := m.IsPreferCache(context.Background(), parentURL); err != nil {
		t.Fatalf("IsPreferCache() error = %v", err)
	}
	if len(store.calls) != 0 {
		t.Errorf("IsPreferCache wrote to the store: %v", store.calls)
	}
}

func TestManager_RecordFetch_Parent(t *testing.T) {
	old := mustTime(t, "2025-01-01T10:00:00Z")
	now := "2025-01-02T23:00:00Z"
	store := newFakeStore(
		NewCacheRecord(parentURL, parentURL, old),
		NewCacheRecord(page2URL, parentURL, old),
		NewCacheRecord(page3URL, parentURL, old),
	)
	m := newTestManager(t, staticURLs{}, store, now)

	if err := m.RecordFetch(context.Background(), parentURL); err != nil {
		t.Fatalf("RecordFetch() error = %v", err)
	}

	wantCalls := []string{"delete:" + parentURL, "upsert:" + parentURL}
	if len(store.calls) != len(wantCalls) {
		t.Fatalf("calls = %v, want %v", store.calls, wantCalls)
	}
	for i := range wantCalls {
		if store.calls[i] != wantCalls[i] {
			t.Errorf("call[%d] = %q, want %q", i, store.calls[i], wantCalls[i])
		}
	}

	for _, url := range []string{page2URL, page3URL} {
		if _, err := store.Get(context.Background(), url); !errors.Is(err, ErrRecordNotFound) {
			t.Errorf("record for %s survived parent refresh (err = %v)", url, err)
		}
	}

	rec, err := store.Get(context.Background(), parentURL)
	if err != nil {
		t.Fatalf("parent record missing: %v", err)
	}
	if want := mustTime(t, now).UnixMilli(); rec.CreatedAt != want {
		t.Errorf("CreatedAt = %d, want %d", rec.CreatedAt, want)
	}
	if rec.ParentURL != parentURL {
		t.Errorf("ParentURL = %q, want %q", rec.ParentURL, parentURL)
	}
}

func TestManager_RecordFetch_NonPaginated(t *testing.T) {
	urls := []string{
		"https://api.com/v2/info/topics",
		"https://api.com/v2/info/topics?page=1",
	}

	for _, url := range urls {
		t.Run(url, func(t *testing.T) {
			store := newFakeStore()
			m := newTestManager(t, staticURLs{}, store, "2025-01-02T23:00:00Z")

			if err := m.RecordFetch(context.Background(), url); err != nil {
				t.Fatalf("RecordFetch() error = %v", err)
			}
			if len(store.calls) != 2 || store.calls[0] != "delete:"+url || store.calls[1] != "upsert:"+url {
				t.Errorf("calls = %v, want delete then upsert of %s", store.calls, url)
			}
		})
	}
}

func TestManager_RecordFetch_Page(t *testing.T) {
	old := mustTime(t, "2025-01-02T10:00:00Z")
	store := newFakeStore(
		NewCacheRecord(parentURL, parentURL, old),
		NewCacheRecord(page3URL, parentURL, old),
	)
	m := newTestManager(t, staticURLs{}, store, "2025-01-02T23:00:00Z")

	if err := m.RecordFetch(context.Background(), page2URL); err != nil {
		t.Fatalf("RecordFetch() error = %v", err)
	}

	if len(store.calls) != 1 || store.calls[0] != "upsert:"+page2URL {
		t.Errorf("calls = %v, want a single upsert", store.calls)
	}
	for _, url := range []string{parentURL, page3URL} {
		rec, err := store.Get(context.Background(), url)
		if err != nil {
			t.Errorf("record for %s removed by a page fetch: %v", url, err)
			continue
		}
		if rec.CreatedAt != old.UnixMilli() {
			t.Errorf("record for %s modified by a page fetch", url)
		}
	}

	rec, err := store.Get(context.Background(), page2URL)
	if err != nil {
		t.Fatalf("page record missing: %v", err)
	}
	if rec.ParentURL != parentURL {
		t.Errorf("ParentURL = %q, want %q", rec.ParentURL, parentURL)
	}
}

func TestManager_RecordFetch_Errors(t *testing.T) {
	errBoom := errors.New("boom")

	t.Run("delete failure skips upsert", func(t *testing.T) {
		store := newFakeStore()
		store.deleteErr = errBoom
		m := newTestManager(t, staticURLs{}, store, "2025-01-02T23:00:00Z")

		if err := m.RecordFetch(context.Background(), parentURL); !errors.Is(err, errBoom) {
			t.Errorf("RecordFetch() error = %v, want %v", err, errBoom)
		}
		if len(store.calls) != 1 {
			t.Errorf("calls = %v, want only the failed delete", store.calls)
		}
	})

	t.Run("upsert failure", func(t *testing.T) {
		store := newFakeStore()
		store.upsertErr = errBoom
		m := newTestManager(t, staticURLs{}, store, "2025-01-02T23:00:00Z")

		if err := m.RecordFetch(context.Background(), page2URL); !errors.Is(err, errBoom) {
			t.Errorf("RecordFetch() error = %v, want %v", err, errBoom)
		}
	})
}

func TestManager_RecordFetch_CancelledContext(t *testing.T) {
	store := newFakeStore()
	m := newTestManager(t, staticURLs{}, store, "2025-01-02T23:00:00Z")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := m.RecordFetch(ctx, parentURL); err != nil {
		t.Fatalf("RecordFetch() error = %v", err)
	}
	if len(store.calls) != 2 {
		t.Errorf("calls = %v, want delete and upsert", store.calls)
	}
}

func TestManager_RoundTrip(t *testing.T) {
	ctx := context.Background()
	now := mustTime(t, "2025-01-02T12:00:00Z")
	clock := &FixedClock{T: now}

	responses := NewMemoryResponses(DefaultRetention, ClockFunc(func() time.Time { return clock.T }))
	store := newFakeStore()
	m := NewManager(responses, store,
		WithClock(ClockFunc(func() time.Time { return clock.T })),
		WithLogger(zerolog.Nop()),
	)

	for _, url := range []string{parentURL, page2URL} {
		if err := responses.Set(ctx, url, &CacheEntry{Data: []byte("{}"), StatusCode: 200}); err != nil {
			t.Fatalf("Set(%s) error = %v", url, err)
		}
		if err := m.RecordFetch(ctx, url); err != nil {
			t.Fatalf("RecordFetch(%s) error = %v", url, err)
		}
	}

	clock.T = now.Add(time.Hour)
	for _, url := range []string{parentURL, page2URL} {
		prefer, err := m.IsPreferCache(ctx, url)
		if err != nil || !prefer {
			t.Errorf("IsPreferCache(%s) = %v, %v; want true, nil", url, prefer, err)
		}
	}

	// refreshing the parent invalidates page 2
	if err := m.RecordFetch(ctx, parentURL); err != nil {
		t.Fatalf("RecordFetch(parent) error = %v", err)
	}
	prefer, err := m.IsPreferCache(ctx, page2URL)
	if err != nil {
		t.Fatalf("IsPreferCache(page2) error = %v", err)
	}
	if prefer {
		t.Error("IsPreferCache(page2) = true after parent refresh")
	}

	// next calendar day
	clock.T = mustTime(t, "2025-01-03T00:30:00Z")
	prefer, err = m.IsPreferCache(ctx, parentURL)
	if err != nil {
		t.Fatalf("IsPreferCache(parent) error = %v", err)
	}
	if prefer {
		t.Error("IsPreferCache(parent) = true on the next calendar day")
	}
}

func TestManager_ParentURL(t *testing.T) {
	m := newTestManager(t, staticURLs{}, newFakeStore(), "2025-01-02T23:00:00Z")
	if got := m.ParentURL(page2URL); got != parentURL {
		t.Errorf("ParentURL() = %q, want %q", got, parentURL)
	}
}
