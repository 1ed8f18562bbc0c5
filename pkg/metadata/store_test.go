package metadata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Sternrassler/trendnow-cache/pkg/cache"
)

const (
	parentURL = "https://api.com/v2/trendings?topic=general&language=en&country=US"
	page2URL  = parentURL + "&page=2"
	page3URL  = parentURL + "&page=3"
	otherURL  = "https://api.com/v2/trendings?topic=world&language=en"
)

// runStoreContract checks the behaviour every cache.MetadataStore must share.
func runStoreContract(t *testing.T, store cache.MetadataStore) {
	t.Helper()
	ctx := context.Background()
	created := time.Date(2025, 1, 2, 22, 30, 0, 0, time.UTC)

	t.Run("get missing", func(t *testing.T) {
		_, err := store.Get(ctx, "https://api.com/v2/nothing")
		if !errors.Is(err, cache.ErrRecordNotFound) {
			t.Errorf("Get() error = %v, want ErrRecordNotFound", err)
		}
	})

	t.Run("upsert and get", func(t *testing.T) {
		rec := cache.NewCacheRecord(parentURL, parentURL, created)
		if err := store.Upsert(ctx, rec); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
		got, err := store.Get(ctx, parentURL)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if *got != rec {
			t.Errorf("Get() = %+v, want %+v", *got, rec)
		}
	})

	t.Run("upsert replaces", func(t *testing.T) {
		later := cache.NewCacheRecord(parentURL, parentURL, created.Add(time.Hour))
		if err := store.Upsert(ctx, later); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
		got, err := store.Get(ctx, parentURL)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.CreatedAt != later.CreatedAt {
			t.Errorf("CreatedAt = %d, want %d", got.CreatedAt, later.CreatedAt)
		}
	})

	t.Run("delete by parent", func(t *testing.T) {
		for _, rec := range []cache.CacheRecord{
			cache.NewCacheRecord(page2URL, parentURL, created),
			cache.NewCacheRecord(page3URL, parentURL, created),
			cache.NewCacheRecord(otherURL, otherURL, created),
		} {
			if err := store.Upsert(ctx, rec); err != nil {
				t.Fatalf("Upsert(%s) error = %v", rec.URL, err)
			}
		}

		if err := store.DeleteByParent(ctx, parentURL); err != nil {
			t.Fatalf("DeleteByParent() error = %v", err)
		}

		for _, url := range []string{parentURL, page2URL, page3URL} {
			if _, err := store.Get(ctx, url); !errors.Is(err, cache.ErrRecordNotFound) {
				t.Errorf("Get(%s) error = %v, want ErrRecordNotFound", url, err)
			}
		}
		if _, err := store.Get(ctx, otherURL); err != nil {
			t.Errorf("unrelated record deleted: %v", err)
		}
	})

	t.Run("delete unknown parent", func(t *testing.T) {
		if err := store.DeleteByParent(ctx, "https://api.com/v2/unknown"); err != nil {
			t.Errorf("DeleteByParent() error = %v", err)
		}
	})

	t.Run("re-insert after delete", func(t *testing.T) {
		rec := cache.NewCacheRecord(page2URL, parentURL, created)
		if err := store.Upsert(ctx, rec); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
		if _, err := store.Get(ctx, page2URL); err != nil {
			t.Errorf("Get() error = %v", err)
		}
	})
}
