// Package pagination provides parallel batch fetching for paged news endpoints.
//
// The first page reports the total page count. This package fetches it
// alone, then spreads the remaining pages across a worker pool.
//
// Example usage:
//
//	config := pagination.DefaultConfig()
//	fetcher := pagination.NewBatchFetcher[[]models.News](pages, config)
//	results, err := fetcher.FetchAllPages(ctx)
//
// The batch fetcher:
//   - Fetches the first page to determine total pages
//   - Caps the page count at MaxPages
//   - Spawns a worker pool (default 4 workers)
//   - Collects results, returning partial data on worker errors
//
// Fetching the first page before any other matters to the news cache:
// recording page 1 purges the records of its later pages, so those must be
// recorded afterwards.
package pagination
