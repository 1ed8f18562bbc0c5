package pagination

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds batch fetcher configuration
type Config struct {
	// MaxConcurrency is the maximum number of parallel requests
	MaxConcurrency int
	// Timeout per page fetch
	Timeout time.Duration
	// MaxPages caps how many pages are fetched (0 means all)
	MaxPages int
}

// DefaultConfig returns a quota-friendly default configuration
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        15 * time.Second,
		MaxPages:       10,
	}
}

// PageFetcher fetches single pages of one listing
type PageFetcher[T any] interface {
	// FetchPage fetches a single page and returns data + total page count
	FetchPage(ctx context.Context, pageNum int) (data T, totalPages int, err error)
}

// PageFetcherFunc adapts a function to PageFetcher
type PageFetcherFunc[T any] func(ctx context.Context, pageNum int) (T, int, error)

// FetchPage calls f.
func (f PageFetcherFunc[T]) FetchPage(ctx context.Context, pageNum int) (T, int, error) {
	return f(ctx, pageNum)
}

// PageResult represents the result of fetching a single page
type PageResult[T any] struct {
	PageNumber int
	Data       T
	Error      error
}

// BatchFetcher handles parallel fetching of multiple pages
type BatchFetcher[T any] struct {
	fetcher PageFetcher[T]
	config  Config
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher[T any](fetcher PageFetcher[T], config Config) *BatchFetcher[T] {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	if config.MaxPages < 0 {
		config.MaxPages = 0
	}

	return &BatchFetcher[T]{
		fetcher: fetcher,
		config:  config,
	}
}

// FetchAllPages fetches all pages in parallel using a worker pool.
// Returns map of pageNumber -> data for successful pages
func (bf *BatchFetcher[T]) FetchAllPages(ctx context.Context) (map[int]T, error) {
	start := time.Now()

	// Fetch first page to get total page count
	firstPageData, totalPages, err := bf.fetcher.FetchPage(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch first page: %w", err)
	}

	if bf.config.MaxPages > 0 && totalPages > bf.config.MaxPages {
		log.Debug().
			Int("total_pages", totalPages).
			Int("max_pages", bf.config.MaxPages).
			Msg("Capping page count")
		totalPages = bf.config.MaxPages
	}

	results := map[int]T{1: firstPageData}

	// Single page optimization
	if totalPages <= 1 {
		log.Debug().
			Int("pages", 1).
			Dur("duration", time.Since(start)).
			Msg("Fetch complete (single page)")
		return results, nil
	}

	log.Info().
		Int("total_pages", totalPages).
		Msg("Starting parallel page fetch")

	pageQueue := make(chan int, totalPages)
	pageResults := make(chan PageResult[T], totalPages)
	errs := make(chan error, bf.config.MaxConcurrency)

	// Fill page queue (skip page 1, already fetched)
	for page := 2; page <= totalPages; page++ {
		pageQueue <- page
	}
	close(pageQueue)

	workers := bf.config.MaxConcurrency
	if workers > totalPages-1 {
		workers = totalPages - 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go bf.worker(ctx, pageQueue, pageResults, errs, &wg, i)
	}

	go func() {
		wg.Wait()
		close(pageResults)
		close(errs)
	}()

	fetchedPages := 1
	for result := range pageResults {
		results[result.PageNumber] = result.Data
		fetchedPages++
	}

	if err := <-errs; err != nil {
		log.Warn().
			Err(err).
			Int("fetched_pages", fetchedPages).
			Int("total_pages", totalPages).
			Msg("Worker error - returning partial results")
		return results, fmt.Errorf("worker error (partial data: %d/%d pages): %w", fetchedPages, totalPages, err)
	}

	if err := ctx.Err(); err != nil && fetchedPages < totalPages {
		return results, fmt.Errorf("fetch cancelled (partial data: %d/%d pages): %w", fetchedPages, totalPages, err)
	}

	log.Info().
		Int("pages", fetchedPages).
		Int("total", totalPages).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return results, nil
}

// worker processes pages from the queue
func (bf *BatchFetcher[T]) worker(ctx context.Context, pageQueue <-chan int, results chan<- PageResult[T], errs chan<- error, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	pagesProcessed := 0

	for pageNum := range pageQueue {
		select {
		case <-ctx.Done():
			log.Debug().
				Int("worker_id", workerID).
				Int("pages_processed", pagesProcessed).
				Msg("Worker stopping (context cancelled)")
			return
		default:
		}

		pageCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
		data, _, err := bf.fetcher.FetchPage(pageCtx, pageNum)
		cancel()

		if err != nil {
			log.Warn().
				Err(err).
				Int("worker_id", workerID).
				Int("page", pageNum).
				Msg("Page fetch failed")

			// Non-blocking error send
			select {
			case errs <- err:
			default:
			}
			return
		}

		results <- PageResult[T]{PageNumber: pageNum, Data: data}
		pagesProcessed++
	}

	if pagesProcessed > 0 {
		log.Debug().
			Int("worker_id", workerID).
			Int("pages_processed", pagesProcessed).
			Msg("Worker completed")
	}
}
