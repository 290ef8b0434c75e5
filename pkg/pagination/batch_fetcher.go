package pagination

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// BatchConfig holds batch fetcher configuration.
type BatchConfig struct {
	// MaxConcurrency is the maximum number of parallel page fetches.
	// TMDB tolerates bursts, but the client-side limiter still applies.
	MaxConcurrency int

	// Timeout per page fetch.
	Timeout time.Duration
}

// DefaultBatchConfig returns the default configuration for TMDB.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		MaxConcurrency: 4,
		Timeout:        10 * time.Second,
	}
}

// pageResult is the outcome of fetching a single page.
type pageResult[T any] struct {
	number int
	page   UpstreamPage[T]
	err    error
}

// BatchFetcher fetches several upstream pages in parallel.
type BatchFetcher[T any] struct {
	fetcher PageFetcher[T]
	config  BatchConfig
}

// NewBatchFetcher creates a new batch fetcher.
func NewBatchFetcher[T any](fetcher PageFetcher[T], config BatchConfig) *BatchFetcher[T] {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	return &BatchFetcher[T]{
		fetcher: fetcher,
		config:  config,
	}
}

// FetchPages fetches the given upstream pages using a worker pool.
// Duplicate and non-positive page numbers are ignored. On failure the pages
// fetched so far are returned together with the first error.
func (bf *BatchFetcher[T]) FetchPages(ctx context.Context, pages []int) (map[int]UpstreamPage[T], error) {
	start := time.Now()

	queue := make([]int, 0, len(pages))
	seen := make(map[int]struct{}, len(pages))
	for _, p := range pages {
		if p < 1 {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		queue = append(queue, p)
	}

	results := make(map[int]UpstreamPage[T], len(queue))
	if len(queue) == 0 {
		return results, nil
	}

	pageQueue := make(chan int, len(queue))
	for _, p := range queue {
		pageQueue <- p
	}
	close(pageQueue)

	workers := min(bf.config.MaxConcurrency, len(queue))
	pageResults := make(chan pageResult[T], len(queue))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go bf.worker(ctx, pageQueue, pageResults, &wg, i)
	}

	go func() {
		wg.Wait()
		close(pageResults)
	}()

	var firstErr error
	for result := range pageResults {
		if result.err != nil {
			if firstErr == nil {
				firstErr = result.err
			}
			continue
		}
		results[result.number] = result.page
	}

	if firstErr != nil {
		log.Warn().
			Err(firstErr).
			Int("fetched_pages", len(results)).
			Int("requested_pages", len(queue)).
			Msg("Batch fetch incomplete - returning partial results")
		return results, fmt.Errorf("batch fetch (partial data: %d/%d pages): %w", len(results), len(queue), firstErr)
	}

	log.Debug().
		Int("pages", len(results)).
		Int("workers", workers).
		Dur("duration", time.Since(start)).
		Msg("Batch fetch complete")

	return results, nil
}

// worker processes pages from the queue until it drains or ctx is done.
func (bf *BatchFetcher[T]) worker(ctx context.Context, pageQueue <-chan int, results chan<- pageResult[T], wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	pagesProcessed := 0

	for pageNum := range pageQueue {
		if err := ctx.Err(); err != nil {
			results <- pageResult[T]{number: pageNum, err: &UpstreamFetchError{Page: pageNum, Err: err}}
			continue
		}

		pageCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
		page, err := bf.fetcher.FetchPage(pageCtx, pageNum)
		cancel()

		if err != nil {
			log.Debug().
				Err(err).
				Int("worker_id", workerID).
				Int("page", pageNum).
				Msg("Page fetch failed")
			results <- pageResult[T]{number: pageNum, err: &UpstreamFetchError{Page: pageNum, Err: err}}
			continue
		}

		results <- pageResult[T]{number: pageNum, page: page}
		pagesProcessed++
	}

	if pagesProcessed > 0 {
		log.Debug().
			Int("worker_id", workerID).
			Int("pages_processed", pagesProcessed).
			Msg("Worker completed")
	}
}
