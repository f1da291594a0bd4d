package reindex

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/sitesearch/core"
	"github.com/poiesic/sitesearch/crawler"
	"github.com/poiesic/sitesearch/indexer"
)

// BatchProcessor re-indexes batches of pages on a worker pool.
type BatchProcessor struct {
	indexer *indexer.Indexer
	pool    *ants.Pool
}

// NewBatchProcessor creates a new batch processor backed by a pool of size workers.
// The processor must be released after use.
func NewBatchProcessor(ix *indexer.Indexer, workers int) (*BatchProcessor, error) {
	if workers < 1 {
		workers = 1
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, err
	}
	return &BatchProcessor{indexer: ix, pool: pool}, nil
}

// Process replaces the index contribution of every page in the batch with
// the lemmas of its stored content. All pages are attempted; the errors of
// the failed ones are joined.
func (bp *BatchProcessor) Process(ctx context.Context, site *core.Site, pages []*core.Page) error {
	if len(pages) == 0 {
		return nil
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	record := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	for _, page := range pages {
		wg.Add(1)
		err := bp.pool.Submit(func() {
			defer wg.Done()
			if err := bp.reindexPage(ctx, site, page); err != nil {
				record(err)
			}
		})
		if err != nil {
			wg.Done()
			record(fmt.Errorf("submit page %s: %w", page.Path, err))
		}
	}
	wg.Wait()

	return errors.Join(errs...)
}

func (bp *BatchProcessor) reindexPage(ctx context.Context, site *core.Site, page *core.Page) error {
	text, err := crawler.ExtractText(page.Content)
	if err != nil {
		return fmt.Errorf("page %s: %w", page.Path, err)
	}
	return bp.indexer.Reindex(ctx, site, page, text)
}

// Release stops the worker pool.
func (bp *BatchProcessor) Release() {
	bp.pool.Release()
}
