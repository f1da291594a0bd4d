// Package indexer maintains the per-site inverted lemma index: lemma document
// frequencies and the page/lemma entries weighted by term frequency.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/poiesic/sitesearch/core"
	"github.com/poiesic/sitesearch/lemma"
	"github.com/poiesic/sitesearch/storage"
)

const (
	defaultMaxAttempts    = 8
	defaultRetryBaseDelay = 20 * time.Millisecond
)

// Indexer writes and retracts the index contribution of single pages.
// Every operation runs in one storage transaction and is retried when the
// transaction loses a write conflict to a concurrent indexer.
type Indexer struct {
	repos          *storage.Repositories
	extractor      *lemma.Extractor
	logger         *slog.Logger
	maxAttempts    int
	retryBaseDelay time.Duration
}

// Option configures an Indexer.
type Option func(*Indexer) error

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Indexer) error {
		ix.logger = logger
		return nil
	}
}

// WithRetry sets how often a conflicting transaction is retried.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(ix *Indexer) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		ix.maxAttempts = maxAttempts
		ix.retryBaseDelay = baseDelay
		return nil
	}
}

// NewIndexer creates an Indexer.
func NewIndexer(repos *storage.Repositories, extractor *lemma.Extractor, opts ...Option) (*Indexer, error) {
	if repos.Validate() != nil {
		return nil, ErrRepositoriesRequired
	}
	if extractor == nil {
		return nil, ErrExtractorRequired
	}

	ix := &Indexer{
		repos:          repos,
		extractor:      extractor,
		logger:         slog.Default(),
		maxAttempts:    defaultMaxAttempts,
		retryBaseDelay: defaultRetryBaseDelay,
	}
	for _, opt := range opts {
		if err := opt(ix); err != nil {
			return nil, err
		}
	}
	ix.logger = ix.logger.With("component", "indexer")
	return ix, nil
}

// Extractor returns the lemma extractor used by the indexer.
func (ix *Indexer) Extractor() *lemma.Extractor {
	return ix.extractor
}

// IndexPage adds a stored page's lemmas to the site index. Each lemma's
// document frequency grows by one however often it occurs on the page.
// A page without extractable lemmas stays stored but unindexed.
func (ix *Indexer) IndexPage(ctx context.Context, site *core.Site, page *core.Page, text string) error {
	if page.SiteId != site.Id {
		return fmt.Errorf("%w: page %d, site %d", ErrSiteMismatch, page.Id, site.Id)
	}

	counts, err := ix.extractor.Extract(text)
	if err != nil {
		return err
	}
	if len(counts) == 0 {
		ix.logger.Debug("no lemmas on page", "site", site.URL, "path", page.Path)
		return nil
	}

	err = ix.inTransaction(ctx, func(ctx context.Context) error {
		return ix.apply(ctx, site.Id, page.Id, counts)
	})
	if err != nil {
		return fmt.Errorf("index %s%s: %w", site.URL, page.Path, err)
	}

	ix.logger.Debug("page indexed", "site", site.URL, "path", page.Path, "lemmas", len(counts))
	return nil
}

// RemovePage retracts a page's index contribution and deletes the page.
// Lemmas whose document frequency drops to zero are deleted.
func (ix *Indexer) RemovePage(ctx context.Context, page *core.Page) error {
	err := ix.inTransaction(ctx, func(ctx context.Context) error {
		if err := ix.retract(ctx, page.Id); err != nil {
			return err
		}
		return ix.repos.Pages.DeletePage(ctx, page.Id)
	})
	if err != nil {
		return fmt.Errorf("remove page %d: %w", page.Id, err)
	}
	return nil
}

// Reindex replaces a page's index contribution with the lemmas of text,
// keeping the page row.
func (ix *Indexer) Reindex(ctx context.Context, site *core.Site, page *core.Page, text string) error {
	if page.SiteId != site.Id {
		return fmt.Errorf("%w: page %d, site %d", ErrSiteMismatch, page.Id, site.Id)
	}

	counts, err := ix.extractor.Extract(text)
	if err != nil {
		return err
	}

	err = ix.inTransaction(ctx, func(ctx context.Context) error {
		if err := ix.retract(ctx, page.Id); err != nil {
			return err
		}
		if len(counts) == 0 {
			return nil
		}
		return ix.apply(ctx, site.Id, page.Id, counts)
	})
	if err != nil {
		return fmt.Errorf("reindex %s%s: %w", site.URL, page.Path, err)
	}
	return nil
}

func (ix *Indexer) inTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return RetryWithBackoff(ctx, func() error {
		return ix.repos.WithTransaction(ctx, fn)
	}, ix.maxAttempts, ix.retryBaseDelay, func(err error) bool {
		return errors.Is(err, storage.ErrConflict)
	})
}

// apply bumps lemma frequencies and writes one entry per lemma.
func (ix *Indexer) apply(ctx context.Context, siteID, pageID core.ID, counts map[string]int) error {
	entries := make([]*core.IndexEntry, 0, len(counts))
	for _, text := range slices.Sorted(maps.Keys(counts)) {
		l, err := ix.repos.Lemmas.FindLemma(ctx, siteID, text)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			l, err = ix.repos.Lemmas.AddLemma(ctx, &core.Lemma{SiteId: siteID, Text: text, Frequency: 1})
		case err == nil:
			l.Frequency++
			l, err = ix.repos.Lemmas.UpdateLemma(ctx, l)
		}
		if err != nil {
			return fmt.Errorf("lemma %q: %w", text, err)
		}
		entries = append(entries, &core.IndexEntry{
			PageId:  pageID,
			LemmaId: l.Id,
			Rank:    float32(counts[text]),
		})
	}
	return ix.repos.Index.AddIndexEntries(ctx, entries...)
}

// retract removes a page's entries and decrements the lemmas they reference.
func (ix *Indexer) retract(ctx context.Context, pageID core.ID) error {
	entries, err := ix.repos.Index.GetIndexEntriesByPage(ctx, pageID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	for _, entry := range entries {
		l, err := ix.repos.Lemmas.GetLemma(ctx, entry.LemmaId)
		if errors.Is(err, storage.ErrNotFound) {
			ix.logger.Warn("index entry references missing lemma", "page", pageID, "lemma", entry.LemmaId)
			continue
		}
		if err != nil {
			return err
		}

		l.Frequency--
		if l.Frequency <= 0 {
			err = ix.repos.Lemmas.DeleteLemma(ctx, l.Id)
		} else {
			_, err = ix.repos.Lemmas.UpdateLemma(ctx, l)
		}
		if err != nil {
			return fmt.Errorf("lemma %q: %w", l.Text, err)
		}
	}
	return ix.repos.Index.DeleteIndexEntries(ctx, entries...)
}
