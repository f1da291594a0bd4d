// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package reindex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/poiesic/sitesearch/core"
	"github.com/poiesic/sitesearch/indexer"
	"github.com/poiesic/sitesearch/storage"
)

// Config holds configuration for the reindexing operation.
type Config struct {
	// BatchSize is the number of pages to load in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of pages)
	ReportInterval int

	// Workers is the number of pages re-indexed concurrently
	Workers int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		Workers:        max(runtime.NumCPU()/2, 1),
	}
}

// Summary describes a finished run.
type Summary struct {
	Sites   int
	Pages   int
	Elapsed time.Duration
}

// Reindexer rebuilds the index of stored sites from their stored pages.
type Reindexer struct {
	repos    *storage.Repositories
	indexer  *indexer.Indexer
	config   *Config
	progress io.Writer
	logger   *slog.Logger
}

// NewReindexer creates a new reindexer.
// progress: where to write progress output (typically os.Stderr)
func NewReindexer(repos *storage.Repositories, ix *indexer.Indexer, config *Config, progress io.Writer) (*Reindexer, error) {
	if repos.Validate() != nil {
		return nil, ErrRepositoriesRequired
	}
	if ix == nil {
		return nil, ErrIndexerRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reindexer{
		repos:    repos,
		indexer:  ix,
		config:   config,
		progress: progress,
		logger:   slog.Default().With("component", "reindex"),
	}, nil
}

// Run re-indexes every page of the site with base URL siteURL, or of every
// stored site when siteURL is empty.
func (r *Reindexer) Run(ctx context.Context, siteURL string) (*Summary, error) {
	sites, err := r.sites(ctx, siteURL)
	if err != nil {
		return nil, err
	}

	total := 0
	counts := make([]int, len(sites))
	for i, site := range sites {
		counts[i], err = r.repos.Pages.CountPages(ctx, site.Id)
		if err != nil {
			return nil, fmt.Errorf("count pages of %s: %w", site.URL, err)
		}
		total += counts[i]
	}

	summary := &Summary{Sites: len(sites)}
	if total == 0 {
		fmt.Fprintf(r.progress, "No pages found (%d sites)\n", len(sites))
		return summary, nil
	}

	fmt.Fprintf(r.progress, "Reindexing %d pages of %d sites (batch size: %d)\n",
		total, len(sites), r.config.BatchSize)

	processor, err := NewBatchProcessor(r.indexer, r.config.Workers)
	if err != nil {
		return nil, err
	}
	defer processor.Release()

	iterator := NewPageIterator(r.repos.Pages, r.config.BatchSize)
	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	for i, site := range sites {
		if counts[i] == 0 {
			continue
		}
		r.logger.Info("reindexing site", "site", site.URL, "pages", counts[i])

		err := iterator.ForEach(ctx, site.Id, func(pages []*core.Page) error {
			if err := processor.Process(ctx, site, pages); err != nil {
				return fmt.Errorf("failed to process batch: %w", err)
			}
			summary.Pages += len(pages)
			tracker.Add(len(pages))
			return nil
		})
		if err != nil {
			return summary, fmt.Errorf("reindex %s: %w", site.URL, err)
		}
	}

	tracker.Finish()
	summary.Elapsed = tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reindexing complete. Processed %d pages in %v (%.1f pages/sec)\n",
		summary.Pages, summary.Elapsed.Round(time.Millisecond), float64(summary.Pages)/summary.Elapsed.Seconds())

	return summary, nil
}

func (r *Reindexer) sites(ctx context.Context, siteURL string) ([]*core.Site, error) {
	if siteURL == "" {
		return r.repos.Sites.GetSites(ctx)
	}
	site, err := r.repos.Sites.FindSiteByURL(ctx, core.NormalizeBaseURL(siteURL))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("site %s: %w", siteURL, err)
	}
	if err != nil {
		return nil, err
	}
	return []*core.Site{site}, nil
}
