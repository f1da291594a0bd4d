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

// Package sitesearch wires storage, crawling, indexing and search into one Engine.
package sitesearch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/poiesic/sitesearch/api"
	"github.com/poiesic/sitesearch/config"
	"github.com/poiesic/sitesearch/crawler"
	"github.com/poiesic/sitesearch/indexer"
	"github.com/poiesic/sitesearch/indexing"
	"github.com/poiesic/sitesearch/lemma"
	"github.com/poiesic/sitesearch/morph"
	"github.com/poiesic/sitesearch/morph/stemmer"
	"github.com/poiesic/sitesearch/reindex"
	"github.com/poiesic/sitesearch/search"
	"github.com/poiesic/sitesearch/stats"
	"github.com/poiesic/sitesearch/storage"
	"github.com/poiesic/sitesearch/storage/badger"
	"github.com/poiesic/sitesearch/storage/sqlite"
)

// SQLiteFile is the database file name inside the storage path.
const SQLiteFile = "sitesearch.db"

// ErrIndexingInProgress is returned when an offline operation is attempted
// while a crawl is running.
var ErrIndexingInProgress = errors.New("indexing is in progress")

// Engine owns the storage backend and every component built on it.
type Engine struct {
	config    *config.Config
	backend   io.Closer
	repos     *storage.Repositories
	extractor *lemma.Extractor
	indexer   *indexer.Indexer
	manager   *indexing.Manager
	searcher  *search.Searcher
	stats     *stats.Collector
	logger    *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	analyzer morph.Analyzer
	logger   *slog.Logger
}

// WithAnalyzer replaces the Russian stemmer.
func WithAnalyzer(analyzer morph.Analyzer) EngineOption {
	return func(o *engineOptions) {
		o.analyzer = analyzer
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// NewEngine opens the configured storage and builds the components on top of it.
func NewEngine(cfg *config.Config, opts ...EngineOption) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Apply options
	options := &engineOptions{
		analyzer: stemmer.NewRussian(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	repos, backend, err := openStorage(cfg.Storage)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		config:  cfg,
		backend: backend,
		repos:   repos,
		logger:  options.logger,
	}
	if err := e.build(options); err != nil {
		e.closeStorage()
		return nil, err
	}
	return e, nil
}

func (e *Engine) build(options *engineOptions) error {
	var err error
	cfg := e.config

	e.extractor, err = lemma.NewExtractor(options.analyzer, lemma.WithLogger(e.logger))
	if err != nil {
		return err
	}
	e.indexer, err = indexer.NewIndexer(e.repos, e.extractor, indexer.WithLogger(e.logger))
	if err != nil {
		return err
	}

	fetcher := crawler.NewFetcher(crawler.FetcherConfig{
		UserAgent: cfg.UserAgent,
		Referrer:  cfg.Referrer,
		Timeout:   cfg.Crawl.FetchTimeout,
		MaxBytes:  cfg.Crawl.MaxBodyBytes,
	})

	sites := make([]indexing.SiteConfig, len(cfg.Sites))
	for i, s := range cfg.Sites {
		sites[i] = indexing.SiteConfig{URL: s.URL, Name: s.Name}
	}
	e.manager, err = indexing.NewManager(sites, e.repos, e.indexer, fetcher,
		indexing.WithLogger(e.logger),
		indexing.WithJobOptions(
			crawler.WithWorkers(cfg.Crawl.Workers),
			crawler.WithDelay(cfg.Crawl.MinDelay, cfg.Crawl.MaxDelay),
			crawler.WithRateLimit(cfg.Crawl.RateLimit, 1),
		),
	)
	if err != nil {
		return err
	}

	e.searcher, err = search.NewSearcher(e.repos, e.extractor,
		search.WithLogger(e.logger),
		search.WithFrequencyThreshold(cfg.Search.FrequencyThreshold),
		search.WithDefaultLimit(cfg.Search.DefaultLimit),
	)
	if err != nil {
		return err
	}

	e.stats, err = stats.NewCollector(e.repos, e.manager)
	return err
}

func openStorage(cfg config.StorageConfig) (*storage.Repositories, io.Closer, error) {
	switch cfg.Driver {
	case config.DriverBadger:
		backend, err := badger.OpenBackend(cfg.Path, false)
		if err != nil {
			return nil, nil, err
		}
		repos, err := badger.NewRepositories(backend)
		if err != nil {
			backend.Close()
			return nil, nil, err
		}
		return repos, backend, nil
	case config.DriverSQLite:
		backend, err := sqlite.OpenBackend(filepath.Join(cfg.Path, SQLiteFile))
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewRepositories(backend), backend, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", storage.ErrUnsupportedDriver, cfg.Driver)
	}
}

// Close stops a running crawl, waiting up to ctx for in-flight pages,
// then closes storage.
func (e *Engine) Close(ctx context.Context) error {
	if err := e.manager.Shutdown(ctx); err != nil {
		e.logger.Error("error stopping indexing", "err", err)
	}
	return e.closeStorage()
}

func (e *Engine) closeStorage() error {
	if err := e.repos.Close(); err != nil {
		e.logger.Error("error closing repositories", "err", err)
		return err
	}
	if err := e.backend.Close(); err != nil {
		e.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (e *Engine) Config() *config.Config {
	return e.config
}

func (e *Engine) Repositories() *storage.Repositories {
	return e.repos
}

func (e *Engine) Manager() *indexing.Manager {
	return e.manager
}

func (e *Engine) Searcher() *search.Searcher {
	return e.searcher
}

func (e *Engine) Statistics() *stats.Collector {
	return e.stats
}

// NewHandler builds the HTTP API over the engine.
func (e *Engine) NewHandler(opts ...api.Option) (*api.Handler, error) {
	return api.NewHandler(e.manager, e.searcher, e.stats, append([]api.Option{api.WithLogger(e.logger)}, opts...)...)
}

// Reindex rebuilds the index of one stored site, or of all when siteURL is
// empty, from stored page content.
func (e *Engine) Reindex(ctx context.Context, siteURL string, cfg *reindex.Config, progress io.Writer) (*reindex.Summary, error) {
	if e.manager.IsIndexing() {
		return nil, ErrIndexingInProgress
	}
	r, err := reindex.NewReindexer(e.repos, e.indexer, cfg, progress)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, siteURL)
}

// WaitIndexing blocks until no crawl is running, polling every interval.
func (e *Engine) WaitIndexing(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for e.manager.IsIndexing() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
