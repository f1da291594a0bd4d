// Package indexing owns the crawl lifecycle: starting and stopping full
// re-indexing of the configured sites and indexing single pages on demand.
package indexing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/poiesic/sitesearch/core"
	"github.com/poiesic/sitesearch/crawler"
	"github.com/poiesic/sitesearch/indexer"
	"github.com/poiesic/sitesearch/storage"
)

// SiteConfig is a site the manager is allowed to crawl.
type SiteConfig struct {
	URL  string
	Name string
}

// Manager runs crawl jobs for the configured sites. At most one full
// indexing run is active at a time.
type Manager struct {
	sites   []SiteConfig
	repos   *storage.Repositories
	indexer *indexer.Indexer
	fetcher *crawler.Fetcher
	jobOpts []crawler.JobOption
	logger  *slog.Logger

	mu         sync.Mutex
	running    bool
	generation uint64
	jobs       []*crawler.Job
}

// Option configures a Manager.
type Option func(*Manager) error

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) error {
		m.logger = logger
		return nil
	}
}

// WithJobOptions sets the options applied to every crawl job.
func WithJobOptions(opts ...crawler.JobOption) Option {
	return func(m *Manager) error {
		m.jobOpts = append(m.jobOpts, opts...)
		return nil
	}
}

// NewManager creates a Manager for sites.
func NewManager(sites []SiteConfig, repos *storage.Repositories, ix *indexer.Indexer, fetcher *crawler.Fetcher, opts ...Option) (*Manager, error) {
	if repos.Validate() != nil {
		return nil, ErrRepositoriesRequired
	}
	if ix == nil {
		return nil, ErrIndexerRequired
	}
	if fetcher == nil {
		return nil, ErrFetcherRequired
	}

	m := &Manager{
		repos:   repos,
		indexer: ix,
		fetcher: fetcher,
		logger:  slog.Default(),
	}
	for _, s := range sites {
		s.URL = core.NormalizeBaseURL(s.URL)
		if err := core.ValidateBaseURL(s.URL); err != nil {
			return nil, err
		}
		m.sites = append(m.sites, s)
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	m.logger = m.logger.With("component", "indexing")
	return m, nil
}

// Sites returns the configured sites.
func (m *Manager) Sites() []SiteConfig {
	return append([]SiteConfig(nil), m.sites...)
}

// IsIndexing reports whether a full indexing run is in progress.
func (m *Manager) IsIndexing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// StartIndexing re-creates every configured site and starts crawling it.
// It returns once the jobs are launched; completion is awaited in the background.
func (m *Manager) StartIndexing(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return ErrAlreadyRunning
	}

	// Jobs of a stopped run may still be finishing in-flight fetches.
	for _, job := range m.jobs {
		if _, err := job.Wait(ctx); err != nil {
			return err
		}
	}

	jobs := make([]*crawler.Job, 0, len(m.sites))
	reset := make([]*core.Site, 0, len(m.sites))
	for _, cfg := range m.sites {
		site, err := m.resetSite(ctx, cfg)
		if err != nil {
			m.abandon(reset, err)
			return err
		}
		reset = append(reset, site)

		job, err := crawler.NewJob(site, m.repos, m.indexer, m.fetcher,
			append([]crawler.JobOption{crawler.WithLogger(m.logger)}, m.jobOpts...)...)
		if err != nil {
			m.abandon(reset, err)
			return err
		}
		jobs = append(jobs, job)
	}

	for _, job := range jobs {
		// Jobs outlive the request that started them.
		if err := job.Start(context.Background()); err != nil {
			return err
		}
	}

	m.running = true
	m.generation++
	m.jobs = jobs
	go m.await(m.generation, jobs)

	m.logger.Info("indexing started", "sites", len(jobs))
	return nil
}

// resetSite deletes a stored site with all its data and stores it afresh.
func (m *Manager) resetSite(ctx context.Context, cfg SiteConfig) (*core.Site, error) {
	existing, err := m.repos.Sites.FindSiteByURL(ctx, cfg.URL)
	switch {
	case err == nil:
		if err := m.repos.Sites.DeleteSite(ctx, existing.Id); err != nil {
			return nil, fmt.Errorf("delete site %s: %w", cfg.URL, err)
		}
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("find site %s: %w", cfg.URL, err)
	}

	site, err := m.repos.Sites.AddSite(ctx, &core.Site{
		URL:        cfg.URL,
		Name:       cfg.Name,
		Status:     core.SiteStatusIndexing,
		StatusTime: time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("add site %s: %w", cfg.URL, err)
	}
	return site, nil
}

// abandon marks the sites already reset for a failed start as FAILED.
func (m *Manager) abandon(sites []*core.Site, cause error) {
	for _, site := range sites {
		site.Status = core.SiteStatusFailed
		site.LastError = cause.Error()
		site.StatusTime = time.Now()
		if _, err := m.repos.Sites.UpdateSite(context.Background(), site); err != nil {
			m.logger.Error("failed to update site", "site", site.URL, "err", err)
		}
	}
}

func (m *Manager) await(generation uint64, jobs []*crawler.Job) {
	for _, job := range jobs {
		<-job.Done()
	}

	m.mu.Lock()
	if m.generation == generation {
		m.running = false
	}
	m.mu.Unlock()

	m.logger.Info("indexing finished", "sites", len(jobs))
}

// StopIndexing cancels the running crawl. Fetches already in flight complete
// on their own; every site still being indexed becomes FAILED.
func (m *Manager) StopIndexing(ctx context.Context) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return ErrNotRunning
	}
	jobs := m.jobs
	m.running = false
	m.generation++
	m.mu.Unlock()

	for _, job := range jobs {
		job.Stop()
	}

	stale, err := m.repos.Sites.GetSitesByStatus(ctx, core.SiteStatusIndexing)
	if err != nil {
		return fmt.Errorf("list indexing sites: %w", err)
	}
	for _, site := range stale {
		site.Status = core.SiteStatusFailed
		site.LastError = crawler.StoppedByUser
		site.StatusTime = time.Now()
		if _, err := m.repos.Sites.UpdateSite(ctx, site); err != nil {
			return fmt.Errorf("update site %s: %w", site.URL, err)
		}
	}

	m.logger.Info("indexing stopped", "sites", len(jobs))
	return nil
}

// Shutdown stops a running crawl and waits for its jobs to settle.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	jobs := m.jobs
	m.mu.Unlock()

	if err := m.StopIndexing(ctx); err != nil && !errors.Is(err, ErrNotRunning) {
		return err
	}
	for _, job := range jobs {
		if _, err := job.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// IndexPage fetches a single page of a configured site and replaces its
// index contribution. The URL is checked against the configured sites
// before anything is fetched.
func (m *Manager) IndexPage(ctx context.Context, rawURL string) error {
	rawURL = strings.TrimSpace(rawURL)
	cfg, ok := m.siteFor(rawURL)
	if !ok {
		return fmt.Errorf("%w: %s", ErrOutOfScope, rawURL)
	}

	site, err := m.findOrCreateSite(ctx, cfg)
	if err != nil {
		return err
	}

	path := core.RelativePath(site.URL, rawURL)
	existing, err := m.repos.Pages.FindPageByPath(ctx, site.Id, path)
	switch {
	case err == nil:
		if err := m.indexer.RemovePage(ctx, existing); err != nil {
			return err
		}
	case !errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("find page %s: %w", path, err)
	}

	resp, err := m.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPageFetch, err)
	}
	doc, err := crawler.Parse(resp.URL, bytes.NewReader(resp.Body))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPageFetch, err)
	}

	page, err := m.repos.Pages.AddPage(ctx, &core.Page{
		SiteId:  site.Id,
		Path:    path,
		Code:    resp.StatusCode,
		Content: string(resp.Body),
	})
	if err != nil {
		return fmt.Errorf("store page %s: %w", path, err)
	}
	if err := m.indexer.IndexPage(ctx, site, page, doc.Text); err != nil {
		return err
	}

	site.StatusTime = time.Now()
	if site.Status == core.SiteStatusIndexing && !m.IsIndexing() {
		// No crawl owns the site, so nothing else would complete it.
		site.Status = core.SiteStatusIndexed
	}
	if _, err := m.repos.Sites.UpdateSite(ctx, site); err != nil {
		m.logger.Warn("failed to update site", "site", site.URL, "err", err)
	}

	m.logger.Info("page indexed", "site", site.URL, "path", path)
	return nil
}

// siteFor returns the configured site with the longest base URL covering rawURL.
func (m *Manager) siteFor(rawURL string) (SiteConfig, bool) {
	var best SiteConfig
	found := false
	for _, s := range m.sites {
		if core.InScope(s.URL, rawURL) && len(s.URL) > len(best.URL) {
			best = s
			found = true
		}
	}
	return best, found
}

func (m *Manager) findOrCreateSite(ctx context.Context, cfg SiteConfig) (*core.Site, error) {
	site, err := m.repos.Sites.FindSiteByURL(ctx, cfg.URL)
	if err == nil {
		return site, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("find site %s: %w", cfg.URL, err)
	}

	site, err = m.repos.Sites.AddSite(ctx, &core.Site{
		URL:        cfg.URL,
		Name:       cfg.Name,
		Status:     core.SiteStatusIndexing,
		StatusTime: time.Now(),
	})
	if errors.Is(err, storage.ErrDuplicateKey) {
		site, err = m.repos.Sites.FindSiteByURL(ctx, cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("find site %s: %w", cfg.URL, err)
		}
		return site, nil
	}
	if err != nil {
		return nil, fmt.Errorf("add site %s: %w", cfg.URL, err)
	}
	return site, nil
}
