// Package stats aggregates per-site and total index statistics.
package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/poiesic/sitesearch/core"
	"github.com/poiesic/sitesearch/storage"
)

// ErrRepositoriesRequired is returned when repositories are not provided.
var ErrRepositoriesRequired = errors.New("repositories required")

// IndexingState reports whether a crawl is in progress.
type IndexingState interface {
	IsIndexing() bool
}

// Total sums the statistics of every site.
type Total struct {
	Sites    int
	Pages    int
	Lemmas   int
	Indexing bool
}

// SiteDetail describes one stored site.
type SiteDetail struct {
	URL        string
	Name       string
	Status     core.SiteStatus
	StatusTime time.Time
	Error      string
	Pages      int
	Lemmas     int
}

// Statistics is a snapshot of the index.
type Statistics struct {
	Total    Total
	Detailed []SiteDetail
}

// Collector gathers statistics from storage.
type Collector struct {
	repos *storage.Repositories
	state IndexingState
}

// NewCollector creates a Collector. state may be nil when no crawler runs
// in this process.
func NewCollector(repos *storage.Repositories, state IndexingState) (*Collector, error) {
	if repos.Validate() != nil {
		return nil, ErrRepositoriesRequired
	}
	return &Collector{repos: repos, state: state}, nil
}

// Statistics returns totals plus one detail entry per stored site, ordered by site ID.
func (c *Collector) Statistics(ctx context.Context) (*Statistics, error) {
	sites, err := c.repos.Sites.GetSites(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}

	out := &Statistics{Detailed: make([]SiteDetail, 0, len(sites))}
	for _, site := range sites {
		pages, err := c.repos.Pages.CountPages(ctx, site.Id)
		if err != nil {
			return nil, fmt.Errorf("count pages of %s: %w", site.URL, err)
		}
		lemmas, err := c.repos.Lemmas.CountLemmas(ctx, site.Id)
		if err != nil {
			return nil, fmt.Errorf("count lemmas of %s: %w", site.URL, err)
		}

		out.Total.Pages += pages
		out.Total.Lemmas += lemmas
		out.Detailed = append(out.Detailed, SiteDetail{
			URL:        site.URL,
			Name:       site.Name,
			Status:     site.Status,
			StatusTime: site.StatusTime,
			Error:      site.LastError,
			Pages:      pages,
			Lemmas:     lemmas,
		})
	}
	out.Total.Sites = len(sites)
	if c.state != nil {
		out.Total.Indexing = c.state.IsIndexing()
	}
	return out, nil
}
