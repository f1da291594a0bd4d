package search

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/poiesic/sitesearch/core"
	"github.com/poiesic/sitesearch/lemma"
	"github.com/poiesic/sitesearch/storage"
)

const (
	DefaultFrequencyThreshold = 0.8
	DefaultLimit              = 20
)

// Query is a search request. An empty Site searches every indexed site.
type Query struct {
	Text   string
	Site   string
	Offset int
	Limit  int // zero means the default limit
}

// Result is one ranked page.
type Result struct {
	SiteURL   string
	SiteName  string
	Path      string
	Title     string
	Snippet   string // HTML with query words wrapped in <b>
	Relevance float64
}

// Results is one page of ranked results. Count is the number of matches
// before pagination.
type Results struct {
	Count int
	Items []*Result
}

// Searcher ranks indexed pages by lemma term frequency.
type Searcher struct {
	repos     *storage.Repositories
	extractor *lemma.Extractor
	threshold float64
	limit     int
	logger    *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithFrequencyThreshold sets the share of candidate pages above which a
// lemma is too common to rank by. Default is 0.8.
func WithFrequencyThreshold(threshold float64) Option {
	return func(s *Searcher) error {
		if threshold <= 0 || threshold > 1 {
			return ErrInvalidThreshold
		}
		s.threshold = threshold
		return nil
	}
}

// WithDefaultLimit sets the page size used when a query has no limit.
func WithDefaultLimit(limit int) Option {
	return func(s *Searcher) error {
		if limit <= 0 {
			return ErrInvalidPagination
		}
		s.limit = limit
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(repos *storage.Repositories, extractor *lemma.Extractor, opts ...Option) (*Searcher, error) {
	if repos.Validate() != nil {
		return nil, ErrRepositoriesRequired
	}
	if extractor == nil {
		return nil, ErrExtractorRequired
	}

	s := &Searcher{
		repos:     repos,
		extractor: extractor,
		threshold: DefaultFrequencyThreshold,
		limit:     DefaultLimit,
		logger:    slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search ranks the pages matching every selective lemma of the query.
func (s *Searcher) Search(ctx context.Context, query Query) (*Results, error) {
	return s.SearchWithMonitor(ctx, query, nil)
}

// queryLemma is a query lemma resolved against the candidate sites.
type queryLemma struct {
	text      string
	frequency int       // summed document frequency
	ids       []core.ID // one per candidate site that knows the lemma
}

// SearchWithMonitor is Search with callbacks at each stage of the ranking.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query Query, monitor SearchMonitor) (*Results, error) {
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if query.Offset < 0 || query.Limit < 0 {
		return nil, ErrInvalidPagination
	}
	if query.Limit == 0 {
		query.Limit = s.limit
	}

	monitor.Start(query)

	// 1. Candidate sites
	sites, err := s.candidateSites(ctx, query.Site)
	if err != nil {
		return nil, err
	}
	monitor.AfterCandidateSites(sites)

	// 2. Query lemmas
	set, err := s.extractor.LemmaSet(query.Text)
	if err != nil {
		s.logger.Error("error extracting query lemmas", "query", query.Text, "err", err)
		return nil, err
	}
	if len(set) == 0 {
		return nil, ErrNoLemmas
	}
	texts := slices.Sorted(maps.Keys(set))
	monitor.AfterQueryLemmas(texts)

	// 3. Drop lemmas present on too many pages
	totalPages := 0
	for _, site := range sites {
		n, err := s.repos.Pages.CountPages(ctx, site.Id)
		if err != nil {
			return nil, fmt.Errorf("count pages of %s: %w", site.URL, err)
		}
		totalPages += n
	}

	empty := &Results{Items: []*Result{}}
	if totalPages == 0 {
		monitor.Finish(empty)
		return empty, nil
	}

	selected := make([]*queryLemma, 0, len(texts))
	for _, text := range texts {
		ql, err := s.resolveLemma(ctx, sites, text)
		if err != nil {
			return nil, err
		}
		if float64(ql.frequency)/float64(totalPages) >= s.threshold {
			monitor.LemmaFiltered(text, ql.frequency, totalPages)
			continue
		}
		selected = append(selected, ql)
	}
	if len(selected) == 0 {
		monitor.Finish(empty)
		return empty, nil
	}

	// 4. Rarest first
	slices.SortStableFunc(selected, func(a, b *queryLemma) int {
		return cmp.Compare(a.frequency, b.frequency)
	})
	selectedTexts := make([]string, len(selected))
	for i, ql := range selected {
		selectedTexts[i] = ql.text
	}
	monitor.AfterLemmaSelection(selectedTexts)

	// 5-6. Intersect page sets, summing ranks
	scores, err := s.intersect(ctx, selected)
	if err != nil {
		return nil, err
	}
	monitor.AfterIntersection(maps.Keys(scores))

	// 7. Normalize against the best page
	var maxScore float64
	for _, score := range scores {
		maxScore = max(maxScore, score)
	}
	type hit struct {
		pageID    core.ID
		relevance float64
	}
	hits := make([]hit, 0, len(scores))
	for id, score := range scores {
		if score <= 0 {
			continue
		}
		hits = append(hits, hit{pageID: id, relevance: score / maxScore})
	}

	// 8. Order and paginate
	slices.SortFunc(hits, func(a, b hit) int {
		if c := cmp.Compare(b.relevance, a.relevance); c != 0 {
			return c
		}
		return cmp.Compare(a.pageID, b.pageID)
	})

	results := &Results{Count: len(hits), Items: []*Result{}}
	if query.Offset >= len(hits) {
		monitor.Finish(results)
		return results, nil
	}
	window := hits[query.Offset:min(query.Offset+query.Limit, len(hits))]

	// 9. Render
	ids := make([]core.ID, len(window))
	for i, h := range window {
		ids[i] = h.pageID
	}
	pages, err := s.repos.Pages.GetPages(ctx, ids...)
	if err != nil {
		s.logger.Error("error retrieving pages", "pageCount", len(ids), "err", err)
		return nil, err
	}
	byID := make(map[core.ID]*core.Page, len(pages))
	for _, p := range pages {
		byID[p.Id] = p
	}
	siteByID := make(map[core.ID]*core.Site, len(sites))
	for _, site := range sites {
		siteByID[site.Id] = site
	}

	for _, h := range window {
		page, ok := byID[h.pageID]
		if !ok {
			// Removed by a concurrent re-index.
			continue
		}
		site := siteByID[page.SiteId]
		if site == nil {
			continue
		}
		snippet, err := Snippet(page.Content, set, s.extractor)
		if err != nil {
			return nil, err
		}
		results.Items = append(results.Items, &Result{
			SiteURL:   site.URL,
			SiteName:  site.Name,
			Path:      page.Path,
			Title:     ExtractTitle(page.Content),
			Snippet:   snippet,
			Relevance: h.relevance,
		})
	}
	monitor.Finish(results)

	return results, nil
}

func (s *Searcher) candidateSites(ctx context.Context, siteURL string) ([]*core.Site, error) {
	if siteURL != "" {
		site, err := s.repos.Sites.FindSiteByURL(ctx, core.NormalizeBaseURL(siteURL))
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSiteNotIndexed, siteURL)
		}
		if err != nil {
			return nil, err
		}
		if site.Status != core.SiteStatusIndexed {
			return nil, fmt.Errorf("%w: %s is %s", ErrSiteNotIndexed, siteURL, site.Status)
		}
		return []*core.Site{site}, nil
	}

	sites, err := s.repos.Sites.GetSitesByStatus(ctx, core.SiteStatusIndexed)
	if err != nil {
		return nil, err
	}
	if len(sites) == 0 {
		return nil, ErrNoIndexedSites
	}
	return sites, nil
}

func (s *Searcher) resolveLemma(ctx context.Context, sites []*core.Site, text string) (*queryLemma, error) {
	ql := &queryLemma{text: text}
	for _, site := range sites {
		l, err := s.repos.Lemmas.FindLemma(ctx, site.Id, text)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("find lemma %q: %w", text, err)
		}
		ql.frequency += l.Frequency
		ql.ids = append(ql.ids, l.Id)
	}
	return ql, nil
}

// intersect returns page -> summed rank for the pages that contain every lemma.
func (s *Searcher) intersect(ctx context.Context, lemmas []*queryLemma) (map[core.ID]float64, error) {
	var scores map[core.ID]float64
	for _, ql := range lemmas {
		ranks := make(map[core.ID]float64)
		for _, id := range ql.ids {
			entries, err := s.repos.Index.GetIndexEntriesByLemma(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("entries of lemma %q: %w", ql.text, err)
			}
			for _, e := range entries {
				ranks[e.PageId] += float64(e.Rank)
			}
		}

		if scores == nil {
			scores = ranks
		} else {
			for id, score := range scores {
				rank, ok := ranks[id]
				if !ok {
					delete(scores, id)
					continue
				}
				scores[id] = score + rank
			}
		}
		if len(scores) == 0 {
			return scores, nil
		}
	}
	return scores, nil
}
