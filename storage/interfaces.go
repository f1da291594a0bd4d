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

package storage

import (
	"context"

	"github.com/poiesic/sitesearch/core"
)

// Repository holds the operations shared by every repository.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// Repository calls made with the context passed to fn join the transaction.
	// Nested calls join the outer transaction.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close releases resources held by the repository.
	Close() error
}

type SiteRepository interface {
	Repository
	// AddSite stores a new site and assigns its ID from a sequence.
	// Returns ErrDuplicateKey if a site with the same URL exists.
	AddSite(ctx context.Context, site *core.Site) (*core.Site, error)

	// UpdateSite replaces an existing site.
	// Returns ErrNotFound if the site doesn't exist.
	UpdateSite(ctx context.Context, site *core.Site) (*core.Site, error)

	// DeleteSite removes a site together with its pages, lemmas and index entries.
	// Returns ErrNotFound if the site doesn't exist.
	DeleteSite(ctx context.Context, id core.ID) error

	// GetSite retrieves a site by ID.
	// Returns ErrNotFound if the site doesn't exist.
	GetSite(ctx context.Context, id core.ID) (*core.Site, error)

	// FindSiteByURL retrieves a site by its base URL.
	// Returns ErrNotFound if no site has that URL.
	FindSiteByURL(ctx context.Context, url string) (*core.Site, error)

	// GetSites returns all sites ordered by ID.
	GetSites(ctx context.Context) ([]*core.Site, error)

	// GetSitesByStatus returns the sites in the given status ordered by ID.
	GetSitesByStatus(ctx context.Context, status core.SiteStatus) ([]*core.Site, error)
}

type PageRepository interface {
	Repository
	// AddPage stores a new page and assigns its ID from a sequence.
	// Returns ErrDuplicateKey if the site already has a page at that path.
	AddPage(ctx context.Context, page *core.Page) (*core.Page, error)

	// DeletePage removes a page row. Callers retract its index entries first.
	// Returns ErrNotFound if the page doesn't exist.
	DeletePage(ctx context.Context, id core.ID) error

	// GetPage retrieves a single page by ID.
	// Returns ErrNotFound if the page doesn't exist.
	GetPage(ctx context.Context, id core.ID) (*core.Page, error)

	// GetPages retrieves multiple pages by their IDs.
	// Returns only the pages that exist (no error for missing pages).
	GetPages(ctx context.Context, ids ...core.ID) ([]*core.Page, error)

	// FindPageByPath retrieves the page of a site at a relative path.
	// Returns ErrNotFound if there is no such page.
	FindPageByPath(ctx context.Context, siteID core.ID, path string) (*core.Page, error)

	// PageExists reports whether the site has a page at the relative path.
	PageExists(ctx context.Context, siteID core.ID, path string) (bool, error)

	// CountPages returns the number of pages stored for a site.
	CountPages(ctx context.Context, siteID core.ID) (int, error)

	// GetPagesBySite returns up to limit pages of a site with ID greater than
	// afterID, ordered by ID. It is used to walk a site in batches.
	GetPagesBySite(ctx context.Context, siteID core.ID, afterID core.ID, limit int) ([]*core.Page, error)
}

type LemmaRepository interface {
	Repository
	// AddLemma stores a new lemma. The ID is derived from (SiteId, Text).
	// Returns ErrDuplicateKey if the lemma already exists.
	AddLemma(ctx context.Context, lemma *core.Lemma) (*core.Lemma, error)

	// UpdateLemma replaces an existing lemma.
	// Returns ErrNotFound if the lemma doesn't exist.
	UpdateLemma(ctx context.Context, lemma *core.Lemma) (*core.Lemma, error)

	// DeleteLemma removes a lemma row.
	// Returns ErrNotFound if the lemma doesn't exist.
	DeleteLemma(ctx context.Context, id core.ID) error

	// GetLemma retrieves a lemma by ID.
	// Returns ErrNotFound if the lemma doesn't exist.
	GetLemma(ctx context.Context, id core.ID) (*core.Lemma, error)

	// FindLemma retrieves the lemma of a site with the given normal form.
	// Returns ErrNotFound if the site has no such lemma.
	FindLemma(ctx context.Context, siteID core.ID, text string) (*core.Lemma, error)

	// CountLemmas returns the number of lemmas stored for a site.
	CountLemmas(ctx context.Context, siteID core.ID) (int, error)
}

type IndexRepository interface {
	Repository
	// AddIndexEntries stores index entries.
	// Returns ErrDuplicateKey if an entry for the same (page, lemma) exists.
	AddIndexEntries(ctx context.Context, entries ...*core.IndexEntry) error

	// DeleteIndexEntries removes index entries. Missing entries are ignored.
	DeleteIndexEntries(ctx context.Context, entries ...*core.IndexEntry) error

	// GetIndexEntriesByPage returns every entry of a page.
	GetIndexEntriesByPage(ctx context.Context, pageID core.ID) ([]*core.IndexEntry, error)

	// GetIndexEntriesByLemma returns every entry referencing a lemma, ordered by page ID.
	GetIndexEntriesByLemma(ctx context.Context, lemmaID core.ID) ([]*core.IndexEntry, error)
}
