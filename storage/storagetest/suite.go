// Package storagetest holds a conformance suite run against every storage backend.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/sitesearch/core"
	"github.com/poiesic/sitesearch/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns fresh, empty repositories. Cleanup is registered on t.
type Factory func(t *testing.T) *storage.Repositories

// RunRepositoryTests exercises the storage contract against a backend.
func RunRepositoryTests(t *testing.T, newRepos Factory) {
	t.Run("sites", func(t *testing.T) { testSites(t, newRepos(t)) })
	t.Run("site cascade delete", func(t *testing.T) { testCascade(t, newRepos(t)) })
	t.Run("pages", func(t *testing.T) { testPages(t, newRepos(t)) })
	t.Run("pages by site", func(t *testing.T) { testPagesBySite(t, newRepos(t)) })
	t.Run("lemmas", func(t *testing.T) { testLemmas(t, newRepos(t)) })
	t.Run("index entries", func(t *testing.T) { testIndex(t, newRepos(t)) })
	t.Run("transactions", func(t *testing.T) { testTransactions(t, newRepos(t)) })
}

// NewSite stores a site in the INDEXING state.
func NewSite(t *testing.T, repos *storage.Repositories, url string) *core.Site {
	t.Helper()
	site, err := repos.Sites.AddSite(context.Background(), &core.Site{
		URL:        url,
		Name:       url,
		Status:     core.SiteStatusIndexing,
		StatusTime: time.Now().UTC().Truncate(time.Microsecond),
	})
	require.NoError(t, err)
	return site
}

// NewPage stores a page with the given path and content.
func NewPage(t *testing.T, repos *storage.Repositories, siteID core.ID, path, content string) *core.Page {
	t.Helper()
	page, err := repos.Pages.AddPage(context.Background(), &core.Page{
		SiteId:  siteID,
		Path:    path,
		Code:    200,
		Content: content,
	})
	require.NoError(t, err)
	return page
}

func testSites(t *testing.T, repos *storage.Repositories) {
	ctx := context.Background()

	site := NewSite(t, repos, "https://example.com")
	assert.NotZero(t, site.Id)

	t.Run("duplicate url", func(t *testing.T) {
		_, err := repos.Sites.AddSite(ctx, &core.Site{URL: "https://example.com", Status: core.SiteStatusIndexing})
		assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	})

	t.Run("invalid site", func(t *testing.T) {
		_, err := repos.Sites.AddSite(ctx, &core.Site{URL: "example.com", Status: core.SiteStatusIndexing})
		assert.ErrorIs(t, err, core.ErrInvalidSite)
	})

	t.Run("get and find", func(t *testing.T) {
		got, err := repos.Sites.GetSite(ctx, site.Id)
		require.NoError(t, err)
		assert.Equal(t, site.URL, got.URL)
		assert.Equal(t, core.SiteStatusIndexing, got.Status)
		assert.True(t, site.StatusTime.Equal(got.StatusTime))

		found, err := repos.Sites.FindSiteByURL(ctx, "https://example.com")
		require.NoError(t, err)
		assert.Equal(t, site.Id, found.Id)

		_, err = repos.Sites.FindSiteByURL(ctx, "https://missing.org")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = repos.Sites.GetSite(ctx, 9999)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("update and filter by status", func(t *testing.T) {
		other := NewSite(t, repos, "https://other.org")

		site.Status = core.SiteStatusFailed
		site.LastError = "boom"
		_, err := repos.Sites.UpdateSite(ctx, site)
		require.NoError(t, err)

		got, err := repos.Sites.GetSite(ctx, site.Id)
		require.NoError(t, err)
		assert.Equal(t, core.SiteStatusFailed, got.Status)
		assert.Equal(t, "boom", got.LastError)

		all, err := repos.Sites.GetSites(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		indexing, err := repos.Sites.GetSitesByStatus(ctx, core.SiteStatusIndexing)
		require.NoError(t, err)
		require.Len(t, indexing, 1)
		assert.Equal(t, other.Id, indexing[0].Id)
	})

	t.Run("update missing", func(t *testing.T) {
		_, err := repos.Sites.UpdateSite(ctx, &core.Site{Id: 4242, URL: "https://x.org", Status: core.SiteStatusIndexed})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func testCascade(t *testing.T, repos *storage.Repositories) {
	ctx := context.Background()

	doomed := NewSite(t, repos, "https://doomed.org")
	kept := NewSite(t, repos, "https://kept.org")

	populate := func(site *core.Site) (*core.Page, *core.Lemma) {
		page := NewPage(t, repos, site.Id, "/", "<html></html>")
		lemma, err := repos.Lemmas.AddLemma(ctx, &core.Lemma{SiteId: site.Id, Text: "тест", Frequency: 1})
		require.NoError(t, err)
		require.NoError(t, repos.Index.AddIndexEntries(ctx, &core.IndexEntry{PageId: page.Id, LemmaId: lemma.Id, Rank: 2}))
		return page, lemma
	}
	doomedPage, doomedLemma := populate(doomed)
	keptPage, keptLemma := populate(kept)

	require.NoError(t, repos.Sites.DeleteSite(ctx, doomed.Id))

	_, err := repos.Sites.GetSite(ctx, doomed.Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = repos.Sites.FindSiteByURL(ctx, doomed.URL)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = repos.Pages.GetPage(ctx, doomedPage.Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = repos.Lemmas.GetLemma(ctx, doomedLemma.Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	entries, err := repos.Index.GetIndexEntriesByLemma(ctx, doomedLemma.Id)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = repos.Pages.GetPage(ctx, keptPage.Id)
	assert.NoError(t, err)
	entries, err = repos.Index.GetIndexEntriesByLemma(ctx, keptLemma.Id)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	// The URL is free again.
	recreated := NewSite(t, repos, "https://doomed.org")
	assert.NotEqual(t, doomed.Id, recreated.Id)

	assert.ErrorIs(t, repos.Sites.DeleteSite(ctx, doomed.Id), storage.ErrNotFound)
}

func testPages(t *testing.T, repos *storage.Repositories) {
	ctx := context.Background()
	site := NewSite(t, repos, "https://example.com")

	page := NewPage(t, repos, site.Id, "/about", "<p>about</p>")
	assert.NotZero(t, page.Id)

	_, err := repos.Pages.AddPage(ctx, &core.Page{SiteId: site.Id, Path: "/about", Code: 200})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	found, err := repos.Pages.PageExists(ctx, site.Id, "/about")
	require.NoError(t, err)
	assert.True(t, found)
	found, err = repos.Pages.PageExists(ctx, site.Id, "/missing")
	require.NoError(t, err)
	assert.False(t, found)

	got, err := repos.Pages.FindPageByPath(ctx, site.Id, "/about")
	require.NoError(t, err)
	assert.Equal(t, page.Id, got.Id)
	assert.Equal(t, "<p>about</p>", got.Content)
	assert.Equal(t, 200, got.Code)

	second := NewPage(t, repos, site.Id, "/", "")
	pages, err := repos.Pages.GetPages(ctx, page.Id, 9999, second.Id)
	require.NoError(t, err)
	assert.Len(t, pages, 2)

	count, err := repos.Pages.CountPages(ctx, site.Id)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, repos.Pages.DeletePage(ctx, page.Id))
	_, err = repos.Pages.FindPageByPath(ctx, site.Id, "/about")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, repos.Pages.DeletePage(ctx, page.Id), storage.ErrNotFound)

	count, err = repos.Pages.CountPages(ctx, site.Id)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func testPagesBySite(t *testing.T, repos *storage.Repositories) {
	ctx := context.Background()
	site := NewSite(t, repos, "https://example.com")
	other := NewSite(t, repos, "https://other.org")

	var ids []core.ID
	for _, path := range []string{"/a", "/b", "/c", "/d", "/e"} {
		ids = append(ids, NewPage(t, repos, site.Id, path, path).Id)
		NewPage(t, repos, other.Id, path, path)
	}

	first, err := repos.Pages.GetPagesBySite(ctx, site.Id, 0, 3)
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.Equal(t, ids[:3], []core.ID{first[0].Id, first[1].Id, first[2].Id})

	rest, err := repos.Pages.GetPagesBySite(ctx, site.Id, first[2].Id, 3)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, ids[3:], []core.ID{rest[0].Id, rest[1].Id})
	for _, p := range append(first, rest...) {
		assert.Equal(t, site.Id, p.SiteId)
	}

	none, err := repos.Pages.GetPagesBySite(ctx, site.Id, rest[1].Id, 3)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testLemmas(t *testing.T, repos *storage.Repositories) {
	ctx := context.Background()
	site := NewSite(t, repos, "https://example.com")
	other := NewSite(t, repos, "https://other.org")

	lemma, err := repos.Lemmas.AddLemma(ctx, &core.Lemma{SiteId: site.Id, Text: "поиск", Frequency: 1})
	require.NoError(t, err)
	assert.Equal(t, core.LemmaID(site.Id, "поиск"), lemma.Id)

	_, err = repos.Lemmas.AddLemma(ctx, &core.Lemma{SiteId: site.Id, Text: "поиск", Frequency: 1})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Same text on another site is a different lemma.
	_, err = repos.Lemmas.AddLemma(ctx, &core.Lemma{SiteId: other.Id, Text: "поиск", Frequency: 1})
	require.NoError(t, err)

	lemma.Frequency = 5
	_, err = repos.Lemmas.UpdateLemma(ctx, lemma)
	require.NoError(t, err)

	found, err := repos.Lemmas.FindLemma(ctx, site.Id, "поиск")
	require.NoError(t, err)
	assert.Equal(t, 5, found.Frequency)

	_, err = repos.Lemmas.FindLemma(ctx, site.Id, "нет")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	count, err := repos.Lemmas.CountLemmas(ctx, site.Id)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, repos.Lemmas.DeleteLemma(ctx, lemma.Id))
	_, err = repos.Lemmas.GetLemma(ctx, lemma.Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, repos.Lemmas.DeleteLemma(ctx, lemma.Id), storage.ErrNotFound)

	_, err = repos.Lemmas.UpdateLemma(ctx, lemma)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testIndex(t *testing.T, repos *storage.Repositories) {
	ctx := context.Background()
	site := NewSite(t, repos, "https://example.com")
	a := NewPage(t, repos, site.Id, "/a", "")
	b := NewPage(t, repos, site.Id, "/b", "")
	lemma, err := repos.Lemmas.AddLemma(ctx, &core.Lemma{SiteId: site.Id, Text: "тест", Frequency: 2})
	require.NoError(t, err)
	extra, err := repos.Lemmas.AddLemma(ctx, &core.Lemma{SiteId: site.Id, Text: "клик", Frequency: 1})
	require.NoError(t, err)

	require.NoError(t, repos.Index.AddIndexEntries(ctx,
		&core.IndexEntry{PageId: a.Id, LemmaId: lemma.Id, Rank: 3},
		&core.IndexEntry{PageId: b.Id, LemmaId: lemma.Id, Rank: 1},
		&core.IndexEntry{PageId: a.Id, LemmaId: extra.Id, Rank: 1},
	))

	err = repos.Index.AddIndexEntries(ctx, &core.IndexEntry{PageId: a.Id, LemmaId: lemma.Id, Rank: 1})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	byLemma, err := repos.Index.GetIndexEntriesByLemma(ctx, lemma.Id)
	require.NoError(t, err)
	require.Len(t, byLemma, 2)
	ranks := map[core.ID]float32{}
	for _, e := range byLemma {
		ranks[e.PageId] = e.Rank
	}
	assert.Equal(t, map[core.ID]float32{a.Id: 3, b.Id: 1}, ranks)

	byPage, err := repos.Index.GetIndexEntriesByPage(ctx, a.Id)
	require.NoError(t, err)
	assert.Len(t, byPage, 2)

	require.NoError(t, repos.Index.DeleteIndexEntries(ctx, byPage...))
	byPage, err = repos.Index.GetIndexEntriesByPage(ctx, a.Id)
	require.NoError(t, err)
	assert.Empty(t, byPage)

	byLemma, err = repos.Index.GetIndexEntriesByLemma(ctx, lemma.Id)
	require.NoError(t, err)
	require.Len(t, byLemma, 1)
	assert.Equal(t, b.Id, byLemma[0].PageId)
}

func testTransactions(t *testing.T, repos *storage.Repositories) {
	ctx := context.Background()
	site := NewSite(t, repos, "https://example.com")
	errAbort := errors.New("abort")

	t.Run("rollback on error", func(t *testing.T) {
		err := repos.WithTransaction(ctx, func(ctx context.Context) error {
			if _, err := repos.Pages.AddPage(ctx, &core.Page{SiteId: site.Id, Path: "/tx", Code: 200}); err != nil {
				return err
			}
			found, err := repos.Pages.PageExists(ctx, site.Id, "/tx")
			if err != nil {
				return err
			}
			assert.True(t, found, "transaction should see its own writes")
			return errAbort
		})
		assert.ErrorIs(t, err, errAbort)

		found, err := repos.Pages.PageExists(ctx, site.Id, "/tx")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("commit", func(t *testing.T) {
		err := repos.WithTransaction(ctx, func(ctx context.Context) error {
			page, err := repos.Pages.AddPage(ctx, &core.Page{SiteId: site.Id, Path: "/ok", Code: 200})
			if err != nil {
				return err
			}
			lemma, err := repos.Lemmas.AddLemma(ctx, &core.Lemma{SiteId: site.Id, Text: "ок", Frequency: 1})
			if err != nil {
				return err
			}
			// Nested calls join the outer transaction.
			return repos.WithTransaction(ctx, func(ctx context.Context) error {
				return repos.Index.AddIndexEntries(ctx, &core.IndexEntry{PageId: page.Id, LemmaId: lemma.Id, Rank: 1})
			})
		})
		require.NoError(t, err)

		page, err := repos.Pages.FindPageByPath(ctx, site.Id, "/ok")
		require.NoError(t, err)
		entries, err := repos.Index.GetIndexEntriesByPage(ctx, page.Id)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})
}
