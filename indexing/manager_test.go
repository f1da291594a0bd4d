package indexing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/sitesearch/core"
	"github.com/poiesic/sitesearch/crawler"
	"github.com/poiesic/sitesearch/indexer"
	"github.com/poiesic/sitesearch/lemma"
	"github.com/poiesic/sitesearch/morph/mock"
	"github.com/poiesic/sitesearch/storage"
	"github.com/poiesic/sitesearch/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testSite serves a small site whose page bodies can be changed by tests.
type testSite struct {
	srv  *httptest.Server
	hits atomic.Int32

	mu    sync.Mutex
	pages map[string]string
}

func newTestSite(t *testing.T, pages map[string]string) *testSite {
	ts := &testSite{pages: pages}
	ts.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.hits.Add(1)
		ts.mu.Lock()
		body, ok := ts.pages[r.URL.Path]
		ts.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, "<html><head><title>сайт</title></head><body>%s</body></html>", body)
	}))
	t.Cleanup(ts.srv.Close)
	return ts
}

func (ts *testSite) set(path, body string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.pages[path] = body
}

func newTestManager(t *testing.T, siteURL string, delay time.Duration) (*Manager, *storage.Repositories) {
	repos, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		repos.Close()
		backend.Close()
	})

	extractor, err := lemma.NewExtractor(mock.NewMockAnalyzer())
	require.NoError(t, err)
	ix, err := indexer.NewIndexer(repos, extractor)
	require.NoError(t, err)

	m, err := NewManager(
		[]SiteConfig{{URL: siteURL + "/", Name: "Тест"}},
		repos, ix, crawler.NewFetcher(crawler.FetcherConfig{Timeout: 2 * time.Second}),
		WithJobOptions(crawler.WithWorkers(2), crawler.WithDelay(delay, delay)),
	)
	require.NoError(t, err)
	return m, repos
}

func TestIndexPageOutOfScope(t *testing.T) {
	ts := newTestSite(t, map[string]string{"/": "главная"})
	m, _ := newTestManager(t, ts.srv.URL, 0)

	for _, url := range []string{
		"https://elsewhere.example/page",
		ts.srv.URL + "0/page",
		"",
	} {
		err := m.IndexPage(context.Background(), url)
		assert.ErrorIs(t, err, ErrOutOfScope, url)
	}
	assert.Zero(t, ts.hits.Load())
}

func TestIndexPage(t *testing.T) {
	ctx := context.Background()
	ts := newTestSite(t, map[string]string{"/news": "старая новость"})
	m, repos := newTestManager(t, ts.srv.URL, 0)

	require.NoError(t, m.IndexPage(ctx, ts.srv.URL+"/news"))

	site, err := repos.Sites.FindSiteByURL(ctx, ts.srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Тест", site.Name)
	assert.Equal(t, core.SiteStatusIndexed, site.Status)

	l, err := repos.Lemmas.FindLemma(ctx, site.Id, "старая")
	require.NoError(t, err)
	assert.Equal(t, 1, l.Frequency)

	t.Run("replaces previous contribution", func(t *testing.T) {
		ts.set("/news", "свежая новость")
		require.NoError(t, m.IndexPage(ctx, ts.srv.URL+"/news"))

		_, err := repos.Lemmas.FindLemma(ctx, site.Id, "старая")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		l, err := repos.Lemmas.FindLemma(ctx, site.Id, "новость")
		require.NoError(t, err)
		assert.Equal(t, 1, l.Frequency)

		count, err := repos.Pages.CountPages(ctx, site.Id)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("fetch error", func(t *testing.T) {
		err := m.IndexPage(ctx, ts.srv.URL+"/missing")
		require.ErrorIs(t, err, ErrPageFetch)
		var statusErr *crawler.StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusNotFound, statusErr.Code)
		assert.Contains(t, err.Error(), "404")
	})
}

func TestIndexPageCompletesSiteAfterFailedAttempt(t *testing.T) {
	ctx := context.Background()
	ts := newTestSite(t, map[string]string{"/ok": "рабочая страница"})
	m, repos := newTestManager(t, ts.srv.URL, 0)

	require.ErrorIs(t, m.IndexPage(ctx, ts.srv.URL+"/missing"), ErrPageFetch)
	site, err := repos.Sites.FindSiteByURL(ctx, ts.srv.URL)
	require.NoError(t, err)
	assert.Equal(t, core.SiteStatusIndexing, site.Status)

	require.NoError(t, m.IndexPage(ctx, ts.srv.URL+"/ok"))
	site, err = repos.Sites.FindSiteByURL(ctx, ts.srv.URL)
	require.NoError(t, err)
	assert.Equal(t, core.SiteStatusIndexed, site.Status)
}

func TestStartIndexingCompletes(t *testing.T) {
	ctx := context.Background()
	ts := newTestSite(t, map[string]string{
		"/":  `главная <a href="/a">а</a>`,
		"/a": `раздел`,
	})
	m, repos := newTestManager(t, ts.srv.URL, 0)

	require.NoError(t, m.StartIndexing(ctx))
	require.Eventually(t, func() bool { return !m.IsIndexing() }, 10*time.Second, 10*time.Millisecond)

	site, err := repos.Sites.FindSiteByURL(ctx, ts.srv.URL)
	require.NoError(t, err)
	assert.Equal(t, core.SiteStatusIndexed, site.Status)
	count, err := repos.Pages.CountPages(ctx, site.Id)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	t.Run("restart starts clean", func(t *testing.T) {
		require.NoError(t, m.StartIndexing(ctx))
		require.Eventually(t, func() bool { return !m.IsIndexing() }, 10*time.Second, 10*time.Millisecond)

		again, err := repos.Sites.FindSiteByURL(ctx, ts.srv.URL)
		require.NoError(t, err)
		assert.NotEqual(t, site.Id, again.Id)

		_, err = repos.Sites.GetSite(ctx, site.Id)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		count, err := repos.Pages.CountPages(ctx, again.Id)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})
}

func TestStartStopIndexing(t *testing.T) {
	ctx := context.Background()
	ts := newTestSite(t, map[string]string{"/": "главная"})
	m, repos := newTestManager(t, ts.srv.URL, time.Hour)

	assert.ErrorIs(t, m.StopIndexing(ctx), ErrNotRunning)

	require.NoError(t, m.StartIndexing(ctx))
	assert.True(t, m.IsIndexing())
	assert.ErrorIs(t, m.StartIndexing(ctx), ErrAlreadyRunning)

	require.NoError(t, m.StopIndexing(ctx))
	assert.False(t, m.IsIndexing())
	assert.ErrorIs(t, m.StopIndexing(ctx), ErrNotRunning)

	site, err := repos.Sites.FindSiteByURL(ctx, ts.srv.URL)
	require.NoError(t, err)
	assert.Equal(t, core.SiteStatusFailed, site.Status)
	assert.Equal(t, crawler.StoppedByUser, site.LastError)

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(waitCtx))
	assert.Zero(t, ts.hits.Load())
}

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager([]SiteConfig{{URL: "https://example.com"}}, nil, nil, nil)
	assert.ErrorIs(t, err, ErrRepositoriesRequired)

	repos, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()
	defer repos.Close()

	_, err = NewManager([]SiteConfig{{URL: "ftp://example.com"}}, repos, nil, nil)
	assert.ErrorIs(t, err, ErrIndexerRequired)
}
