package sitesearch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/sitesearch/config"
	"github.com/poiesic/sitesearch/core"
	"github.com/poiesic/sitesearch/reindex"
	"github.com/poiesic/sitesearch/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var enginePages = map[string]string{
	"/": `<html><head><title>Главная</title></head><body>
		<p>Кошка сидит на окне.</p><a href="/dogs">далее</a></body></html>`,
	"/dogs": `<html><head><title>Собаки</title></head><body>
		<p>Собака лает во дворе.</p><a href="/">домой</a></body></html>`,
}

func newEngineSite(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := enginePages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, driver, siteURL string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Driver = driver
	cfg.Storage.Path = filepath.Join(t.TempDir(), "data")
	cfg.Crawl.Workers = 2
	cfg.Crawl.MinDelay = 0
	cfg.Crawl.MaxDelay = 0
	cfg.Search.FrequencyThreshold = 1
	if siteURL != "" {
		cfg.Sites = []config.SiteConfig{{URL: siteURL, Name: "Test"}}
	}
	return cfg
}

func TestNewEngine(t *testing.T) {
	for _, driver := range []string{config.DriverBadger, config.DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			engine, err := NewEngine(testConfig(t, driver, ""))
			require.NoError(t, err)
			require.NotNil(t, engine)
			defer engine.Close(context.Background())

			// Verify components are initialized
			assert.NotNil(t, engine.Repositories())
			assert.NotNil(t, engine.Manager())
			assert.NotNil(t, engine.Searcher())
			assert.NotNil(t, engine.Statistics())
			assert.NotNil(t, engine.backend)
			assert.NotNil(t, engine.logger)
		})
	}

	t.Run("invalid config", func(t *testing.T) {
		cfg := testConfig(t, "postgres", "")
		engine, err := NewEngine(cfg)
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
		assert.Nil(t, engine)
	})

	t.Run("error with invalid path", func(t *testing.T) {
		// Try to open storage at a file path instead of directory
		cfg := testConfig(t, config.DriverBadger, "")
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0644))
		cfg.Storage.Path = tmpFile

		engine, err := NewEngine(cfg)
		assert.Error(t, err)
		assert.Nil(t, engine)
	})
}

func TestEngine_CrawlAndSearch(t *testing.T) {
	for _, driver := range []string{config.DriverBadger, config.DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			srv := newEngineSite(t)
			engine, err := NewEngine(testConfig(t, driver, srv.URL))
			require.NoError(t, err)
			defer engine.Close(context.Background())

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			require.NoError(t, engine.Manager().StartIndexing(ctx))
			require.NoError(t, engine.WaitIndexing(ctx, 10*time.Millisecond))

			site, err := engine.Repositories().Sites.FindSiteByURL(ctx, srv.URL)
			require.NoError(t, err)
			assert.Equal(t, core.SiteStatusIndexed, site.Status)

			results, err := engine.Searcher().Search(ctx, search.Query{Text: "кошки"})
			require.NoError(t, err)
			require.Equal(t, 1, results.Count)
			assert.Equal(t, "/", results.Items[0].Path)
			assert.Equal(t, "Главная", results.Items[0].Title)
			assert.Contains(t, results.Items[0].Snippet, "<b>Кошка</b>")

			statistics, err := engine.Statistics().Statistics(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, statistics.Total.Sites)
			assert.Equal(t, 2, statistics.Total.Pages)
			assert.False(t, statistics.Total.Indexing)

			summary, err := engine.Reindex(ctx, "", reindex.DefaultConfig(), io.Discard)
			require.NoError(t, err)
			assert.Equal(t, 2, summary.Pages)

			results, err = engine.Searcher().Search(ctx, search.Query{Text: "собака"})
			require.NoError(t, err)
			require.Equal(t, 1, results.Count)
			assert.Equal(t, "/dogs", results.Items[0].Path)
		})
	}
}

func TestEngine_NewHandler(t *testing.T) {
	engine, err := NewEngine(testConfig(t, config.DriverSQLite, ""))
	require.NoError(t, err)
	defer engine.Close(context.Background())

	handler, err := engine.NewHandler()
	require.NoError(t, err)
	require.NotNil(t, handler)

	srv := httptest.NewServer(handler.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/statistics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEngine_Close(t *testing.T) {
	engine, err := NewEngine(testConfig(t, config.DriverBadger, ""))
	require.NoError(t, err)

	assert.NoError(t, engine.Close(context.Background()))
}
