package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/poiesic/sitesearch/core"
	"github.com/poiesic/sitesearch/indexing"
	"github.com/poiesic/sitesearch/search"
	"github.com/poiesic/sitesearch/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIndexer struct {
	startErr, stopErr, pageErr error
	pages                      []string
}

func (f *fakeIndexer) StartIndexing(context.Context) error { return f.startErr }
func (f *fakeIndexer) StopIndexing(context.Context) error  { return f.stopErr }
func (f *fakeIndexer) IndexPage(_ context.Context, u string) error {
	f.pages = append(f.pages, u)
	return f.pageErr
}

type fakeSearcher struct {
	results *search.Results
	err     error
	last    search.Query
}

func (f *fakeSearcher) Search(_ context.Context, q search.Query) (*search.Results, error) {
	f.last = q
	return f.results, f.err
}

type fakeStats struct {
	st  *stats.Statistics
	err error
}

func (f *fakeStats) Statistics(context.Context) (*stats.Statistics, error) { return f.st, f.err }

type apiFixture struct {
	indexer  *fakeIndexer
	searcher *fakeSearcher
	stats    *fakeStats
	srv      *httptest.Server
}

func newAPIFixture(t *testing.T) *apiFixture {
	f := &apiFixture{
		indexer:  &fakeIndexer{},
		searcher: &fakeSearcher{results: &search.Results{}},
		stats:    &fakeStats{st: &stats.Statistics{}},
	}
	h, err := NewHandler(f.indexer, f.searcher, f.stats)
	require.NoError(t, err)
	f.srv = httptest.NewServer(h.Router())
	t.Cleanup(f.srv.Close)
	return f
}

func (f *apiFixture) do(t *testing.T, method, path string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestStartStopIndexing(t *testing.T) {
	f := newAPIFixture(t)

	code, body := f.do(t, http.MethodGet, "/api/startIndexing")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["result"])
	assert.NotContains(t, body, "error")

	f.indexer.startErr = indexing.ErrAlreadyRunning
	code, body = f.do(t, http.MethodGet, "/api/startIndexing")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, false, body["result"])
	assert.Equal(t, indexing.ErrAlreadyRunning.Error(), body["error"])

	f.indexer.startErr = errors.New("disk full")
	code, _ = f.do(t, http.MethodGet, "/api/startIndexing")
	assert.Equal(t, http.StatusInternalServerError, code)

	f.indexer.stopErr = indexing.ErrNotRunning
	code, body = f.do(t, http.MethodGet, "/api/stopIndexing")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, indexing.ErrNotRunning.Error(), body["error"])

	f.indexer.stopErr = nil
	code, _ = f.do(t, http.MethodGet, "/api/stopIndexing")
	assert.Equal(t, http.StatusOK, code)
}

func TestIndexPage(t *testing.T) {
	f := newAPIFixture(t)

	code, _ := f.do(t, http.MethodPost, "/api/indexPage?url=")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Empty(t, f.indexer.pages)

	code, body := f.do(t, http.MethodPost, "/api/indexPage?url="+url.QueryEscape("https://example.com/a"))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["result"])
	assert.Equal(t, []string{"https://example.com/a"}, f.indexer.pages)

	f.indexer.pageErr = fmt.Errorf("%w: https://other.example", indexing.ErrOutOfScope)
	code, _ = f.do(t, http.MethodPost, "/api/indexPage?url=https://other.example")
	assert.Equal(t, http.StatusBadRequest, code)

	f.indexer.pageErr = fmt.Errorf("%w: HTTP 404", indexing.ErrPageFetch)
	code, body = f.do(t, http.MethodPost, "/api/indexPage?url=https://example.com/x")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Contains(t, body["error"], "404")

	resp, err := http.Get(f.srv.URL + "/api/indexPage?url=https://example.com/x")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestSearch(t *testing.T) {
	f := newAPIFixture(t)
	f.searcher.results = &search.Results{
		Count: 7,
		Items: []*search.Result{{
			SiteURL:   "https://example.com",
			SiteName:  "Example",
			Path:      "/a",
			Title:     "A",
			Snippet:   "<b>тест</b>",
			Relevance: 1,
		}},
	}

	code, body := f.do(t, http.MethodGet, "/api/search?query="+url.QueryEscape("тест")+"&site=https://example.com&offset=5&limit=1")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["result"])
	assert.EqualValues(t, 7, body["count"])
	data := body["data"].([]any)
	require.Len(t, data, 1)
	item := data[0].(map[string]any)
	assert.Equal(t, "https://example.com", item["site"])
	assert.Equal(t, "Example", item["siteName"])
	assert.Equal(t, "/a", item["uri"])
	assert.Equal(t, "<b>тест</b>", item["snippet"])
	assert.EqualValues(t, 1, item["relevance"])
	assert.Equal(t, search.Query{Text: "тест", Site: "https://example.com", Offset: 5, Limit: 1}, f.searcher.last)

	t.Run("bad requests", func(t *testing.T) {
		for _, path := range []string{
			"/api/search?query=",
			"/api/search?query=%20%20",
			"/api/search?query=a&offset=x",
			"/api/search?query=a&limit=-1",
		} {
			code, body := f.do(t, http.MethodGet, path)
			assert.Equal(t, http.StatusBadRequest, code, path)
			assert.Equal(t, false, body["result"], path)
		}
	})

	t.Run("error mapping", func(t *testing.T) {
		for err, want := range map[error]int{
			search.ErrSiteNotIndexed:       http.StatusBadRequest,
			search.ErrNoIndexedSites:       http.StatusBadRequest,
			search.ErrNoLemmas:             http.StatusBadRequest,
			errors.New("analyzer failure"): http.StatusInternalServerError,
		} {
			f.searcher.err = err
			code, body := f.do(t, http.MethodGet, "/api/search?query=a")
			assert.Equal(t, want, code, err.Error())
			assert.Equal(t, err.Error(), body["error"])
		}
	})
}

func TestStatistics(t *testing.T) {
	f := newAPIFixture(t)
	f.stats.st = &stats.Statistics{
		Total: stats.Total{Sites: 1, Pages: 10, Lemmas: 50, Indexing: true},
		Detailed: []stats.SiteDetail{{
			URL:        "https://example.com",
			Name:       "Example",
			Status:     core.SiteStatusFailed,
			StatusTime: time.Unix(1700000000, 0),
			Error:      "stopped by user",
			Pages:      10,
			Lemmas:     50,
		}},
	}

	code, body := f.do(t, http.MethodGet, "/api/statistics")
	require.Equal(t, http.StatusOK, code)
	st := body["statistics"].(map[string]any)
	total := st["total"].(map[string]any)
	assert.EqualValues(t, 10, total["pages"])
	assert.Equal(t, true, total["indexing"])

	site := st["detailed"].([]any)[0].(map[string]any)
	assert.Equal(t, "FAILED", site["status"])
	assert.EqualValues(t, 1700000000, site["statusTime"])
	assert.Equal(t, "stopped by user", site["error"])

	f.stats.err = errors.New("storage closed")
	code, _ = f.do(t, http.MethodGet, "/api/statistics")
	assert.Equal(t, http.StatusInternalServerError, code)
}

func TestNewHandler(t *testing.T) {
	_, err := NewHandler(nil, &fakeSearcher{}, &fakeStats{})
	assert.ErrorIs(t, err, ErrIndexerRequired)
	_, err = NewHandler(&fakeIndexer{}, nil, &fakeStats{})
	assert.ErrorIs(t, err, ErrSearcherRequired)
	_, err = NewHandler(&fakeIndexer{}, &fakeSearcher{}, nil)
	assert.ErrorIs(t, err, ErrStatisticsRequired)
}
