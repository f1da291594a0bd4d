package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/poiesic/sitesearch/indexing"
	"github.com/poiesic/sitesearch/search"
)

var (
	errEmptyQuery = errors.New("search query is empty")
	errEmptyURL   = errors.New("page url is empty")
)

type totalJSON struct {
	Sites    int  `json:"sites"`
	Pages    int  `json:"pages"`
	Lemmas   int  `json:"lemmas"`
	Indexing bool `json:"indexing"`
}

type siteJSON struct {
	URL        string `json:"url"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	StatusTime int64  `json:"statusTime"`
	Error      string `json:"error,omitempty"`
	Pages      int    `json:"pages"`
	Lemmas     int    `json:"lemmas"`
}

type statisticsJSON struct {
	Total    totalJSON  `json:"total"`
	Detailed []siteJSON `json:"detailed"`
}

type statisticsResponse struct {
	Result     bool           `json:"result"`
	Statistics statisticsJSON `json:"statistics"`
}

type resultJSON struct {
	Site      string  `json:"site"`
	SiteName  string  `json:"siteName"`
	URI       string  `json:"uri"`
	Title     string  `json:"title"`
	Snippet   string  `json:"snippet"`
	Relevance float64 `json:"relevance"`
}

type searchResponse struct {
	Result bool         `json:"result"`
	Count  int          `json:"count"`
	Data   []resultJSON `json:"data"`
}

// GET /api/statistics
func (h *Handler) handleStatistics(w http.ResponseWriter, r *http.Request) {
	st, err := h.stats.Statistics(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	resp := statisticsResponse{
		Result: true,
		Statistics: statisticsJSON{
			Total: totalJSON{
				Sites:    st.Total.Sites,
				Pages:    st.Total.Pages,
				Lemmas:   st.Total.Lemmas,
				Indexing: st.Total.Indexing,
			},
			Detailed: make([]siteJSON, 0, len(st.Detailed)),
		},
	}
	for _, d := range st.Detailed {
		resp.Statistics.Detailed = append(resp.Statistics.Detailed, siteJSON{
			URL:        d.URL,
			Name:       d.Name,
			Status:     d.Status.String(),
			StatusTime: d.StatusTime.Unix(),
			Error:      d.Error,
			Pages:      d.Pages,
			Lemmas:     d.Lemmas,
		})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// GET /api/startIndexing
func (h *Handler) handleStartIndexing(w http.ResponseWriter, r *http.Request) {
	err := h.indexer.StartIndexing(r.Context())
	switch {
	case err == nil:
		h.writeJSON(w, http.StatusOK, statusResponse{Result: true})
	case errors.Is(err, indexing.ErrAlreadyRunning):
		h.writeError(w, http.StatusBadRequest, err)
	default:
		h.writeError(w, http.StatusInternalServerError, err)
	}
}

// GET /api/stopIndexing
func (h *Handler) handleStopIndexing(w http.ResponseWriter, r *http.Request) {
	err := h.indexer.StopIndexing(r.Context())
	switch {
	case err == nil:
		h.writeJSON(w, http.StatusOK, statusResponse{Result: true})
	case errors.Is(err, indexing.ErrNotRunning):
		h.writeError(w, http.StatusBadRequest, err)
	default:
		h.writeError(w, http.StatusInternalServerError, err)
	}
}

// POST /api/indexPage?url=
func (h *Handler) handleIndexPage(w http.ResponseWriter, r *http.Request) {
	url := strings.TrimSpace(r.FormValue("url"))
	if url == "" {
		h.writeError(w, http.StatusBadRequest, errEmptyURL)
		return
	}

	err := h.indexer.IndexPage(r.Context(), url)
	switch {
	case err == nil:
		h.writeJSON(w, http.StatusOK, statusResponse{Result: true})
	case errors.Is(err, indexing.ErrOutOfScope):
		h.writeError(w, http.StatusBadRequest, err)
	default:
		h.writeError(w, http.StatusInternalServerError, err)
	}
}

// GET /api/search?query&site&offset&limit
func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := search.Query{
		Text: strings.TrimSpace(q.Get("query")),
		Site: strings.TrimSpace(q.Get("site")),
	}
	if query.Text == "" {
		h.writeError(w, http.StatusBadRequest, errEmptyQuery)
		return
	}

	var err error
	if query.Offset, err = intParam(q.Get("offset")); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("offset: %w", err))
		return
	}
	if query.Limit, err = intParam(q.Get("limit")); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("limit: %w", err))
		return
	}

	results, err := h.searcher.Search(r.Context(), query)
	switch {
	case err == nil:
	case errors.Is(err, search.ErrSiteNotIndexed),
		errors.Is(err, search.ErrNoIndexedSites),
		errors.Is(err, search.ErrNoLemmas),
		errors.Is(err, search.ErrInvalidPagination):
		h.writeError(w, http.StatusBadRequest, err)
		return
	default:
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	resp := searchResponse{Result: true, Count: results.Count, Data: make([]resultJSON, 0, len(results.Items))}
	for _, item := range results.Items {
		resp.Data = append(resp.Data, resultJSON{
			Site:      item.SiteURL,
			SiteName:  item.SiteName,
			URI:       item.Path,
			Title:     item.Title,
			Snippet:   item.Snippet,
			Relevance: item.Relevance,
		})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// intParam parses an optional non-negative integer; "" is zero.
func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, search.ErrInvalidPagination
	}
	return n, nil
}
