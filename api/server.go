// Package api exposes indexing, search and statistics over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/poiesic/sitesearch/search"
	"github.com/poiesic/sitesearch/stats"
)

var (
	ErrIndexerRequired    = errors.New("indexing manager required")
	ErrSearcherRequired   = errors.New("searcher required")
	ErrStatisticsRequired = errors.New("statistics collector required")
)

// Indexer starts, stops and feeds crawls.
type Indexer interface {
	StartIndexing(ctx context.Context) error
	StopIndexing(ctx context.Context) error
	IndexPage(ctx context.Context, url string) error
}

// Searcher runs ranked queries.
type Searcher interface {
	Search(ctx context.Context, query search.Query) (*search.Results, error)
}

// StatisticsSource reports index statistics.
type StatisticsSource interface {
	Statistics(ctx context.Context) (*stats.Statistics, error)
}

// Handler serves the HTTP API.
type Handler struct {
	indexer  Indexer
	searcher Searcher
	stats    StatisticsSource
	logger   *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler) error

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) error {
		h.logger = logger
		return nil
	}
}

// NewHandler creates a Handler.
func NewHandler(indexer Indexer, searcher Searcher, statistics StatisticsSource, opts ...Option) (*Handler, error) {
	if indexer == nil {
		return nil, ErrIndexerRequired
	}
	if searcher == nil {
		return nil, ErrSearcherRequired
	}
	if statistics == nil {
		return nil, ErrStatisticsRequired
	}

	h := &Handler{
		indexer:  indexer,
		searcher: searcher,
		stats:    statistics,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, err
		}
	}
	h.logger = h.logger.With("component", "api")
	return h, nil
}

// Router returns a chi router with the API routes and middleware.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	h.RegisterHTTP(r)
	return r
}

// RegisterHTTP registers the API endpoints on r.
func (h *Handler) RegisterHTTP(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/statistics", h.handleStatistics)
		r.Get("/startIndexing", h.handleStartIndexing)
		r.Get("/stopIndexing", h.handleStopIndexing)
		r.Post("/indexPage", h.handleIndexPage)
		r.Get("/search", h.handleSearch)
	})
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			h.logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

type statusResponse struct {
	Result bool   `json:"result"`
	Error  string `json:"error,omitempty"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("failed to write response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "status", status, "err", err)
	}
	h.writeJSON(w, status, statusResponse{Result: false, Error: err.Error()})
}
