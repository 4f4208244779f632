package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/movie-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/logger"
)

type Searcher interface {
	SearchMode(ctx context.Context, query string, limit int, mode string) (*executor.SearchResult, error)
	Mode() string
}

type Handler struct {
	searcher     Searcher
	cache        *cache.QueryCache
	collector    *analytics.Collector
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

// New builds the search API handler. queryCache and collector may be nil.
func New(searcher Searcher, queryCache *cache.QueryCache, collector *analytics.Collector, cfg config.SearchConfig) *Handler {
	return &Handler{
		searcher:     searcher,
		cache:        queryCache,
		collector:    collector,
		defaultLimit: cfg.DefaultLimit,
		maxResults:   cfg.MaxResults,
		logger:       slog.Default().With("component", "search-handler"),
	}
}

type searchResponse struct {
	*executor.SearchResult
	Returned int   `json:"returned"`
	CacheHit bool  `json:"cache_hit"`
	TookMs   int64 `json:"took_ms"`
}

// Search handles GET /api/v1/search?q=&limit=&mode=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	params := r.URL.Query()
	query := params.Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	limit := h.defaultLimit
	if limitStr := params.Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}
	if h.maxResults > 0 && limit > h.maxResults {
		limit = h.maxResults
	}

	mode := params.Get("mode")
	if mode == "" {
		mode = h.searcher.Mode()
	}
	if mode != config.ModeScan && mode != config.ModeBM25 {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("mode must be %q or %q", config.ModeScan, config.ModeBM25))
		return
	}

	compute := func() (*executor.SearchResult, error) {
		return h.searcher.SearchMode(ctx, query, limit, mode)
	}
	var (
		result   *executor.SearchResult
		cacheHit bool
		err      error
	)
	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, cache.Request{Query: query, Limit: limit, Mode: mode}, compute)
	} else {
		result, err = compute()
	}
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		log.Error("search execution failed", "query", query, "mode", mode, "error", err)
		h.writeError(w, status, err.Error())
		return
	}

	latencyMs := time.Since(start).Milliseconds()
	log.Info("search completed",
		"query", query,
		"mode", mode,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", latencyMs,
	)
	if h.collector != nil {
		eventType := analytics.EventSearch
		if len(result.Results) == 0 {
			eventType = analytics.EventZeroResult
		}
		h.collector.TrackSearch(analytics.SearchEvent{
			Type:      eventType,
			Query:     query,
			Terms:     result.Terms,
			Mode:      mode,
			Limit:     limit,
			Returned:  len(result.Results),
			LatencyMs: latencyMs,
			CacheHit:  cacheHit,
			Timestamp: time.Now().UTC(),
			RequestID: logger.RequestID(ctx),
		})
	}

	h.writeJSON(w, http.StatusOK, searchResponse{
		SearchResult: result,
		Returned:     len(result.Results),
		CacheHit:     cacheHit,
		TookMs:       latencyMs,
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
