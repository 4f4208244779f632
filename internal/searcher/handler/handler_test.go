package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (s *memStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (s *memStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = string(value.([]byte))
	return nil
}

func (s *memStore) FlushByPattern(context.Context, string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.data))
	s.data = make(map[string]string)
	return n, nil
}

func newTestExecutor() *executor.Executor {
	tok := tokenizer.New(tokenizer.Options{Stemmer: tokenizer.PorterStemmer{}})
	docs := index.NewDocStore()
	idx := index.NewInvertedIndex(tok)
	for _, doc := range []catalog.Document{
		{ID: 1, Title: "Brave", Description: "A princess named Merida"},
		{ID: 2, Title: "Braveheart", Description: "Scottish warrior"},
	} {
		docs.Put(doc)
		idx.AddDocument(doc.ID, doc.IndexText())
	}
	return executor.New(tok, docs, idx, executor.Options{}, nil)
}

var searchCfg = config.SearchConfig{DefaultLimit: 5, MaxResults: 10}

type response struct {
	Query    string         `json:"query"`
	Mode     string         `json:"mode"`
	Results  []executor.Hit `json:"results"`
	Returned int            `json:"returned"`
	CacheHit bool           `json:"cache_hit"`
	Error    string         `json:"error"`
}

func do(t *testing.T, h http.HandlerFunc, method, target string) (int, response) {
	t.Helper()
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(method, target, nil))
	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestSearch(t *testing.T) {
	h := New(newTestExecutor(), nil, nil, searchCfg)

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantIDs    []int
	}{
		{"default limit", "/api/v1/search?q=brave", http.StatusOK, []int{1, 2}},
		{"explicit limit", "/api/v1/search?q=brave&limit=1", http.StatusOK, []int{1}},
		{"zero limit", "/api/v1/search?q=brave&limit=0", http.StatusOK, []int{}},
		{"no match", "/api/v1/search?q=xyzzy", http.StatusOK, []int{}},
		{"bm25 mode", "/api/v1/search?q=brave&mode=bm25", http.StatusOK, []int{1}},
		{"missing query", "/api/v1/search", http.StatusBadRequest, nil},
		{"bad limit", "/api/v1/search?q=brave&limit=abc", http.StatusBadRequest, nil},
		{"negative limit", "/api/v1/search?q=brave&limit=-1", http.StatusBadRequest, nil},
		{"bad mode", "/api/v1/search?q=brave&mode=fuzzy", http.StatusBadRequest, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := do(t, h.Search, http.MethodGet, tt.target)
			assert.Equal(t, tt.wantStatus, status)
			if tt.wantStatus != http.StatusOK {
				assert.NotEmpty(t, resp.Error)
				return
			}
			ids := make([]int, 0, len(resp.Results))
			for _, hit := range resp.Results {
				ids = append(ids, hit.Document.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, len(tt.wantIDs), resp.Returned)
		})
	}
}

func TestSearch_LimitCappedAtMaxResults(t *testing.T) {
	h := New(newTestExecutor(), nil, nil, config.SearchConfig{DefaultLimit: 5, MaxResults: 1})
	status, resp := do(t, h.Search, http.MethodGet, "/api/v1/search?q=brave&limit=50")
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, resp.Results, 1)
}

func TestSearch_CacheAndAnalytics(t *testing.T) {
	store := &memStore{data: make(map[string]string)}
	qc := cache.New(store, time.Minute, "build", nil)
	agg := analytics.NewAggregator()
	collector := analytics.NewCollector(nil, agg, config.KafkaConfig{})
	collector.Start(context.Background())
	defer collector.Close()

	h := New(newTestExecutor(), qc, collector, searchCfg)

	_, first := do(t, h.Search, http.MethodGet, "/api/v1/search?q=brave")
	assert.False(t, first.CacheHit)
	_, second := do(t, h.Search, http.MethodGet, "/api/v1/search?q=BRAVE")
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Results, second.Results)

	stats := agg.Stats()
	assert.Equal(t, int64(2), stats.TotalSearches)
	assert.Equal(t, int64(1), stats.CacheHits)

	rec := httptest.NewRecorder()
	h.CacheStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil))
	assert.JSONEq(t, `{"hits":1,"misses":1,"total":2,"hit_rate":"50.0%"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.CacheInvalidate(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, store.data)
}

func TestCacheEndpoints_Disabled(t *testing.T) {
	h := New(newTestExecutor(), nil, nil, searchCfg)

	rec := httptest.NewRecorder()
	h.CacheStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil))
	assert.JSONEq(t, `{"status":"disabled"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.CacheInvalidate(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
