package cache

import (
	"context"
	"errors"
	"path"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/searcher/executor"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]string)}
}

func (s *memStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (s *memStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		s.data[key] = string(v)
	case string:
		s.data[key] = v
	default:
		return errors.New("unsupported value")
	}
	return nil
}

func (s *memStore) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k := range s.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(s.data, k)
			n++
		}
	}
	return n, nil
}

func sampleResult() *executor.SearchResult {
	return &executor.SearchResult{
		Query: "brave",
		Terms: []string{"brave"},
		Mode:  "scan",
		Results: []executor.Hit{
			{Document: catalog.Document{ID: 1, Title: "Brave", Description: "A princess named Merida"}},
		},
	}
}

func TestNormalizeQuery(t *testing.T) {
	assert.Equal(t, "heart brave", normalizeQuery("Heart  brave"))
	assert.Equal(t, "brave", normalizeQuery("brave BRAVE"))
	assert.Equal(t, "brave heart", normalizeQuery("brave heart Brave"))
	assert.Equal(t, "", normalizeQuery("   "))
}

func TestBuildKey(t *testing.T) {
	c := New(newMemStore(), time.Minute, "build-1", nil)
	base := Request{Query: "brave heart", Limit: 5, Mode: "scan"}

	assert.Equal(t, c.buildKey(base), c.buildKey(Request{Query: "Brave  HEART", Limit: 5, Mode: "scan"}))
	assert.NotEqual(t, c.buildKey(base), c.buildKey(Request{Query: "heart brave", Limit: 5, Mode: "scan"}))
	assert.NotEqual(t, c.buildKey(base), c.buildKey(Request{Query: "brave heart", Limit: 6, Mode: "scan"}))
	assert.NotEqual(t, c.buildKey(base), c.buildKey(Request{Query: "brave heart", Limit: 5, Mode: "bm25"}))
	assert.Contains(t, c.buildKey(base), keyPrefix)

	before := c.buildKey(base)
	c.SetBuildID("build-2")
	assert.NotEqual(t, before, c.buildKey(base))
}

func TestGetOrCompute(t *testing.T) {
	c := New(newMemStore(), time.Minute, "b", nil)
	ctx := context.Background()
	req := Request{Query: "brave", Limit: 5, Mode: "scan"}

	var calls atomic.Int32
	compute := func() (*executor.SearchResult, error) {
		calls.Add(1)
		return sampleResult(), nil
	}

	result, hit, err := c.GetOrCompute(ctx, req, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "Brave", result.Results[0].Document.Title)

	result, hit, err = c.GetOrCompute(ctx, req, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, sampleResult(), result)
	assert.Equal(t, int32(1), calls.Load())

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestGetOrCompute_HitEchoesCallerQuery(t *testing.T) {
	c := New(newMemStore(), time.Minute, "b", nil)
	ctx := context.Background()
	compute := func() (*executor.SearchResult, error) {
		return sampleResult(), nil
	}

	_, hit, err := c.GetOrCompute(ctx, Request{Query: "brave", Limit: 5, Mode: "scan"}, compute)
	require.NoError(t, err)
	assert.False(t, hit)

	result, hit, err := c.GetOrCompute(ctx, Request{Query: "BRAVE", Limit: 5, Mode: "scan"}, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "BRAVE", result.Query)
	assert.Equal(t, []string{"brave"}, result.Terms)
}

func TestGetOrCompute_ErrorNotCached(t *testing.T) {
	c := New(newMemStore(), time.Minute, "b", nil)
	req := Request{Query: "brave", Limit: 5, Mode: "scan"}

	_, _, err := c.GetOrCompute(context.Background(), req, func() (*executor.SearchResult, error) {
		return nil, errors.New("boom")
	})
	assert.Error(t, err)

	_, ok := c.Get(context.Background(), req)
	assert.False(t, ok)
}

func TestInvalidate(t *testing.T) {
	store := newMemStore()
	c := New(store, time.Minute, "b", nil)
	ctx := context.Background()
	c.Set(ctx, Request{Query: "brave", Limit: 5, Mode: "scan"}, sampleResult())
	c.Set(ctx, Request{Query: "heart", Limit: 5, Mode: "scan"}, sampleResult())
	store.data["unrelated"] = "x"

	deleted, err := c.Invalidate(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.Len(t, store.data, 1)
}
