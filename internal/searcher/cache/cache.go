// Package cache memoises search results in Redis. Keys are derived from the
// normalised query, the limit, the mode and the index build, so a rebuilt
// index never serves results computed against the previous one.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/movie-search/pkg/redis"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "moviesearch:search:"

// Store is the subset of the Redis client the cache uses.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	store   Store
	ttl     time.Duration
	buildID atomic.Pointer[string]
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func New(store Store, ttl time.Duration, buildID string, m *metrics.Metrics) *QueryCache {
	if m == nil {
		m = metrics.NewNop()
	}
	c := &QueryCache{
		store:   store,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
	c.SetBuildID(buildID)
	return c
}

// SetBuildID scopes subsequent keys to a new index build.
func (c *QueryCache) SetBuildID(buildID string) {
	c.buildID.Store(&buildID)
}

type Request struct {
	Query string
	Limit int
	Mode  string
}

func (c *QueryCache) Get(ctx context.Context, req Request) (*executor.SearchResult, bool) {
	key := c.buildKey(req)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	c.metrics.CacheHitsTotal.Inc()
	c.logger.Debug("cache hit", "query", req.Query, "key", key)
	result.Query = req.Query
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, req Request, result *executor.SearchResult) {
	key := c.buildKey(req)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for req or computes and stores it.
// Concurrent misses for the same key share one computation.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	req Request,
	computeFn func() (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, req); ok {
		return result, true, nil
	}
	val, err, _ := c.group.Do(c.buildKey(req), func() (any, error) {
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, req, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	// A shared flight may have been started by a differently spelled query.
	result := *val.(*executor.SearchResult)
	result.Query = req.Query
	return &result, false, nil
}

func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	c.metrics.CacheMissesTotal.Inc()
}

func (c *QueryCache) buildKey(req Request) string {
	raw := fmt.Sprintf("%s|limit=%d|mode=%s|build=%s", normalizeQuery(req.Query), req.Limit, req.Mode, *c.buildID.Load())
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

// normalizeQuery lower-cases the query and drops repeated words, keeping
// first-occurrence order. Queries with equal keys tokenize to the same terms
// in the same order.
func normalizeQuery(query string) string {
	words := strings.Fields(strings.ToLower(query))
	seen := make(map[string]struct{}, len(words))
	kept := words[:0]
	for _, w := range words {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}
