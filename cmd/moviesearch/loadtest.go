package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/urfave/cli.v1"

	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/config"
)

// maxTitleQueries caps how many dataset titles are replayed as queries.
const maxTitleQueries = 50

var loadtestCommand = cli.Command{
	Name:  "loadtest",
	Usage: "Replay queries against a running search API and report latency",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "base URL of the search API"},
		cli.IntFlag{Name: "concurrency", Value: 10, Usage: "number of concurrent workers"},
		cli.DurationFlag{Name: "duration", Value: 30 * time.Second, Usage: "test duration"},
		cli.IntFlag{Name: "limit", Value: 5, Usage: "limit sent with each query"},
		cli.StringSliceFlag{Name: "query, q", Usage: "query to replay (repeatable); defaults to dataset titles"},
	},
	Action: runLoadtest,
}

type loadStats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64
	mu            sync.Mutex
	latencies     []time.Duration
	statusCodes   map[int]int64
}

func newLoadStats() *loadStats {
	return &loadStats{
		latencies:   make([]time.Duration, 0, 4096),
		statusCodes: make(map[int]int64),
	}
}

func (s *loadStats) record(d time.Duration, statusCode int, err error) {
	s.totalRequests.Add(1)
	if err != nil {
		s.errorCount.Add(1)
		return
	}
	if statusCode >= 200 && statusCode < 300 {
		s.successCount.Add(1)
	} else {
		s.errorCount.Add(1)
	}
	s.mu.Lock()
	s.latencies = append(s.latencies, d)
	s.statusCodes[statusCode]++
	s.mu.Unlock()
}

func runLoadtest(c *cli.Context) error {
	queries := c.StringSlice("query")
	if len(queries) == 0 {
		cfg, err := config.Load(c.GlobalString("config"))
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if queries, err = titleQueries(cfg.Dataset.MoviesPath); err != nil {
			return err
		}
	}
	concurrency := max(c.Int("concurrency"), 1)
	duration := c.Duration("duration")

	w := c.App.Writer
	fmt.Fprintln(w, "=== Movie Search Load Test ===")
	fmt.Fprintf(w, "Target:      %s\n", c.String("url"))
	fmt.Fprintf(w, "Concurrency: %d\n", concurrency)
	fmt.Fprintf(w, "Duration:    %s\n", duration)
	fmt.Fprintf(w, "Queries:     %d unique\n\n", len(queries))

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()
	stats := replay(ctx, c.String("url"), queries, c.Int("limit"), concurrency)

	printLoadReport(w, stats, duration)
	if stats.totalRequests.Load() == 0 {
		return errors.New("no requests completed, is the service running?")
	}
	return nil
}

func titleQueries(path string) ([]string, error) {
	docs, err := catalog.LoadMovies(path)
	if err != nil {
		return nil, err
	}
	queries := make([]string, 0, min(len(docs), maxTitleQueries))
	for _, doc := range docs {
		if len(queries) == maxTitleQueries {
			break
		}
		if doc.Title != "" {
			queries = append(queries, doc.Title)
		}
	}
	if len(queries) == 0 {
		return nil, errors.New("dataset has no titles to replay")
	}
	return queries, nil
}

func replay(ctx context.Context, baseURL string, queries []string, limit, concurrency int) *loadStats {
	stats := newLoadStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        concurrency * 2,
			MaxIdleConnsPerHost: concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	defer client.CloseIdleConnections()

	var g errgroup.Group
	for worker := range concurrency {
		g.Go(func() error {
			for i := worker; ctx.Err() == nil; i++ {
				searchURL := fmt.Sprintf("%s/api/v1/search?q=%s&limit=%d",
					baseURL, url.QueryEscape(queries[i%len(queries)]), limit)
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
				if err != nil {
					return err
				}
				start := time.Now()
				resp, err := client.Do(req)
				elapsed := time.Since(start)
				if err != nil {
					if ctx.Err() == nil {
						stats.record(elapsed, 0, err)
					}
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats.record(elapsed, resp.StatusCode, nil)
			}
			return nil
		})
	}
	g.Wait()
	return stats
}

func printLoadReport(w io.Writer, stats *loadStats, duration time.Duration) {
	total := stats.totalRequests.Load()
	failed := stats.errorCount.Load()

	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", total)
	fmt.Fprintf(w, "Successful:      %d\n", stats.successCount.Load())
	fmt.Fprintf(w, "Errors:          %d\n", failed)
	if total > 0 {
		fmt.Fprintf(w, "Error Rate:      %.2f%%\n", float64(failed)/float64(total)*100)
		fmt.Fprintf(w, "Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
	}

	stats.mu.Lock()
	latencies := slices.Clone(stats.latencies)
	codes := make([]int, 0, len(stats.statusCodes))
	for code := range stats.statusCodes {
		codes = append(codes, code)
	}
	counts := make(map[int]int64, len(stats.statusCodes))
	for code, n := range stats.statusCodes {
		counts[code] = n
	}
	stats.mu.Unlock()

	if len(latencies) > 0 {
		slices.Sort(latencies)
		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))
		var sumSquared float64
		for _, l := range latencies {
			diff := float64(l - avg)
			sumSquared += diff * diff
		}

		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Latency ===")
		fmt.Fprintf(w, "Min:    %s\n", latencies[0])
		fmt.Fprintf(w, "Avg:    %s\n", avg)
		fmt.Fprintf(w, "P50:    %s\n", latencyPercentile(latencies, 50))
		fmt.Fprintf(w, "P95:    %s\n", latencyPercentile(latencies, 95))
		fmt.Fprintf(w, "P99:    %s\n", latencyPercentile(latencies, 99))
		fmt.Fprintf(w, "Max:    %s\n", latencies[len(latencies)-1])
		fmt.Fprintf(w, "StdDev: %s\n", time.Duration(math.Sqrt(sumSquared/float64(len(latencies)))))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Status Codes ===")
	slices.Sort(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %d: %d\n", code, counts[code])
	}
}

func latencyPercentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[max(0, min(idx, len(sorted)-1))]
}
