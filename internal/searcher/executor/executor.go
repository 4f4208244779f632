// Package executor runs keyword queries against the document store.
//
// The default scan mode walks documents in load order and keeps those whose
// title has a token containing any query token as a substring, stopping at
// the limit. The description is indexed but, unless configured otherwise,
// not consulted when matching. The bm25 mode instead scores the union of the
// query terms' posting sets from the inverted index.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/movie-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/metrics"
)

// DocSource supplies documents in load order and by id.
type DocSource interface {
	Documents() []catalog.Document
	Get(id int) (catalog.Document, bool)
}

// PostingSource is the part of the inverted index bm25 mode needs.
type PostingSource interface {
	Postings(term string) index.PostingList
	DocCount() int
	DocLength(docID int) int
	AvgDocLength() float64
}

type Options struct {
	Mode        string
	MatchFields string
}

type Hit struct {
	Document catalog.Document `json:"document"`
	Score    float64          `json:"score,omitempty"`
}

type SearchResult struct {
	Query   string   `json:"query"`
	Terms   []string `json:"terms"`
	Mode    string   `json:"mode"`
	Results []Hit    `json:"results"`
}

// Titles returns the titles of the hits in result order.
func (r *SearchResult) Titles() []string {
	titles := make([]string, len(r.Results))
	for i, hit := range r.Results {
		titles[i] = hit.Document.Title
	}
	return titles
}

type Executor struct {
	tok     *tokenizer.Tokenizer
	docs    DocSource
	index   PostingSource
	opts    Options
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New builds an executor. idx may be nil when only scan mode is used; m may
// be nil.
func New(tok *tokenizer.Tokenizer, docs DocSource, idx PostingSource, opts Options, m *metrics.Metrics) *Executor {
	if opts.Mode == "" {
		opts.Mode = config.ModeScan
	}
	if opts.MatchFields == "" {
		opts.MatchFields = config.MatchTitle
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &Executor{
		tok:     tok,
		docs:    docs,
		index:   idx,
		opts:    opts,
		metrics: m,
		logger:  slog.Default().With("component", "query-executor"),
	}
}

// Mode reports the configured default mode.
func (e *Executor) Mode() string {
	return e.opts.Mode
}

// Search runs query in the configured mode and returns at most limit hits.
func (e *Executor) Search(ctx context.Context, query string, limit int) (*SearchResult, error) {
	return e.SearchMode(ctx, query, limit, e.opts.Mode)
}

// SearchMode is Search with an explicit mode.
func (e *Executor) SearchMode(ctx context.Context, query string, limit int, mode string) (*SearchResult, error) {
	start := time.Now()
	result := &SearchResult{
		Query:   query,
		Terms:   []string{},
		Mode:    mode,
		Results: []Hit{},
	}
	if limit <= 0 {
		return result, nil
	}
	result.Terms = e.tok.Tokenize(query)
	if len(result.Terms) == 0 {
		e.metrics.SearchQueriesTotal.WithLabelValues("empty_query").Inc()
		return result, nil
	}

	var err error
	switch mode {
	case config.ModeScan:
		result.Results, err = e.scan(ctx, result.Terms, limit)
	case config.ModeBM25:
		result.Results, err = e.rank(result.Terms, limit)
	default:
		err = apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "unknown search mode %q", mode)
	}
	if err != nil {
		e.metrics.SearchQueriesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	e.metrics.SearchLatency.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	e.metrics.SearchResultsCount.Observe(float64(len(result.Results)))
	if len(result.Results) == 0 {
		e.metrics.SearchQueriesTotal.WithLabelValues("zero_result").Inc()
	} else {
		e.metrics.SearchQueriesTotal.WithLabelValues("hit").Inc()
	}
	e.logger.Debug("query executed",
		"query", query,
		"terms", result.Terms,
		"mode", mode,
		"results", len(result.Results),
	)
	return result, nil
}

func (e *Executor) scan(ctx context.Context, queryTokens []string, limit int) ([]Hit, error) {
	hits := make([]Hit, 0, limit)
	for i, doc := range e.docs.Documents() {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if !hasMatchingTokens(queryTokens, e.tok.Tokenize(e.matchText(doc))) {
			continue
		}
		hits = append(hits, Hit{Document: doc})
		if len(hits) == limit {
			break
		}
	}
	return hits, nil
}

func (e *Executor) rank(queryTokens []string, limit int) ([]Hit, error) {
	if e.index == nil {
		return nil, fmt.Errorf("%s mode needs an inverted index", config.ModeBM25)
	}
	postingsPerTerm := make(map[string]index.PostingList, len(queryTokens))
	for _, term := range queryTokens {
		if postings := e.index.Postings(term); len(postings) > 0 {
			postingsPerTerm[term] = postings
		}
	}
	params := ranker.RankParams{
		TotalDocs:    int64(e.index.DocCount()),
		AvgDocLength: e.index.AvgDocLength(),
	}
	getDocInfo := func(docID int) ranker.DocInfo {
		return ranker.DocInfo{DocLength: e.index.DocLength(docID)}
	}
	scored := ranker.Rank(postingsPerTerm, params, getDocInfo, limit)

	hits := make([]Hit, 0, len(scored))
	for _, s := range scored {
		doc, ok := e.docs.Get(s.DocID)
		if !ok {
			e.logger.Warn("indexed document missing from store", "doc_id", s.DocID)
			continue
		}
		hits = append(hits, Hit{Document: doc, Score: s.Score})
	}
	return hits, nil
}

func (e *Executor) matchText(doc catalog.Document) string {
	if e.opts.MatchFields == config.MatchTitleDescription {
		return doc.IndexText()
	}
	return doc.Title
}

// hasMatchingTokens reports whether any query token is a substring of any
// document token. No query tokens never match.
func hasMatchingTokens(queryTokens, docTokens []string) bool {
	for _, q := range queryTokens {
		for _, d := range docTokens {
			if strings.Contains(d, q) {
				return true
			}
		}
	}
	return false
}
