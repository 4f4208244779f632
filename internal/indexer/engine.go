// Package indexer builds the inverted index and document store from a movie
// corpus and moves them to and from a snapshot store.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/movie-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/metrics"
)

// SnapshotStore persists and restores a built index.
type SnapshotStore interface {
	Save(ctx context.Context, snap *snapshot.Snapshot) error
	Load(ctx context.Context) (*snapshot.Snapshot, error)
}

type Engine struct {
	tok     *tokenizer.Tokenizer
	index   *index.InvertedIndex
	docs    *index.DocStore
	store   SnapshotStore
	metrics *metrics.Metrics
	logger  *slog.Logger
	buildID string
	builtAt time.Time
}

// New returns an empty engine. m may be nil.
func New(tok *tokenizer.Tokenizer, store SnapshotStore, m *metrics.Metrics) *Engine {
	if m == nil {
		m = metrics.NewNop()
	}
	return &Engine{
		tok:     tok,
		index:   index.NewInvertedIndex(tok),
		docs:    index.NewDocStore(),
		store:   store,
		metrics: m,
		logger:  slog.Default().With("component", "indexer"),
	}
}

// BuildFromFile loads the dataset at path and builds from it. A malformed
// record aborts before anything is indexed.
func (e *Engine) BuildFromFile(ctx context.Context, path string) error {
	docs, err := catalog.LoadMovies(path)
	if err != nil {
		return err
	}
	return e.BuildFromCorpus(ctx, docs)
}

// BuildFromCorpus indexes title and description of every document and
// records it in the document store. The new index replaces the current one
// only when every document was added.
func (e *Engine) BuildFromCorpus(ctx context.Context, docs []catalog.Document) error {
	start := time.Now()
	ix := index.NewInvertedIndex(e.tok)
	store := index.NewDocStore()
	totalTokens := 0
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("build interrupted after %d of %d documents: %w", store.Len(), len(docs), err)
		}
		n := ix.AddDocument(doc.ID, doc.IndexText())
		store.Put(doc)
		totalTokens += n
		e.metrics.DocsIndexedTotal.Inc()
		e.logger.Debug("document indexed",
			"doc_id", doc.ID,
			"token_count", n,
		)
	}

	e.index.Restore(ix.Snapshot(), ix.DocLengths())
	e.docs.Replace(store.Documents())
	e.buildID = uuid.NewString()
	e.builtAt = time.Now().UTC()

	elapsed := time.Since(start)
	e.metrics.IndexBuildDuration.Observe(elapsed.Seconds())
	e.metrics.IndexTerms.Set(float64(e.index.Terms()))
	e.logger.Info("index built",
		"build_id", e.buildID,
		"docs", store.Len(),
		"terms", e.index.Terms(),
		"tokens", totalTokens,
		"duration", elapsed,
	)
	return nil
}

// Save writes the current index and document store to the snapshot store.
func (e *Engine) Save(ctx context.Context) error {
	snap := e.Snapshot()
	if err := e.store.Save(ctx, snap); err != nil {
		e.metrics.SnapshotSavesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("saving snapshot: %w", err)
	}
	e.metrics.SnapshotSavesTotal.WithLabelValues("ok").Inc()
	return nil
}

// Load replaces the in-memory state with the stored snapshot.
func (e *Engine) Load(ctx context.Context) error {
	snap, err := e.store.Load(ctx)
	if err != nil {
		e.metrics.SnapshotLoadsTotal.WithLabelValues(loadStatus(err)).Inc()
		return fmt.Errorf("loading snapshot: %w", err)
	}
	if want := e.tok.Fingerprint(); snap.Analyzer != want {
		e.metrics.SnapshotLoadsTotal.WithLabelValues("stale").Inc()
		return fmt.Errorf("loading snapshot: %w",
			apperrors.NotFound("build %s used tokenizer %q, current tokenizer is %q", snap.BuildID, snap.Analyzer, want))
	}
	e.index.Restore(snap.Terms, snap.DocLengths)
	e.docs.Replace(snap.Documents)
	e.buildID = snap.BuildID
	e.builtAt = snap.CreatedAt
	e.metrics.SnapshotLoadsTotal.WithLabelValues("ok").Inc()
	e.metrics.IndexTerms.Set(float64(e.index.Terms()))
	e.logger.Info("snapshot loaded",
		"build_id", snap.BuildID,
		"created_at", snap.CreatedAt,
		"terms", len(snap.Terms),
		"docs", len(snap.Documents),
	)
	return nil
}

// Snapshot captures the current state for persistence.
func (e *Engine) Snapshot() *snapshot.Snapshot {
	buildID := e.buildID
	if buildID == "" {
		buildID = uuid.NewString()
	}
	builtAt := e.builtAt
	if builtAt.IsZero() {
		builtAt = time.Now().UTC()
	}
	return &snapshot.Snapshot{
		BuildID:    buildID,
		CreatedAt:  builtAt,
		Analyzer:   e.tok.Fingerprint(),
		Terms:      e.index.Snapshot(),
		DocLengths: e.index.DocLengths(),
		Documents:  e.docs.Documents(),
	}
}

// GetDocuments returns the ids of documents indexed under term.
func (e *Engine) GetDocuments(term string) []int {
	return e.index.GetDocuments(term)
}

func (e *Engine) Index() *index.InvertedIndex {
	return e.index
}

func (e *Engine) Docs() *index.DocStore {
	return e.docs
}

func (e *Engine) BuildID() string {
	return e.buildID
}

func loadStatus(err error) string {
	if errors.Is(err, apperrors.ErrSnapshotNotFound) {
		return "not_found"
	}
	return "error"
}
