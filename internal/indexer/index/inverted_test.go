package index

import (
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/indexer/tokenizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex() *InvertedIndex {
	return NewInvertedIndex(tokenizer.New(tokenizer.Options{
		Stopwords: map[string]struct{}{"a": {}, "the": {}},
		Stemmer:   tokenizer.PorterStemmer{},
	}))
}

func TestInvertedIndex_AddAndGet(t *testing.T) {
	ix := newTestIndex()
	ix.AddDocument(1, "Brave A princess named Merida")
	ix.AddDocument(2, "Braveheart Scottish warrior")

	assert.Equal(t, []int{1}, ix.GetDocuments("brave"))
	assert.Equal(t, []int{1}, ix.GetDocuments("merida"))
	assert.Equal(t, []int{2}, ix.GetDocuments("braveheart"))
	assert.Equal(t, 2, ix.DocCount())
}

func TestInvertedIndex_UnknownTermIsEmpty(t *testing.T) {
	ix := newTestIndex()
	ix.AddDocument(1, "Brave")

	ids := ix.GetDocuments("xyzzy")
	assert.NotNil(t, ids)
	assert.Empty(t, ids)
	assert.Empty(t, ix.Postings("xyzzy"))
	assert.Empty(t, ix.GetDocuments("a"), "stopwords are never indexed")
	assert.Equal(t, 1, ix.Terms(), "lookups must not create entries")
}

func TestInvertedIndex_Idempotent(t *testing.T) {
	once := newTestIndex()
	once.AddDocument(3, "Toy Story toy story")

	twice := newTestIndex()
	twice.AddDocument(3, "Toy Story toy story")
	twice.AddDocument(3, "Toy Story toy story")

	assert.Equal(t, once.Snapshot(), twice.Snapshot())
	assert.Equal(t, once.DocLengths(), twice.DocLengths())
	assert.Equal(t, once.AvgDocLength(), twice.AvgDocLength())
}

func TestInvertedIndex_SortedRegardlessOfInsertionOrder(t *testing.T) {
	ix := newTestIndex()
	for _, id := range []int{42, 7, 19, 3, 100, 1} {
		ix.AddDocument(id, "shared term")
	}
	assert.Equal(t, []int{1, 3, 7, 19, 42, 100}, ix.GetDocuments("share"))
	assert.Equal(t, []int{1, 3, 7, 19, 42, 100}, ix.Postings("term").DocIDs())
}

func TestInvertedIndex_FrequenciesAndLengths(t *testing.T) {
	ix := newTestIndex()
	ix.AddDocument(1, "war war peace")
	ix.AddDocument(2, "peace")

	postings := ix.Postings("war")
	require.Len(t, postings, 1)
	assert.Equal(t, Posting{DocID: 1, Frequency: 2}, postings[0])
	assert.Equal(t, 3, ix.DocLength(1))
	assert.Equal(t, 1, ix.DocLength(2))
	assert.InDelta(t, 2.0, ix.AvgDocLength(), 1e-9)
}

func TestInvertedIndex_SnapshotRestore(t *testing.T) {
	ix := newTestIndex()
	ix.AddDocument(1, "Brave A princess named Merida")
	ix.AddDocument(2, "Braveheart Scottish warrior")

	entries := ix.Snapshot()
	for i := 1; i < len(entries); i++ {
		assert.Less(t, entries[i-1].Term, entries[i].Term)
	}

	restored := newTestIndex()
	restored.Restore(entries, ix.DocLengths())
	assert.Equal(t, entries, restored.Snapshot())
	assert.Equal(t, ix.GetDocuments("merida"), restored.GetDocuments("merida"))
	assert.Equal(t, ix.AvgDocLength(), restored.AvgDocLength())

	restored.Reset()
	assert.Zero(t, restored.Terms())
	assert.Zero(t, restored.DocCount())
}

func TestDocStore_PreservesFirstInsertionOrder(t *testing.T) {
	store := NewDocStore()
	store.Put(catalog.Document{ID: 9, Title: "Nine"})
	store.Put(catalog.Document{ID: 2, Title: "Two"})
	store.Put(catalog.Document{ID: 9, Title: "Nine again"})

	assert.Equal(t, 2, store.Len())
	docs := store.Documents()
	require.Len(t, docs, 2)
	assert.Equal(t, "Nine again", docs[0].Title)
	assert.Equal(t, 2, docs[1].ID)

	doc, ok := store.Get(2)
	assert.True(t, ok)
	assert.Equal(t, "Two", doc.Title)
	_, ok = store.Get(3)
	assert.False(t, ok)

	store.Replace([]catalog.Document{{ID: 5}, {ID: 4}})
	assert.Equal(t, []catalog.Document{{ID: 5}, {ID: 4}}, store.Documents())
}

func BenchmarkInvertedIndexAdd(b *testing.B) {
	ix := newTestIndex()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ix.AddDocument(i, "benchmark title this is a benchmark document with several terms for testing the indexing performance")
	}
}

func BenchmarkInvertedIndexGetDocuments(b *testing.B) {
	ix := newTestIndex()
	for i := 0; i < 10000; i++ {
		ix.AddDocument(i, fmt.Sprintf("movie %d about a heist gone wrong", i))
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ix.GetDocuments("heist")
	}
}
