// Package index holds the in-memory inverted index and the document store
// that is built alongside it.
package index

import (
	"slices"
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/indexer/tokenizer"
)

// InvertedIndex maps terms to the set of documents containing them. Lookups
// of absent terms return an empty result.
type InvertedIndex struct {
	mu          sync.RWMutex
	tok         *tokenizer.Tokenizer
	index       map[string]map[int]int
	docLengths  map[int]int
	totalTokens int64
}

func NewInvertedIndex(tok *tokenizer.Tokenizer) *InvertedIndex {
	return &InvertedIndex{
		tok:        tok,
		index:      make(map[string]map[int]int),
		docLengths: make(map[int]int),
	}
}

// AddDocument tokenizes text and adds docID to the posting set of every
// distinct term. Re-adding a document with the same text changes nothing.
// It returns the number of tokens in text.
func (ix *InvertedIndex) AddDocument(docID int, text string) int {
	tokens := ix.tok.Tokenize(text)
	termFreq := make(map[string]int, len(tokens))
	for _, term := range tokens {
		termFreq[term]++
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	for term, freq := range termFreq {
		docs, exists := ix.index[term]
		if !exists {
			docs = make(map[int]int)
			ix.index[term] = docs
		}
		docs[docID] = freq
	}
	if prev, seen := ix.docLengths[docID]; seen {
		ix.totalTokens -= int64(prev)
	}
	ix.docLengths[docID] = len(tokens)
	ix.totalTokens += int64(len(tokens))
	return len(tokens)
}

// GetDocuments returns the ids of documents containing term, ascending.
func (ix *InvertedIndex) GetDocuments(term string) []int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	docs := ix.index[term]
	ids := make([]int, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Postings returns the posting list for term sorted by document id.
func (ix *InvertedIndex) Postings(term string) PostingList {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return sortedPostings(ix.index[term])
}

// Snapshot copies the index into term entries sorted by term.
func (ix *InvertedIndex) Snapshot() []TermEntry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	entries := make([]TermEntry, 0, len(ix.index))
	for term, docs := range ix.index {
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: sortedPostings(docs),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

// DocLengths copies the per-document token counts.
func (ix *InvertedIndex) DocLengths() map[int]int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make(map[int]int, len(ix.docLengths))
	for id, n := range ix.docLengths {
		out[id] = n
	}
	return out
}

// Restore replaces the index contents with previously snapshotted data.
func (ix *InvertedIndex) Restore(entries []TermEntry, docLengths map[int]int) {
	index := make(map[string]map[int]int, len(entries))
	for _, entry := range entries {
		docs := make(map[int]int, len(entry.Postings))
		for _, p := range entry.Postings {
			docs[p.DocID] = p.Frequency
		}
		index[entry.Term] = docs
	}
	lengths := make(map[int]int, len(docLengths))
	var total int64
	for id, n := range docLengths {
		lengths[id] = n
		total += int64(n)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.index = index
	ix.docLengths = lengths
	ix.totalTokens = total
}

func (ix *InvertedIndex) Terms() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.index)
}

func (ix *InvertedIndex) DocCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docLengths)
}

func (ix *InvertedIndex) DocLength(docID int) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.docLengths[docID]
}

func (ix *InvertedIndex) AvgDocLength() float64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if len(ix.docLengths) == 0 {
		return 0
	}
	return float64(ix.totalTokens) / float64(len(ix.docLengths))
}

// Tokenizer returns the tokenizer the index was built with.
func (ix *InvertedIndex) Tokenizer() *tokenizer.Tokenizer {
	return ix.tok
}

func (ix *InvertedIndex) Reset() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.index = make(map[string]map[int]int)
	ix.docLengths = make(map[int]int)
	ix.totalTokens = 0
}

func sortedPostings(docs map[int]int) PostingList {
	result := make(PostingList, 0, len(docs))
	for id, freq := range docs {
		result = append(result, Posting{DocID: id, Frequency: freq})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DocID < result[j].DocID
	})
	return result
}
