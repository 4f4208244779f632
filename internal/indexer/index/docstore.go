package index

import (
	"sync"

	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/catalog"
)

// DocStore maps document ids to records and remembers the order in which
// ids were first stored. Storing an existing id replaces the record in place.
type DocStore struct {
	mu    sync.RWMutex
	docs  map[int]catalog.Document
	order []int
}

func NewDocStore() *DocStore {
	return &DocStore{
		docs: make(map[int]catalog.Document),
	}
}

func (s *DocStore) Put(doc catalog.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[doc.ID]; !exists {
		s.order = append(s.order, doc.ID)
	}
	s.docs[doc.ID] = doc
}

func (s *DocStore) Get(id int) (catalog.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	return doc, ok
}

func (s *DocStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Documents returns every record in first-insertion order.
func (s *DocStore) Documents() []catalog.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]catalog.Document, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.docs[id])
	}
	return out
}

// Replace swaps the store contents for docs, keeping their order.
func (s *DocStore) Replace(docs []catalog.Document) {
	fresh := NewDocStore()
	for _, doc := range docs {
		fresh.Put(doc)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = fresh.docs
	s.order = fresh.order
}
