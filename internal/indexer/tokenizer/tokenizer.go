// Package tokenizer turns free text into index terms. Text is normalised
// (NFC, lower-case, ASCII punctuation removed), split on whitespace,
// filtered against a stopword set and reduced by a configurable stemmer.
//
// A Tokenizer is an explicit value built once from Options and shared by the
// build and search paths; index and query terms only line up when both use
// the same stopwords and stemmer.
package tokenizer

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/config"
)

// Options configures a Tokenizer. A nil Stemmer disables stemming.
type Options struct {
	Stopwords map[string]struct{}
	Stemmer   Stemmer
}

type Tokenizer struct {
	stopwords map[string]struct{}
	stemmer   Stemmer
}

func New(opts Options) *Tokenizer {
	stemmer := opts.Stemmer
	if stemmer == nil {
		stemmer = NoopStemmer{}
	}
	stopwords := make(map[string]struct{}, len(opts.Stopwords))
	for w := range opts.Stopwords {
		stopwords[w] = struct{}{}
	}
	return &Tokenizer{
		stopwords: stopwords,
		stemmer:   stemmer,
	}
}

// FromConfig builds a Tokenizer from the tokenizer and dataset sections,
// reading the stopword file unless stopwords are disabled.
func FromConfig(tc config.TokenizerConfig, dc config.DatasetConfig) (*Tokenizer, error) {
	stemmer, err := NewStemmer(tc.Stemmer)
	if err != nil {
		return nil, err
	}
	var stopwords map[string]struct{}
	if !tc.DisableStopwords {
		stopwords, err = catalog.LoadStopwords(dc.StopwordsPath)
		if err != nil {
			return nil, err
		}
	}
	return New(Options{Stopwords: stopwords, Stemmer: stemmer}), nil
}

// Tokenize returns the terms of text in order, duplicates included.
func (t *Tokenizer) Tokenize(text string) []string {
	words := strings.Fields(Normalize(text))
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if word == "" {
			continue
		}
		if _, isStop := t.stopwords[word]; isStop {
			continue
		}
		stemmed := t.stemmer.Stem(word)
		if stemmed == "" {
			continue
		}
		tokens = append(tokens, stemmed)
	}
	return tokens
}

// Terms returns the distinct terms of text in first-occurrence order.
func (t *Tokenizer) Terms(text string) []string {
	tokens := t.Tokenize(text)
	seen := make(map[string]struct{}, len(tokens))
	terms := tokens[:0]
	for _, tok := range tokens {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		terms = append(terms, tok)
	}
	return terms
}

// Stemmer reports the stemmer in use.
func (t *Tokenizer) Stemmer() Stemmer {
	return t.stemmer
}

// IsStopword reports whether word, already normalised, is filtered out.
func (t *Tokenizer) IsStopword(word string) bool {
	_, ok := t.stopwords[word]
	return ok
}

// Fingerprint identifies the stemmer and stopword set. Two tokenizers with
// equal fingerprints produce the same terms for the same text.
func (t *Tokenizer) Fingerprint() string {
	words := make([]string, 0, len(t.stopwords))
	for w := range t.stopwords {
		words = append(words, w)
	}
	slices.Sort(words)
	sum := sha256.Sum256([]byte(strings.Join(words, "\n")))
	return t.stemmer.Name() + ":" + hex.EncodeToString(sum[:8])
}
