package tokenizer

import (
	"fmt"
	"log/slog"

	"github.com/kljensen/snowball/english"
	"github.com/reiver/go-porterstemmer"

	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/config"
)

// Stemmer reduces a normalised term to its root form.
type Stemmer interface {
	Stem(term string) string
	Name() string
}

// NewStemmer returns the stemmer registered under name.
func NewStemmer(name string) (Stemmer, error) {
	switch name {
	case config.StemmerPorter:
		return PorterStemmer{}, nil
	case config.StemmerSnowball:
		return SnowballStemmer{}, nil
	case config.StemmerNone, "":
		return NoopStemmer{}, nil
	default:
		return nil, fmt.Errorf("unknown stemmer %q", name)
	}
}

// PorterStemmer applies Porter's original suffix-stripping algorithm.
type PorterStemmer struct{}

func (PorterStemmer) Name() string { return config.StemmerPorter }

func (PorterStemmer) Stem(term string) (stemmed string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("recovered from panic while stemming", "term", term, "panic", r)
			stemmed = term
		}
	}()
	return porterstemmer.StemString(term)
}

// SnowballStemmer applies the English Snowball (Porter2) algorithm.
type SnowballStemmer struct{}

func (SnowballStemmer) Name() string { return config.StemmerSnowball }

func (SnowballStemmer) Stem(term string) (stemmed string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("recovered from panic while stemming", "term", term, "panic", r)
			stemmed = term
		}
	}()
	return english.Stem(term, true)
}

// NoopStemmer leaves terms untouched.
type NoopStemmer struct{}

func (NoopStemmer) Name() string { return config.StemmerNone }

func (NoopStemmer) Stem(term string) string { return term }
