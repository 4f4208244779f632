package catalog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/movie-search/pkg/errors"
)

// dataset is the top-level shape of the movies file.
type dataset struct {
	Movies []json.RawMessage `json:"movies"`
}

// LoadMovies reads the dataset file and returns its documents in file order.
func LoadMovies(path string) ([]Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Storage(fmt.Sprintf("opening dataset %s", path), err)
	}
	defer f.Close()
	docs, err := DecodeMovies(f)
	if err != nil {
		return nil, fmt.Errorf("loading dataset %s: %w", path, err)
	}
	return docs, nil
}

// DecodeMovies parses a {"movies": [...]} document. The first record lacking
// a required field aborts decoding with a *errors.MissingFieldError.
func DecodeMovies(r io.Reader) ([]Document, error) {
	var ds dataset
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return nil, fmt.Errorf("%w: decoding dataset: %v", apperrors.ErrInvalidInput, err)
	}
	if ds.Movies == nil {
		return nil, fmt.Errorf("%w: dataset has no %q collection", apperrors.ErrInvalidInput, "movies")
	}
	docs := make([]Document, 0, len(ds.Movies))
	for i, raw := range ds.Movies {
		rec, err := decodeRecord(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", apperrors.ErrInvalidInput, i, err)
		}
		doc, missing, err := rec.document()
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", apperrors.ErrInvalidInput, i, err)
		}
		if len(missing) > 0 {
			fieldErr := &apperrors.MissingFieldError{Index: i, Field: missing[0]}
			if missing[0] != FieldID {
				id := doc.ID
				fieldErr.DocID = &id
			}
			return nil, fieldErr
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// LoadStopwords reads a newline-delimited stopword file. Surrounding
// whitespace is trimmed and blank lines are skipped.
func LoadStopwords(path string) (map[string]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Storage(fmt.Sprintf("opening stopwords %s", path), err)
	}
	defer f.Close()
	return ReadStopwords(f)
}

func ReadStopwords(r io.Reader) (map[string]struct{}, error) {
	words := make(map[string]struct{})
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word == "" {
			continue
		}
		words[word] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.Storage("reading stopwords", err)
	}
	return words, nil
}
