// Package catalog defines the movie Document record and loads the dataset and
// stopword list the indexer consumes.
package catalog

import (
	"encoding/json"
	"fmt"
)

// Required dataset fields.
const (
	FieldID          = "id"
	FieldTitle       = "title"
	FieldDescription = "description"
)

// Document is a single movie record. Fields other than id, title and
// description are carried verbatim in Extra.
type Document struct {
	ID          int
	Title       string
	Description string
	Extra       map[string]json.RawMessage
}

// IndexText is the text the inverted index is built from.
func (d Document) IndexText() string {
	return d.Title + " " + d.Description
}

func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Extra)+3)
	for k, v := range d.Extra {
		out[k] = v
	}
	out[FieldID] = d.ID
	out[FieldTitle] = d.Title
	out[FieldDescription] = d.Description
	return json.Marshal(out)
}

// UnmarshalJSON decodes a record leniently: missing required fields are left
// zero and reported by DecodeMovies.
func (d *Document) UnmarshalJSON(data []byte) error {
	rec, err := decodeRecord(data)
	if err != nil {
		return err
	}
	doc, _, err := rec.document()
	if err != nil {
		return err
	}
	*d = doc
	return nil
}

// record is the raw form of a dataset entry before validation.
type record map[string]json.RawMessage

func decodeRecord(data []byte) (record, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding movie record: %w", err)
	}
	return rec, nil
}

// document converts the record and reports which required fields were
// absent or null.
func (r record) document() (Document, []string, error) {
	var (
		doc     Document
		missing []string
	)
	doc.Extra = make(map[string]json.RawMessage)
	for k, v := range r {
		switch k {
		case FieldID, FieldTitle, FieldDescription:
		default:
			doc.Extra[k] = v
		}
	}
	if len(doc.Extra) == 0 {
		doc.Extra = nil
	}

	if raw, ok := r[FieldID]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &doc.ID); err != nil {
			return doc, nil, fmt.Errorf("field %q: %w", FieldID, err)
		}
	} else {
		missing = append(missing, FieldID)
	}
	if raw, ok := r[FieldTitle]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &doc.Title); err != nil {
			return doc, nil, fmt.Errorf("field %q: %w", FieldTitle, err)
		}
	} else {
		missing = append(missing, FieldTitle)
	}
	if raw, ok := r[FieldDescription]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &doc.Description); err != nil {
			return doc, nil, fmt.Errorf("field %q: %w", FieldDescription, err)
		}
	} else {
		missing = append(missing, FieldDescription)
	}
	return doc, missing, nil
}

func isNull(raw json.RawMessage) bool {
	return string(raw) == "null"
}
