package index

// Posting records that a document contains a term. Frequency is the number
// of occurrences and only matters for scoring; membership is what the
// posting set tracks.
type Posting struct {
	DocID     int `json:"doc_id"`
	Frequency int `json:"tf"`
}

type PostingList []Posting

// DocIDs returns the ids of the list in its current order.
func (pl PostingList) DocIDs() []int {
	ids := make([]int, len(pl))
	for i, p := range pl {
		ids[i] = p.DocID
	}
	return ids
}

type TermEntry struct {
	Term     string      `json:"term"`
	Postings PostingList `json:"postings"`
}
