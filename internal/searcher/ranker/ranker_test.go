package ranker

import (
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/indexer/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRank_HigherFrequencyScoresHigher(t *testing.T) {
	postings := map[string]index.PostingList{
		"heist": {{DocID: 1, Frequency: 1}, {DocID: 2, Frequency: 3}},
	}
	lengths := map[int]int{1: 5, 2: 5, 3: 5}
	got := Rank(postings, RankParams{TotalDocs: 3, AvgDocLength: 5},
		func(id int) DocInfo { return DocInfo{DocLength: lengths[id]} }, 0)

	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].DocID)
	assert.Equal(t, 1, got[1].DocID)
	assert.Greater(t, got[0].Score, got[1].Score)
}

func TestRank_RareTermsWeighMore(t *testing.T) {
	postings := map[string]index.PostingList{
		"common": {{DocID: 1, Frequency: 1}, {DocID: 2, Frequency: 1}, {DocID: 3, Frequency: 1}},
		"rare":   {{DocID: 3, Frequency: 1}},
	}
	got := Rank(postings, RankParams{TotalDocs: 3, AvgDocLength: 4},
		func(int) DocInfo { return DocInfo{DocLength: 4} }, 0)

	require.Len(t, got, 3)
	assert.Equal(t, 3, got[0].DocID)
}

func TestRank_TiesBrokenByIDAndLimited(t *testing.T) {
	postings := map[string]index.PostingList{
		"same": {{DocID: 9, Frequency: 1}, {DocID: 4, Frequency: 1}, {DocID: 6, Frequency: 1}},
	}
	got := Rank(postings, RankParams{TotalDocs: 10, AvgDocLength: 2},
		func(int) DocInfo { return DocInfo{DocLength: 2} }, 2)

	require.Len(t, got, 2)
	assert.Equal(t, 4, got[0].DocID)
	assert.Equal(t, 6, got[1].DocID)
}

func TestRank_Empty(t *testing.T) {
	got := Rank(nil, RankParams{}, func(int) DocInfo { return DocInfo{} }, 5)
	assert.Empty(t, got)
}

func TestComputeIDF_AlwaysPositive(t *testing.T) {
	assert.Greater(t, computeIDF(3, 3), 0.0)
	assert.Greater(t, computeIDF(100, 1), computeIDF(100, 50))
}

func BenchmarkRank(b *testing.B) {
	for _, numDocs := range []int{100, 1000, 10000} {
		b.Run(fmt.Sprintf("docs_%d", numDocs), func(b *testing.B) {
			pl := make(index.PostingList, numDocs)
			for i := range pl {
				pl[i] = index.Posting{DocID: i, Frequency: (i % 10) + 1}
			}
			postings := map[string]index.PostingList{"brave": pl}
			params := RankParams{TotalDocs: int64(numDocs * 2), AvgDocLength: 12}
			getDocInfo := func(docID int) DocInfo {
				return DocInfo{DocLength: 8 + docID%10}
			}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				Rank(postings, params, getDocInfo, 10)
			}
		})
	}
}
