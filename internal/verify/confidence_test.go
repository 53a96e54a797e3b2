package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/anchoredrag/core/internal/types"
)

func sc(id, docID, content string, score float64) types.ScoredChunk {
	return types.ScoredChunk{Doc: types.Chunk{ID: id, DocumentID: docID, Content: content}, Score: score}
}

func TestConfidenceHighWhenEverythingAgrees(t *testing.T) {
	tokenizer := NewQueryTokenizer()
	defer tokenizer.Close()

	result := types.SearchResult{
		VectorResults:  []types.ScoredChunk{sc("c1", "d1", "golang concurrency patterns explained", 1.0/61.0)},
		KeywordResults: []types.ScoredChunk{sc("c1", "d1", "golang concurrency patterns explained", 1.0/61.0)},
		FinalResults:   []types.ScoredChunk{sc("c1", "d1", "golang concurrency patterns explained", 1.0 / 61.0)},
	}

	conf := Confidence("golang concurrency patterns", result, tokenizer, DefaultConfidenceWeights())
	assert.InDelta(t, 1.0, conf.MaxRRF, 0.001)
	assert.InDelta(t, 1.0, conf.Agreement, 0.001)
	assert.Greater(t, conf.Coverage, 0.0)
	assert.Equal(t, types.ConfidenceHigh, conf.Level)
	assert.Equal(t, types.ConfidenceLevel("low"), types.ConfidenceLow) // sanity on const
}

func TestConfidenceLowWithNoOverlap(t *testing.T) {
	tokenizer := NewQueryTokenizer()
	defer tokenizer.Close()

	result := types.SearchResult{
		VectorResults:  []types.ScoredChunk{sc("c1", "d1", "unrelated content here", 0.001)},
		KeywordResults: []types.ScoredChunk{sc("c2", "d2", "something else entirely", 0.001)},
		FinalResults:   []types.ScoredChunk{sc("c1", "d1", "unrelated content here", 0.001)},
	}

	conf := Confidence("database transaction isolation levels", result, tokenizer, DefaultConfidenceWeights())
	assert.Equal(t, 0.0, conf.Agreement)
	assert.Equal(t, 0.0, conf.Coverage)
	assert.Equal(t, types.ConfidenceLow, conf.Level)
}

func TestConfidenceEmptyResultsScoreZero(t *testing.T) {
	tokenizer := NewQueryTokenizer()
	defer tokenizer.Close()

	conf := Confidence("anything", types.SearchResult{}, tokenizer, DefaultConfidenceWeights())
	assert.Equal(t, 0.0, conf.Score)
	assert.Equal(t, types.ConfidenceLow, conf.Level)
}

func TestDiversityScoreCapsAtOne(t *testing.T) {
	final := []types.ScoredChunk{
		sc("c1", "d1", "a", 1), sc("c2", "d2", "b", 1), sc("c3", "d3", "c", 1),
		sc("c4", "d4", "d", 1), sc("c5", "d5", "e", 1), sc("c6", "d6", "f", 1),
	}
	assert.Equal(t, 1.0, diversityScore(final))
}

func TestJaccardTop10LimitsToTenPerSide(t *testing.T) {
	var vector, keyword []types.ScoredChunk
	for i := 0; i < 15; i++ {
		id := string(rune('a' + i))
		vector = append(vector, sc(id, "d", "x", 1))
		keyword = append(keyword, sc(id, "d", "x", 1))
	}
	assert.Equal(t, 1.0, jaccardTop10(vector, keyword))
}
