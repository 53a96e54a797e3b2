package rerank

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/anchoredrag/core/internal/types"
)

func chunk(id, docID string, score float64) types.ScoredChunk {
	return types.ScoredChunk{Doc: types.Chunk{ID: id, DocumentID: docID}, Score: score}
}

func TestDiversityRerankerRoundRobinsAcrossDocuments(t *testing.T) {
	candidates := []types.ScoredChunk{
		chunk("a1", "docA", 0.9),
		chunk("a2", "docA", 0.85),
		chunk("a3", "docA", 0.8),
		chunk("b1", "docB", 0.7),
	}

	d := NewDiversityReranker(2)
	result := d.Rerank(candidates, 3)

	require := assert.New(t)
	require.Len(result, 3)
	require.Equal("a1", result[0].Doc.ID)
	require.Equal("b1", result[1].Doc.ID)
	require.Equal("a2", result[2].Doc.ID)
}

func TestDiversityRerankerRespectsMinChunksFloor(t *testing.T) {
	candidates := []types.ScoredChunk{
		chunk("a1", "docA", 1.0),
		chunk("a2", "docA", 0.9),
		chunk("b1", "docB", 0.5),
	}

	d := NewDiversityReranker(2)
	result := d.Rerank(candidates, 2)

	assert.Len(t, result, 2)
	assert.Equal(t, "a1", result[0].Doc.ID)
	assert.Equal(t, "b1", result[1].Doc.ID)
}

func TestDiversityScoreIsUniqueDocumentsOverLen(t *testing.T) {
	result := []types.ScoredChunk{
		chunk("a1", "docA", 1),
		chunk("b1", "docB", 1),
		chunk("a2", "docA", 1),
		chunk("c1", "docC", 1),
	}
	assert.InDelta(t, 0.75, DiversityScore(result), 0.0001)
}
