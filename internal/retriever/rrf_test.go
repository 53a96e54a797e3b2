package retriever

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/anchoredrag/core/internal/types"
)

func TestApplyAnchorBoostIsAdditiveAndResorts(t *testing.T) {
	fused := []types.ScoredChunk{
		{Doc: types.Chunk{ID: "c1", DocumentID: "docA"}, Score: 0.5},
		{Doc: types.Chunk{ID: "c2", DocumentID: "docB"}, Score: 0.4},
	}

	boosted := ApplyAnchorBoost(fused, []string{"docB"}, 0.3)

	require := assert.New(t)
	require.Equal("c2", boosted[0].Doc.ID)
	require.InDelta(0.7, boosted[0].Score, 0.0001)
	require.Equal("c1", boosted[1].Doc.ID)
	require.InDelta(0.5, boosted[1].Score, 0.0001)
}

func TestApplyAnchorBoostNoopWithoutAnchors(t *testing.T) {
	fused := []types.ScoredChunk{{Doc: types.Chunk{ID: "c1", DocumentID: "docA"}, Score: 0.5}}
	boosted := ApplyAnchorBoost(fused, nil, 0.3)
	assert.Equal(t, fused, boosted)
}
