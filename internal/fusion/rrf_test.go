package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchoredrag/core/internal/types"
)

func idOf(c types.Chunk) string { return c.ID }

func scoredChunk(id string) types.Scored[types.Chunk] {
	return types.Scored[types.Chunk]{Doc: types.Chunk{ID: id}}
}

func TestFuseRRFSumsContributionsAcrossLists(t *testing.T) {
	vector := []types.Scored[types.Chunk]{scoredChunk("c1"), scoredChunk("c2")}
	keyword := []types.Scored[types.Chunk]{scoredChunk("c2"), scoredChunk("c1")}

	fused := FuseRRF(vector, keyword, 60, idOf)

	require.Len(t, fused, 2)
	assert.Equal(t, "c1", fused[0].Doc.ID)
	assert.Equal(t, "c2", fused[1].Doc.ID)
	assert.InDelta(t, fused[0].Score, fused[1].Score, 0.0001)
}

func TestFuseRRFIsMonotonicInRank(t *testing.T) {
	vector := []types.Scored[types.Chunk]{scoredChunk("first"), scoredChunk("second"), scoredChunk("third")}

	fused := FuseRRF(vector, nil, 60, idOf)

	require.Len(t, fused, 3)
	assert.Greater(t, fused[0].Score, fused[1].Score)
	assert.Greater(t, fused[1].Score, fused[2].Score)
}

func TestFuseRRFDropsEmptyIDs(t *testing.T) {
	vector := []types.Scored[types.Chunk]{scoredChunk(""), scoredChunk("c1")}
	fused := FuseRRF(vector, nil, 60, idOf)
	assert.Len(t, fused, 1)
	assert.Equal(t, "c1", fused[0].Doc.ID)
}
