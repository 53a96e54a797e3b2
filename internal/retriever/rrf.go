package retriever

import (
	"sort"

	"github.com/anchoredrag/core/internal/types"
)

// ApplyAnchorBoost adds sourceAnchoringBoost additively to the score of
// every chunk whose documentId is in anchorDocIDs.
func ApplyAnchorBoost(fused []types.ScoredChunk, anchorDocIDs []string, boost float64) []types.ScoredChunk {
	if len(anchorDocIDs) == 0 || boost == 0 {
		return fused
	}
	anchors := make(map[string]struct{}, len(anchorDocIDs))
	for _, id := range anchorDocIDs {
		anchors[id] = struct{}{}
	}
	out := make([]types.ScoredChunk, len(fused))
	for i, sc := range fused {
		out[i] = sc
		if _, ok := anchors[sc.Doc.DocumentID]; ok {
			out[i].Score += boost
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
