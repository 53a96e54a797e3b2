package rerank

import (
	"sort"

	"github.com/anchoredrag/core/internal/types"
)

// DefaultMinChunksPerDocument is the reference floor for round-robin diversification.
const DefaultMinChunksPerDocument = 2

// DiversityReranker groups candidates by document and round-robins across
// document groups so no single document can monopolize the result set. It
// carries each chunk's existing relevance score through unchanged, since the
// Conversation Core needs finalResults[0].relevanceScore for retrieval
// confidence.
type DiversityReranker struct {
	minChunksPerDocument int
}

// NewDiversityReranker builds a Diversity Reranker with the given floor.
func NewDiversityReranker(minChunksPerDocument int) *DiversityReranker {
	if minChunksPerDocument <= 0 {
		minChunksPerDocument = DefaultMinChunksPerDocument
	}
	return &DiversityReranker{minChunksPerDocument: minChunksPerDocument}
}

type docGroup struct {
	documentID string
	chunks     []types.ScoredChunk // sorted by relevanceScore descending
	next       int
	taken      int
}

// Rerank implements Rerank(candidates_sorted_by_score, topK) -> []Chunk,
// generalized to keep the ScoredChunk wrapper.
func (d *DiversityReranker) Rerank(candidates []types.ScoredChunk, topK int) []types.ScoredChunk {
	if len(candidates) == 0 || topK <= 0 {
		return nil
	}

	order := make([]string, 0)
	groups := make(map[string]*docGroup)
	for _, c := range candidates {
		id := c.Doc.DocumentID
		g, ok := groups[id]
		if !ok {
			g = &docGroup{documentID: id}
			groups[id] = g
			order = append(order, id)
		}
		g.chunks = append(g.chunks, c)
	}
	for _, id := range order {
		g := groups[id]
		sort.SliceStable(g.chunks, func(i, j int) bool { return g.chunks[i].Score > g.chunks[j].Score })
	}

	active := make([]string, len(order))
	copy(active, order)

	result := make([]types.ScoredChunk, 0, topK)
	maxRounds := len(candidates)
	for round := 0; round < maxRounds && len(result) < topK && len(active) > 0; round++ {
		var stillActive []string
		for _, id := range active {
			if len(result) == topK {
				break
			}
			g := groups[id]
			if g.next < len(g.chunks) {
				result = append(result, g.chunks[g.next])
				g.next++
				g.taken++
			}
			if g.next < len(g.chunks) || g.taken < d.minChunksPerDocument {
				stillActive = append(stillActive, id)
			}
		}
		active = stillActive
	}
	return result
}
