package rerank

import (
	"context"

	"github.com/anchoredrag/core/internal/types"
)

// Stack chains Cross-Encoder then Diversity, matching the Reranking Stack
// contract the Hybrid Retriever consumes.
type Stack struct {
	crossEncoder *CrossEncoderReranker
	diversity    *DiversityReranker
}

// NewStack builds the combined reranking stack.
func NewStack(crossEncoder *CrossEncoderReranker, diversity *DiversityReranker) *Stack {
	return &Stack{crossEncoder: crossEncoder, diversity: diversity}
}

// Rerank satisfies retriever.Reranker. The cross-encoder pass never errors
// (it self-degrades to pass-through), so this never returns a non-nil error;
// the signature keeps one so the caller can treat any reranker uniformly.
func (s *Stack) Rerank(ctx context.Context, query string, candidates []types.ScoredChunk, topK int) ([]types.ScoredChunk, error) {
	scored := s.crossEncoder.Rerank(ctx, query, candidates, len(candidates))
	diversified := s.diversity.Rerank(scored, topK)
	return diversified, nil
}

// DiversityScore reports unique_documents(result)/len(result), the gauge
// observable diversity metric.
func DiversityScore(result []types.ScoredChunk) float64 {
	if len(result) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(result))
	for _, sc := range result {
		seen[sc.Doc.DocumentID] = struct{}{}
	}
	return float64(len(seen)) / float64(len(result))
}
