package rerank

import (
	"context"

	"github.com/anchoredrag/core/internal/tracing"
	"github.com/anchoredrag/core/internal/types/interfaces"
)

// Adapter exposes a vendor Reranker (OpenAIReranker, AliyunReranker, ...)
// through interfaces.Reranker, the contract the Cross-Encoder Reranker in
// internal/rerank consumes.
type Adapter struct {
	backend Reranker
}

// NewAdapter wraps backend for use as an interfaces.Reranker.
func NewAdapter(backend Reranker) *Adapter {
	return &Adapter{backend: backend}
}

// Rerank ignores modelID: the vendor backend already carries its own model
// name/id from construction, matching how OpenAIReranker/AliyunReranker are
// already configured in this package.
func (a *Adapter) Rerank(ctx context.Context, modelID, query string, texts []string) ([]interfaces.RerankCandidate, error) {
	ctx, span := tracing.ContextWithSpan(ctx, "rerank.Adapter.Rerank")
	defer span.End()

	results, err := a.backend.Rerank(ctx, query, texts)
	span.RecordError(err)
	if err != nil {
		return nil, err
	}
	out := make([]interfaces.RerankCandidate, len(results))
	for i, r := range results {
		out[i] = interfaces.RerankCandidate{Index: r.Index, RelevanceScore: r.RelevanceScore}
	}
	return out, nil
}
