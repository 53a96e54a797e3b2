// Package rerank implements the Reranking Stack: Cross-Encoder then
// Diversity, chained. The vendor HTTP clients this wraps live in
// internal/models/rerank; this package is the domain-shaped layer that
// knows about ScoredChunk, RRF tie-breaking, and the per-document round
// robin.
package rerank

import (
	"context"
	"sort"

	"github.com/anchoredrag/core/internal/common"
	"github.com/anchoredrag/core/internal/logger"
	"github.com/anchoredrag/core/internal/resilience"
	"github.com/anchoredrag/core/internal/types"
	"github.com/anchoredrag/core/internal/types/interfaces"
)

const maxRerankTextChars = 1000

// CrossEncoderReranker sends candidate texts and the query to an external
// reranker endpoint and reorders candidates by the returned relevance
// scores. It never returns an error: on a disabled backend, timeout, or any
// upstream failure it falls back to the input order with the pre-existing
// RRF score.
type CrossEncoderReranker struct {
	backend  interfaces.Reranker
	modelID  string
	enabled  bool
	retryCfg resilience.RetryConfig
	breaker  *resilience.CircuitBreaker
}

// NewCrossEncoderReranker builds a Cross-Encoder Reranker. A nil backend or
// enabled=false makes every call take the pass-through fallback path, which
// is the documented degraded mode, not an error.
func NewCrossEncoderReranker(backend interfaces.Reranker, modelID string, enabled bool) *CrossEncoderReranker {
	return &CrossEncoderReranker{
		backend:  backend,
		modelID:  modelID,
		enabled:  enabled,
		retryCfg: resilience.DefaultRetryConfig(),
		breaker:  resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig()),
	}
}

// Rerank implements Rerank(query, candidates, topK) -> []ScoredChunk.
func (r *CrossEncoderReranker) Rerank(ctx context.Context, query string, candidates []types.ScoredChunk, topK int) []types.ScoredChunk {
	if !r.enabled || r.backend == nil || len(candidates) == 0 {
		return fallback(candidates, topK)
	}

	texts := common.GetAttrs(func(c types.ScoredChunk) string {
		return truncate(c.Doc.Content, maxRerankTextChars)
	}, candidates...)

	results, err := resilience.Retry(ctx, r.retryCfg, func(ctx context.Context) ([]interfaces.RerankCandidate, error) {
		var out []interfaces.RerankCandidate
		callErr := r.breaker.Call(ctx, func(ctx context.Context) error {
			var err error
			out, err = r.backend.Rerank(ctx, r.modelID, query, texts)
			return err
		})
		return out, callErr
	})
	if err != nil {
		logger.Warnf(ctx, "cross-encoder rerank failed, using RRF order: %v", err)
		return fallback(candidates, topK)
	}

	type rescored struct {
		chunk    types.ScoredChunk
		rrfScore float64
	}
	pairs := make([]rescored, 0, len(results))
	for _, res := range results {
		if res.Index < 0 || res.Index >= len(candidates) {
			continue
		}
		sc := candidates[res.Index]
		rrfScore := sc.Score
		sc.Score = res.RelevanceScore
		pairs = append(pairs, rescored{chunk: sc, rrfScore: rrfScore})
	}
	if len(pairs) == 0 {
		return fallback(candidates, topK)
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].chunk.Score != pairs[j].chunk.Score {
			return pairs[i].chunk.Score > pairs[j].chunk.Score
		}
		if pairs[i].rrfScore != pairs[j].rrfScore {
			return pairs[i].rrfScore > pairs[j].rrfScore
		}
		return pairs[i].chunk.Doc.ID < pairs[j].chunk.Doc.ID
	})

	reordered := make([]types.ScoredChunk, len(pairs))
	for i, p := range pairs {
		reordered[i] = p.chunk
	}
	if len(reordered) > topK {
		reordered = reordered[:topK]
	}
	return reordered
}

func fallback(candidates []types.ScoredChunk, topK int) []types.ScoredChunk {
	if len(candidates) > topK {
		return candidates[:topK]
	}
	return candidates
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
