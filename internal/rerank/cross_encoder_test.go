package rerank

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchoredrag/core/internal/types"
	"github.com/anchoredrag/core/internal/types/interfaces"
)

type fakeRerankBackend struct {
	results []interfaces.RerankCandidate
	err     error
}

func (f *fakeRerankBackend) Rerank(ctx context.Context, modelID, query string, texts []string) ([]interfaces.RerankCandidate, error) {
	return f.results, f.err
}

func TestCrossEncoderRerankerReordersByBackendScore(t *testing.T) {
	backend := &fakeRerankBackend{results: []interfaces.RerankCandidate{
		{Index: 1, RelevanceScore: 0.95},
		{Index: 0, RelevanceScore: 0.2},
	}}
	r := NewCrossEncoderReranker(backend, "model-1", true)

	candidates := []types.ScoredChunk{chunk("a", "docA", 0.1), chunk("b", "docB", 0.05)}
	out := r.Rerank(context.Background(), "query", candidates, 2)

	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].Doc.ID)
	assert.Equal(t, "a", out[1].Doc.ID)
}

func TestCrossEncoderRerankerFallsBackOnError(t *testing.T) {
	backend := &fakeRerankBackend{err: errors.New("upstream unavailable")}
	r := NewCrossEncoderReranker(backend, "model-1", true)
	r.retryCfg.MaxAttempts = 1

	candidates := []types.ScoredChunk{chunk("a", "docA", 0.5)}
	out := r.Rerank(context.Background(), "query", candidates, 1)

	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].Doc.ID)
}

func TestCrossEncoderRerankerDisabledPassesThrough(t *testing.T) {
	r := NewCrossEncoderReranker(nil, "", false)
	candidates := []types.ScoredChunk{chunk("a", "docA", 0.5), chunk("b", "docB", 0.4)}
	out := r.Rerank(context.Background(), "query", candidates, 2)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Doc.ID)
	assert.Equal(t, "b", out[1].Doc.ID)
}
