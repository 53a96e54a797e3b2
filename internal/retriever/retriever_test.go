package retriever

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchoredrag/core/internal/types"
	"github.com/anchoredrag/core/internal/types/interfaces"
)

type fakeChunkIndex struct {
	vectorResults   []types.ScoredChunk
	keywordResults  []types.ScoredChunk
	vectorErr       error
	keywordErr      error
	lastFilter      types.Filter
}

func (f *fakeChunkIndex) InitIndex(ctx context.Context) error { return nil }
func (f *fakeChunkIndex) Index(ctx context.Context, docs []types.Chunk) (interfaces.IndexResult, error) {
	return interfaces.IndexResult{}, nil
}
func (f *fakeChunkIndex) VectorSearch(ctx context.Context, filter types.Filter, queryVector []float32, topK int) ([]types.Scored[types.Chunk], error) {
	f.lastFilter = filter
	return f.vectorResults, f.vectorErr
}
func (f *fakeChunkIndex) KeywordSearch(ctx context.Context, filter types.Filter, query string, topK int) ([]types.Scored[types.Chunk], error) {
	f.lastFilter = filter
	return f.keywordResults, f.keywordErr
}
func (f *fakeChunkIndex) HybridSearchWithRRF(ctx context.Context, filter types.Filter, query string, queryVector []float32, topK int) ([]types.Scored[types.Chunk], error) {
	return nil, interfaces.ErrNativeRRFUnsupported
}
func (f *fakeChunkIndex) DeleteBy(ctx context.Context, filter types.Filter) error { return nil }
func (f *fakeChunkIndex) Refresh(ctx context.Context) error                      { return nil }

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vector, f.err
}
func (f *fakeEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, nil
}
func (f *fakeEmbedder) GetDimensions() int { return len(f.vector) }

type passThroughReranker struct{}

func (passThroughReranker) Rerank(ctx context.Context, query string, candidates []types.ScoredChunk, topK int) ([]types.ScoredChunk, error) {
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

func sc(id, docID string, score float64) types.ScoredChunk {
	return types.ScoredChunk{Doc: types.Chunk{ID: id, DocumentID: docID}, Score: score}
}

func TestSearchPanicsWithoutSessionID(t *testing.T) {
	r := New(&fakeChunkIndex{}, &fakeEmbedder{vector: []float32{0.1}}, passThroughReranker{}, DefaultConfig())
	assert.Panics(t, func() {
		_, _ = r.Search(context.Background(), "", "query", types.ModeExploring, nil)
	})
}

func TestSearchIsolatesBySession(t *testing.T) {
	idx := &fakeChunkIndex{
		vectorResults:  []types.ScoredChunk{sc("c1", "d1", 0.9)},
		keywordResults: []types.ScoredChunk{sc("c1", "d1", 0.8)},
	}
	r := New(idx, &fakeEmbedder{vector: []float32{0.1, 0.2}}, passThroughReranker{}, DefaultConfig())

	_, err := r.Search(context.Background(), "session-123", "query", types.ModeExploring, nil)
	require.NoError(t, err)
	assert.Equal(t, "session-123", idx.lastFilter.SessionID)
}

func TestSearchDegradesToKeywordOnlyWhenEmbedFails(t *testing.T) {
	idx := &fakeChunkIndex{keywordResults: []types.ScoredChunk{sc("c1", "d1", 1)}}
	r := New(idx, &fakeEmbedder{err: errors.New("embedding backend down")}, passThroughReranker{}, DefaultConfig())

	result, err := r.Search(context.Background(), "session-1", "query", types.ModeExploring, nil)
	require.NoError(t, err)
	assert.Nil(t, result.VectorResults)
	require.Len(t, result.FinalResults, 1)
	assert.Equal(t, "c1", result.FinalResults[0].Doc.ID)
}

func TestSearchAppliesAnchorBoostBeforeRerank(t *testing.T) {
	idx := &fakeChunkIndex{
		vectorResults:  []types.ScoredChunk{sc("c1", "docA", 0.5), sc("c2", "docB", 0.5)},
		keywordResults: nil,
	}
	cfg := DefaultConfig()
	cfg.SourceAnchoringBoost = 10
	r := New(idx, &fakeEmbedder{vector: []float32{0.1}}, passThroughReranker{}, cfg)

	result, err := r.Search(context.Background(), "session-1", "query", types.ModeResearch, []string{"docB"})
	require.NoError(t, err)
	require.NotEmpty(t, result.FinalResults)
	assert.Equal(t, "c2", result.FinalResults[0].Doc.ID)
}
