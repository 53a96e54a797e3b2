package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchoredrag/core/internal/types"
	"github.com/anchoredrag/core/internal/types/interfaces"
)

type fakeAgent struct {
	out []ExtractedMemory
	err error
}

func (f *fakeAgent) Extract(ctx context.Context, userMessage, assistantMessage string) ([]ExtractedMemory, error) {
	return f.out, f.err
}

type fakeMemoryRepo struct {
	memories map[string]types.Memory
	touched  []string
}

func newFakeMemoryRepo() *fakeMemoryRepo { return &fakeMemoryRepo{memories: map[string]types.Memory{}} }

func (r *fakeMemoryRepo) Create(ctx context.Context, m *types.Memory) error {
	r.memories[m.ID] = *m
	return nil
}
func (r *fakeMemoryRepo) Update(ctx context.Context, m *types.Memory) error {
	r.memories[m.ID] = *m
	return nil
}
func (r *fakeMemoryRepo) ListBySession(ctx context.Context, sessionID string) ([]types.Memory, error) {
	var out []types.Memory
	for _, m := range r.memories {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out, nil
}
func (r *fakeMemoryRepo) FindByContent(ctx context.Context, sessionID, content string) (*types.Memory, error) {
	for _, m := range r.memories {
		if m.SessionID == sessionID && m.MemoryContent == content {
			cp := m
			return &cp, nil
		}
	}
	return nil, nil
}
func (r *fakeMemoryRepo) Delete(ctx context.Context, memoryID string) error {
	delete(r.memories, memoryID)
	return nil
}
func (r *fakeMemoryRepo) TouchLastAccessed(ctx context.Context, memoryID string) error {
	r.touched = append(r.touched, memoryID)
	return nil
}

type fakeMemoryIndex struct{ indexed []types.Memory }

func (f *fakeMemoryIndex) InitIndex(ctx context.Context) error { return nil }
func (f *fakeMemoryIndex) Index(ctx context.Context, docs []types.Memory) (interfaces.IndexResult, error) {
	f.indexed = append(f.indexed, docs...)
	return interfaces.IndexResult{Indexed: len(docs)}, nil
}
func (f *fakeMemoryIndex) VectorSearch(ctx context.Context, filter types.Filter, v []float32, topK int) ([]types.Scored[types.Memory], error) {
	return nil, nil
}
func (f *fakeMemoryIndex) KeywordSearch(ctx context.Context, filter types.Filter, q string, topK int) ([]types.Scored[types.Memory], error) {
	return nil, nil
}
func (f *fakeMemoryIndex) HybridSearchWithRRF(ctx context.Context, filter types.Filter, q string, v []float32, topK int) ([]types.Scored[types.Memory], error) {
	var out []types.Scored[types.Memory]
	for _, m := range f.indexed {
		out = append(out, types.Scored[types.Memory]{Doc: m, Score: 1.0 / 61.0})
	}
	return out, nil
}
func (f *fakeMemoryIndex) DeleteBy(ctx context.Context, filter types.Filter) error { return nil }
func (f *fakeMemoryIndex) Refresh(ctx context.Context) error                      { return nil }

type fakeMemEmbedder struct{}

func (f *fakeMemEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1}, nil
}
func (f *fakeMemEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, nil
}
func (f *fakeMemEmbedder) GetDimensions() int { return 1 }

func TestExtractAsyncDropsBelowThreshold(t *testing.T) {
	repo := newFakeMemoryRepo()
	index := &fakeMemoryIndex{}
	agent := &fakeAgent{out: []ExtractedMemory{{Type: types.MemoryTypeFact, Content: "likes coffee", Importance: 0.1}}}
	extractor := NewExtractor(repo, index, &fakeMemEmbedder{}, agent, DefaultConfig())

	extractor.ExtractAsync(context.Background(), "s1", "hi", "hello")

	assert.Empty(t, repo.memories)
	assert.Empty(t, index.indexed)
}

func TestExtractAsyncInsertsNewMemory(t *testing.T) {
	repo := newFakeMemoryRepo()
	index := &fakeMemoryIndex{}
	agent := &fakeAgent{out: []ExtractedMemory{{Type: types.MemoryTypeFact, Content: "prefers dark mode", Importance: 0.8}}}
	extractor := NewExtractor(repo, index, &fakeMemEmbedder{}, agent, DefaultConfig())

	extractor.ExtractAsync(context.Background(), "s1", "hi", "hello")

	require.Len(t, repo.memories, 1)
	require.Len(t, index.indexed, 1)
	for _, m := range repo.memories {
		assert.Equal(t, "prefers dark mode", m.MemoryContent)
	}
}

func TestExtractAsyncDedupUpdatesImportance(t *testing.T) {
	repo := newFakeMemoryRepo()
	existing := types.Memory{ID: "m1", SessionID: "s1", MemoryContent: "prefers dark mode in the editor", Importance: 0.4, CreatedAt: time.Now(), LastAccessedAt: time.Now()}
	repo.memories[existing.ID] = existing
	index := &fakeMemoryIndex{}
	agent := &fakeAgent{out: []ExtractedMemory{{Type: types.MemoryTypeFact, Content: "prefers dark mode", Importance: 0.9}}}
	extractor := NewExtractor(repo, index, &fakeMemEmbedder{}, agent, DefaultConfig())

	extractor.ExtractAsync(context.Background(), "s1", "hi", "hello")

	require.Len(t, repo.memories, 1)
	assert.Equal(t, 0.9, repo.memories["m1"].Importance)
}

func TestExtractAsyncEvictsLowestImportanceOverCap(t *testing.T) {
	repo := newFakeMemoryRepo()
	cfg := DefaultConfig()
	cfg.MaxPerSession = 1
	for i := 0; i < 1; i++ {
		repo.memories["old"] = types.Memory{ID: "old", SessionID: "s1", MemoryContent: "existing low importance fact", Importance: 0.1, CreatedAt: time.Now().Add(-time.Hour)}
	}
	index := &fakeMemoryIndex{}
	agent := &fakeAgent{out: []ExtractedMemory{{Type: types.MemoryTypeFact, Content: "brand new high importance fact", Importance: 0.9}}}
	extractor := NewExtractor(repo, index, &fakeMemEmbedder{}, agent, cfg)

	extractor.ExtractAsync(context.Background(), "s1", "hi", "hello")

	require.Len(t, repo.memories, 1)
	for _, m := range repo.memories {
		assert.Equal(t, "brand new high importance fact", m.MemoryContent)
	}
}

func TestGetRelevantMemoriesRanksBySemanticAndImportance(t *testing.T) {
	repo := newFakeMemoryRepo()
	index := &fakeMemoryIndex{indexed: []types.Memory{
		{ID: "m1", SessionID: "s1", MemoryContent: "low importance", Importance: 0.1},
		{ID: "m2", SessionID: "s1", MemoryContent: "high importance", Importance: 0.9},
	}}
	provider := NewProvider(repo, index, &fakeMemEmbedder{}, DefaultConfig())

	mems, err := provider.GetRelevantMemories(context.Background(), "s1", "query", 5)
	require.NoError(t, err)
	require.Len(t, mems, 2)
	assert.Equal(t, "high importance", mems[0].MemoryContent)
	assert.Len(t, repo.touched, 2)
}
