package reformulate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchoredrag/core/internal/types"
	"github.com/anchoredrag/core/internal/types/interfaces"
)

type fakeMessageRepo struct {
	recent []types.ChatMessage
	err    error
}

func (f *fakeMessageRepo) Create(ctx context.Context, msg *types.ChatMessage) error { return nil }
func (f *fakeMessageRepo) Get(ctx context.Context, messageID string) (*types.ChatMessage, error) {
	return nil, nil
}
func (f *fakeMessageRepo) RecentBySession(ctx context.Context, sessionID string, limit int) ([]types.ChatMessage, error) {
	return f.recent, f.err
}
func (f *fakeMessageRepo) NonCompactedBySession(ctx context.Context, sessionID string, limit int) ([]types.ChatMessage, error) {
	return nil, nil
}
func (f *fakeMessageRepo) CountAndSumTokensNonCompacted(ctx context.Context, sessionID string) (int, int, error) {
	return 0, 0, nil
}
func (f *fakeMessageRepo) OldestNonCompacted(ctx context.Context, sessionID string, skipMostRecent, limit int) ([]types.ChatMessage, error) {
	return nil, nil
}
func (f *fakeMessageRepo) MarkCompacted(ctx context.Context, messageIDs []string, summaryRef string) error {
	return nil
}

type fakeMessageIndex struct{}

func (f *fakeMessageIndex) InitIndex(ctx context.Context) error { return nil }
func (f *fakeMessageIndex) Index(ctx context.Context, docs []types.ChatMessage) (interfaces.IndexResult, error) {
	return interfaces.IndexResult{}, nil
}
func (f *fakeMessageIndex) VectorSearch(ctx context.Context, filter types.Filter, queryVector []float32, topK int) ([]types.Scored[types.ChatMessage], error) {
	return nil, nil
}
func (f *fakeMessageIndex) KeywordSearch(ctx context.Context, filter types.Filter, query string, topK int) ([]types.Scored[types.ChatMessage], error) {
	return nil, nil
}
func (f *fakeMessageIndex) HybridSearchWithRRF(ctx context.Context, filter types.Filter, query string, queryVector []float32, topK int) ([]types.Scored[types.ChatMessage], error) {
	return nil, interfaces.ErrNativeRRFUnsupported
}
func (f *fakeMessageIndex) DeleteBy(ctx context.Context, filter types.Filter) error { return nil }
func (f *fakeMessageIndex) Refresh(ctx context.Context) error                      { return nil }

type fakeEmbedder struct{}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) { return nil, nil }
func (f *fakeEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, nil
}
func (f *fakeEmbedder) GetDimensions() int { return 0 }

type fakeAgent struct {
	resp AgentResponse
	err  error
}

func (f *fakeAgent) Reformulate(ctx context.Context, recentExchange, fullHistory, originalQuery string) (AgentResponse, error) {
	return f.resp, f.err
}

func TestReformulateDisabledPassesThroughOriginal(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	r := New(&fakeMessageRepo{}, &fakeMessageIndex{}, &fakeEmbedder{}, &fakeAgent{}, cfg)

	result := r.Reformulate(context.Background(), "session-1", "what about the pricing", types.ModeExploring)
	assert.Equal(t, "what about the pricing", result.Query)
	assert.False(t, result.IsFollowUp)
	assert.Empty(t, result.AnchorDocumentIDs)
}

func TestReformulateFallsBackOnAgentError(t *testing.T) {
	r := New(&fakeMessageRepo{}, &fakeMessageIndex{}, &fakeEmbedder{}, &fakeAgent{err: errors.New("timeout")}, DefaultConfig())

	result := r.Reformulate(context.Background(), "session-1", "original query", types.ModeExploring)
	assert.Equal(t, "original query", result.Query)
	assert.False(t, result.IsFollowUp)
}

func TestReformulateFallsBackOnRepositoryError(t *testing.T) {
	repo := &fakeMessageRepo{err: errors.New("db down")}
	r := New(repo, &fakeMessageIndex{}, &fakeEmbedder{}, &fakeAgent{}, DefaultConfig())

	result := r.Reformulate(context.Background(), "session-1", "original", types.ModeExploring)
	assert.Equal(t, "original", result.Query)
}

func TestReformulateUsesAnchorsOnlyWhenFollowUp(t *testing.T) {
	recent := []types.ChatMessage{
		{ID: "m1", Role: types.RoleUser, Content: "tell me about pricing", CreatedAt: time.Unix(100, 0)},
		{ID: "m2", Role: types.RoleAssistant, Content: "here's pricing", CreatedAt: time.Unix(101, 0), RetrievedContextJSON: `["doc-1","doc-2"]`},
	}
	repo := &fakeMessageRepo{recent: recent}
	agent := &fakeAgent{resp: AgentResponse{IsFollowUp: true, Query: "pricing for enterprise plan"}}
	r := New(repo, &fakeMessageIndex{}, &fakeEmbedder{}, agent, DefaultConfig())

	result := r.Reformulate(context.Background(), "session-1", "what about enterprise", types.ModeExploring)
	require.Equal(t, "pricing for enterprise plan", result.Query)
	assert.True(t, result.IsFollowUp)
	assert.Equal(t, []string{"doc-1", "doc-2"}, result.AnchorDocumentIDs)
}

func TestReformulateTruncatesOverlongQuery(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxQueryLength = 10
	agent := &fakeAgent{resp: AgentResponse{Query: "this is a very long reformulated query"}}
	r := New(&fakeMessageRepo{}, &fakeMessageIndex{}, &fakeEmbedder{}, agent, cfg)

	result := r.Reformulate(context.Background(), "session-1", "original", types.ModeExploring)
	assert.Len(t, result.Query, 10)
}
