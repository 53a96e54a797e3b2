package compaction

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/anchoredrag/core/internal/errors"
	"github.com/anchoredrag/core/internal/types"
	"github.com/anchoredrag/core/internal/types/interfaces"
)

type fakeMessages struct {
	n, tokens  int
	oldest     []types.ChatMessage
	markedIDs  []string
	markedRef  string
	countCalls int
}

func (f *fakeMessages) Create(ctx context.Context, msg *types.ChatMessage) error { return nil }
func (f *fakeMessages) Get(ctx context.Context, id string) (*types.ChatMessage, error) {
	return nil, nil
}
func (f *fakeMessages) RecentBySession(ctx context.Context, sessionID string, limit int) ([]types.ChatMessage, error) {
	return nil, nil
}
func (f *fakeMessages) NonCompactedBySession(ctx context.Context, sessionID string, limit int) ([]types.ChatMessage, error) {
	return nil, nil
}
func (f *fakeMessages) CountAndSumTokensNonCompacted(ctx context.Context, sessionID string) (int, int, error) {
	f.countCalls++
	return f.n, f.tokens, nil
}
func (f *fakeMessages) OldestNonCompacted(ctx context.Context, sessionID string, skip, limit int) ([]types.ChatMessage, error) {
	return f.oldest, nil
}
func (f *fakeMessages) MarkCompacted(ctx context.Context, ids []string, ref string) error {
	f.markedIDs = ids
	f.markedRef = ref
	return nil
}

type fakeSummaries struct{ created *types.ChatSummary }

func (f *fakeSummaries) Create(ctx context.Context, s *types.ChatSummary) error {
	f.created = s
	return nil
}
func (f *fakeSummaries) MostRecentBySession(ctx context.Context, sessionID string) (*types.ChatSummary, error) {
	return nil, nil
}

type fakeGenerator struct {
	content string
	err     error
}

func (f *fakeGenerator) Chat(ctx context.Context, messages []interfaces.ChatTurn) (*types.ChatResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &types.ChatResponse{Content: f.content}, nil
}
func (f *fakeGenerator) ChatStream(ctx context.Context, messages []interfaces.ChatTurn) (<-chan types.StreamResponse, error) {
	return nil, nil
}

func oldBatch() []types.ChatMessage {
	now := time.Now()
	return []types.ChatMessage{
		{ID: "m1", Role: types.RoleUser, Content: "What is Go? It is a language.", CreatedAt: now.Add(-time.Hour), TokenCount: 10},
		{ID: "m2", Role: types.RoleAssistant, Content: "Go is a statically typed language. It compiles fast.", CreatedAt: now.Add(-time.Minute * 50), TokenCount: 15},
	}
}

func TestCheckAsyncSkipsUnderThreshold(t *testing.T) {
	messages := &fakeMessages{n: 5, tokens: 100}
	summaries := &fakeSummaries{}
	c := New(messages, summaries, &fakeGenerator{}, DefaultConfig())

	c.CheckAsync(context.Background(), "s1")

	assert.Nil(t, summaries.created)
	assert.Nil(t, messages.markedIDs)
}

func TestCheckAsyncSkipsWhenAtOrBelowSlidingWindow(t *testing.T) {
	cfg := DefaultConfig()
	messages := &fakeMessages{n: cfg.SlidingWindowSize, tokens: 99999}
	summaries := &fakeSummaries{}
	c := New(messages, summaries, &fakeGenerator{}, cfg)

	c.CheckAsync(context.Background(), "s1")

	assert.Nil(t, summaries.created)
}

func TestCheckAsyncCompactsOverMessageThreshold(t *testing.T) {
	cfg := DefaultConfig()
	messages := &fakeMessages{n: cfg.MessageThreshold + 1, tokens: 0, oldest: oldBatch()}
	summaries := &fakeSummaries{}
	c := New(messages, summaries, &fakeGenerator{content: "Discussed Go basics."}, cfg)

	c.CheckAsync(context.Background(), "s1")

	require.NotNil(t, summaries.created)
	assert.Equal(t, "Discussed Go basics.", summaries.created.SummaryContent)
	assert.Equal(t, 2, summaries.created.MessageCount)
	assert.Equal(t, 25, summaries.created.OriginalTokenCount)
	assert.Equal(t, []string{"m1", "m2"}, messages.markedIDs)
	assert.Equal(t, summaries.created.ID, messages.markedRef)
}

func TestCheckAsyncFallsBackToTruncationOnGeneratorError(t *testing.T) {
	cfg := DefaultConfig()
	messages := &fakeMessages{n: cfg.MessageThreshold + 1, oldest: oldBatch()}
	summaries := &fakeSummaries{}
	c := New(messages, summaries, &fakeGenerator{err: apperrors.NewValidationError("boom")}, cfg)

	c.CheckAsync(context.Background(), "s1")

	require.NotNil(t, summaries.created)
	assert.Contains(t, summaries.created.SummaryContent, "What is Go?")
	assert.Contains(t, summaries.created.SummaryContent, "Go is a statically typed language.")
}
