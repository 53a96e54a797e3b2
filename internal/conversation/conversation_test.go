package conversation

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/anchoredrag/core/internal/errors"
	"github.com/anchoredrag/core/internal/types"
	"github.com/anchoredrag/core/internal/types/interfaces"
)

type fakeSessions struct{ session *types.Session }

func (f *fakeSessions) Get(ctx context.Context, id string) (*types.Session, error) { return f.session, nil }
func (f *fakeSessions) Create(ctx context.Context, s *types.Session) error         { return nil }
func (f *fakeSessions) Delete(ctx context.Context, id string) error                { return nil }

type fakeMessages struct {
	created []types.ChatMessage
	recent  []types.ChatMessage
}

func (f *fakeMessages) Create(ctx context.Context, msg *types.ChatMessage) error {
	f.created = append(f.created, *msg)
	return nil
}
func (f *fakeMessages) Get(ctx context.Context, id string) (*types.ChatMessage, error) { return nil, nil }
func (f *fakeMessages) RecentBySession(ctx context.Context, sessionID string, limit int) ([]types.ChatMessage, error) {
	return nil, nil
}
func (f *fakeMessages) NonCompactedBySession(ctx context.Context, sessionID string, limit int) ([]types.ChatMessage, error) {
	out := append([]types.ChatMessage{}, f.created...)
	out = append(out, f.recent...)
	return out, nil
}
func (f *fakeMessages) CountAndSumTokensNonCompacted(ctx context.Context, sessionID string) (int, int, error) {
	return 0, 0, nil
}
func (f *fakeMessages) OldestNonCompacted(ctx context.Context, sessionID string, skip, limit int) ([]types.ChatMessage, error) {
	return nil, nil
}
func (f *fakeMessages) MarkCompacted(ctx context.Context, ids []string, ref string) error { return nil }

type fakeSummaries struct{}

func (f *fakeSummaries) Create(ctx context.Context, s *types.ChatSummary) error { return nil }
func (f *fakeSummaries) MostRecentBySession(ctx context.Context, sessionID string) (*types.ChatSummary, error) {
	return nil, nil
}

type fakeMessageIndex struct{ indexed []types.ChatMessage }

func (f *fakeMessageIndex) InitIndex(ctx context.Context) error { return nil }
func (f *fakeMessageIndex) Index(ctx context.Context, docs []types.ChatMessage) (interfaces.IndexResult, error) {
	f.indexed = append(f.indexed, docs...)
	return interfaces.IndexResult{Indexed: len(docs)}, nil
}
func (f *fakeMessageIndex) VectorSearch(ctx context.Context, filter types.Filter, v []float32, topK int) ([]types.Scored[types.ChatMessage], error) {
	return nil, nil
}
func (f *fakeMessageIndex) KeywordSearch(ctx context.Context, filter types.Filter, q string, topK int) ([]types.Scored[types.ChatMessage], error) {
	return nil, nil
}
func (f *fakeMessageIndex) HybridSearchWithRRF(ctx context.Context, filter types.Filter, q string, v []float32, topK int) ([]types.Scored[types.ChatMessage], error) {
	return nil, interfaces.ErrNativeRRFUnsupported
}
func (f *fakeMessageIndex) DeleteBy(ctx context.Context, filter types.Filter) error { return nil }
func (f *fakeMessageIndex) Refresh(ctx context.Context) error                      { return nil }

type fakeEmbedder struct{}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}
func (f *fakeEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, nil
}
func (f *fakeEmbedder) GetDimensions() int { return 2 }

type fakeGenerator struct {
	tokens []string
	err    error
}

func (f *fakeGenerator) Chat(ctx context.Context, messages []interfaces.ChatTurn) (*types.ChatResponse, error) {
	return nil, nil
}
func (f *fakeGenerator) ChatStream(ctx context.Context, messages []interfaces.ChatTurn) (<-chan types.StreamResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan types.StreamResponse)
	go func() {
		defer close(ch)
		for _, t := range f.tokens {
			ch <- types.StreamResponse{Content: t}
		}
		ch <- types.StreamResponse{Done: true}
	}()
	return ch, nil
}

type fakeRetriever struct{ result types.SearchResult }

func (f *fakeRetriever) Search(ctx context.Context, sessionID, query string, mode types.Mode, anchors []string) (types.SearchResult, error) {
	return f.result, nil
}

type fakeReformulator struct{}

func (f *fakeReformulator) Reformulate(ctx context.Context, sessionID, query string, mode types.Mode) types.ReformulatedQuery {
	return types.ReformulatedQuery{Query: query}
}

type fakeVerifier struct {
	called chan []types.ScoredChunk
	claims []types.ClaimVerification
}

func (f *fakeVerifier) Verify(ctx context.Context, answer string, citedChunks []types.ScoredChunk) []types.ClaimVerification {
	f.called <- citedChunks
	return f.claims
}

func drain(t *testing.T, ch <-chan types.Event) []types.Event {
	t.Helper()
	var out []types.Event
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for events")
		}
	}
}

func newCore(t *testing.T, generator *fakeGenerator, result types.SearchResult) (*Core, *fakeMessages, *fakeMessageIndex) {
	t.Helper()
	messages := &fakeMessages{}
	index := &fakeMessageIndex{}
	core := New(
		&fakeSessions{session: &types.Session{ID: "s1"}},
		messages, &fakeSummaries{}, index, &fakeEmbedder{}, generator,
		&fakeRetriever{result: result}, &fakeReformulator{}, nil, nil, nil, nil, nil,
		DefaultConfig(),
	)
	return core, messages, index
}

func TestStreamChatRejectsUnknownSession(t *testing.T) {
	core := New(&fakeSessions{session: nil}, &fakeMessages{}, &fakeSummaries{}, &fakeMessageIndex{},
		&fakeEmbedder{}, &fakeGenerator{}, &fakeRetriever{}, &fakeReformulator{}, nil, nil, nil, nil, nil, DefaultConfig())

	_, err := core.StreamChat(context.Background(), "missing", "hi", types.ModeResearch)
	require.Error(t, err)
}

func TestStreamChatHappyPathEmitsTokensCitationAndDone(t *testing.T) {
	chunk := types.Chunk{ID: "c1", DocumentID: "d1", FileName: "notes.txt", Content: "the answer is 42"}
	result := types.SearchResult{FinalResults: []types.ScoredChunk{{Doc: chunk, Score: 1.0}}}
	core, messages, index := newCore(t, &fakeGenerator{tokens: []string{"hel", "lo"}}, result)

	ch, err := core.StreamChat(context.Background(), "s1", "what is the answer?", types.ModeResearch)
	require.NoError(t, err)

	events := drain(t, ch)
	var sawToken, sawCitation, sawDone bool
	var doneEvent types.Event
	for _, ev := range events {
		switch ev.Type {
		case types.EventToken:
			sawToken = true
		case types.EventCitation:
			sawCitation = true
			assert.Equal(t, "notes.txt", ev.Citation.SourceFileName)
		case types.EventDone:
			sawDone = true
			doneEvent = ev
		}
	}
	assert.True(t, sawToken)
	assert.True(t, sawCitation)
	require.True(t, sawDone)
	assert.NotEmpty(t, doneEvent.MessageID)

	require.Len(t, messages.created, 2)
	assistant := messages.created[1]
	assert.Equal(t, types.RoleAssistant, assistant.Role)
	assert.Equal(t, "hello", assistant.Content)

	var anchors []string
	require.NoError(t, json.Unmarshal([]byte(assistant.RetrievedContextJSON), &anchors))
	assert.Equal(t, []string{"d1"}, anchors)

	assert.Len(t, index.indexed, 2)
}

func TestStreamChatGeneratorErrorEmitsErrorEvent(t *testing.T) {
	core, _, _ := newCore(t, &fakeGenerator{err: apperrors.NewValidationError("boom")}, types.SearchResult{})

	ch, err := core.StreamChat(context.Background(), "s1", "hi", types.ModeResearch)
	require.NoError(t, err)

	events := drain(t, ch)
	require.Len(t, events, 1)
	assert.Equal(t, types.EventError, events[0].Type)
}

func TestStreamChatTriggersAnswerVerificationInBackground(t *testing.T) {
	chunk := types.Chunk{ID: "c1", DocumentID: "d1", FileName: "notes.txt", Content: "the answer is 42"}
	result := types.SearchResult{FinalResults: []types.ScoredChunk{{Doc: chunk, Score: 1.0}}}
	verifier := &fakeVerifier{called: make(chan []types.ScoredChunk, 1)}

	messages := &fakeMessages{}
	core := New(
		&fakeSessions{session: &types.Session{ID: "s1"}},
		messages, &fakeSummaries{}, &fakeMessageIndex{}, &fakeEmbedder{}, &fakeGenerator{tokens: []string{"hi"}},
		&fakeRetriever{result: result}, &fakeReformulator{}, nil, nil, nil, verifier, nil,
		DefaultConfig(),
	)

	ch, err := core.StreamChat(context.Background(), "s1", "what is the answer?", types.ModeResearch)
	require.NoError(t, err)
	drain(t, ch)

	select {
	case citedChunks := <-verifier.called:
		assert.Equal(t, result.FinalResults, citedChunks)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for verifier to be invoked")
	}
}
