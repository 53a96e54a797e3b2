package lifecycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchoredrag/core/internal/types"
	"github.com/anchoredrag/core/internal/types/interfaces"
)

type fakeSessions struct {
	deletedID string
	err       error
}

func (f *fakeSessions) Get(ctx context.Context, id string) (*types.Session, error) { return nil, nil }
func (f *fakeSessions) Create(ctx context.Context, s *types.Session) error         { return nil }
func (f *fakeSessions) Delete(ctx context.Context, id string) error {
	f.deletedID = id
	return f.err
}

type fakeIndex[T any] struct {
	deletedFilter types.Filter
	called        bool
	err           error
}

func (f *fakeIndex[T]) InitIndex(ctx context.Context) error { return nil }
func (f *fakeIndex[T]) Index(ctx context.Context, docs []T) (interfaces.IndexResult, error) {
	return interfaces.IndexResult{}, nil
}
func (f *fakeIndex[T]) VectorSearch(ctx context.Context, filter types.Filter, v []float32, topK int) ([]types.Scored[T], error) {
	return nil, nil
}
func (f *fakeIndex[T]) KeywordSearch(ctx context.Context, filter types.Filter, q string, topK int) ([]types.Scored[T], error) {
	return nil, nil
}
func (f *fakeIndex[T]) HybridSearchWithRRF(ctx context.Context, filter types.Filter, q string, v []float32, topK int) ([]types.Scored[T], error) {
	return nil, nil
}
func (f *fakeIndex[T]) DeleteBy(ctx context.Context, filter types.Filter) error {
	f.called = true
	f.deletedFilter = filter
	return f.err
}
func (f *fakeIndex[T]) Refresh(ctx context.Context) error { return nil }

func TestDeleteSessionDeletesEachIndexThenSession(t *testing.T) {
	sessions := &fakeSessions{}
	chunks := &fakeIndex[types.Chunk]{}
	messages := &fakeIndex[types.ChatMessage]{}
	memories := &fakeIndex[types.Memory]{}
	m := New(sessions, chunks, messages, memories)

	err := m.DeleteSession(context.Background(), "s1")
	require.NoError(t, err)

	assert.True(t, chunks.called)
	assert.True(t, messages.called)
	assert.True(t, memories.called)
	assert.Equal(t, "s1", chunks.deletedFilter.SessionID)
	assert.Equal(t, "s1", sessions.deletedID)
}

func TestDeleteSessionStopsOnIndexErrorBeforeDeletingSession(t *testing.T) {
	sessions := &fakeSessions{}
	chunks := &fakeIndex[types.Chunk]{err: assertErr{}}
	messages := &fakeIndex[types.ChatMessage]{}
	memories := &fakeIndex[types.Memory]{}
	m := New(sessions, chunks, messages, memories)

	err := m.DeleteSession(context.Background(), "s1")
	require.Error(t, err)
	assert.False(t, messages.called)
	assert.Empty(t, sessions.deletedID)
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
