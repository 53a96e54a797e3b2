package eventstream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchoredrag/core/internal/types"
)

func TestMemoryManagerAccumulatesTokensAndCitations(t *testing.T) {
	mgr := NewMemoryManager()
	ctx := context.Background()

	require.NoError(t, mgr.RegisterStream(ctx, "s1", "r1"))
	require.NoError(t, mgr.AppendEvent(ctx, "s1", "r1", types.Event{Type: types.EventToken, Token: "hel"}))
	require.NoError(t, mgr.AppendEvent(ctx, "s1", "r1", types.Event{Type: types.EventToken, Token: "lo"}))
	citation := types.Citation{SourceFileName: "notes.txt"}
	require.NoError(t, mgr.AppendEvent(ctx, "s1", "r1", types.Event{Type: types.EventCitation, Citation: &citation}))
	require.NoError(t, mgr.AppendEvent(ctx, "s1", "r1", types.Event{Type: types.EventDone, MessageID: "m1", TokenCount: 2}))

	state, err := mgr.GetStream(ctx, "s1", "r1")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, "hello", state.Content)
	assert.Equal(t, []types.Citation{citation}, state.Citations)
	assert.Equal(t, "m1", state.MessageID)
	assert.True(t, state.IsCompleted)
}

func TestMemoryManagerGetStreamUnknownReturnsNil(t *testing.T) {
	mgr := NewMemoryManager()
	state, err := mgr.GetStream(context.Background(), "missing", "missing")
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestPumpDrainsChannelIntoManager(t *testing.T) {
	mgr := NewMemoryManager()
	events := make(chan types.Event, 4)
	events <- types.Event{Type: types.EventToken, Token: "hi"}
	events <- types.Event{Type: types.EventDone, MessageID: "m1"}
	close(events)

	done := make(chan struct{})
	go func() {
		Pump(context.Background(), mgr, "s1", "r1", events)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Pump to finish")
	}

	state, err := mgr.GetStream(context.Background(), "s1", "r1")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, "hi", state.Content)
	assert.True(t, state.IsCompleted)
}
