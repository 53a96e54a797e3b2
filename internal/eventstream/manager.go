// Package eventstream fans a StreamChat event channel out to more than one
// reader (a reconnecting client, a second instance polling for progress).
// It doesn't sit inside internal/conversation — StreamChat's contract is
// exactly `(ctx, sessionId, userMessage, mode) -> stream<Event>` and stays that way —
// it's a piece of the HTTP/SSE transport layer that sits outside this
// core's scope, provided here because a consumer needs somewhere to fan
// the channel out to before it's gone.
//
// RegisterStream/AppendEvent/GetStream operate over a session+request key:
// a State accumulates tokens into a Content builder, collects Citations,
// and records the terminal Done/Error event.
package eventstream

import (
	"context"
	"time"

	"github.com/anchoredrag/core/internal/types"
)

// State is the accumulated view of one in-flight or completed stream.
type State struct {
	SessionID    string           `json:"session_id"`
	RequestID    string           `json:"request_id"`
	Content      string           `json:"content"`
	Citations    []types.Citation `json:"citations"`
	MessageID    string           `json:"message_id"`
	TokenCount   int              `json:"token_count"`
	ErrorID      string           `json:"error_id"`
	ErrorMessage string           `json:"error_message"`
	IsCompleted  bool             `json:"is_completed"`
	LastUpdated  time.Time        `json:"last_updated"`
}

// Apply folds one Event into the accumulated State.
func (s *State) Apply(ev types.Event) {
	switch ev.Type {
	case types.EventToken:
		s.Content += ev.Token
	case types.EventCitation:
		if ev.Citation != nil {
			s.Citations = append(s.Citations, *ev.Citation)
		}
	case types.EventDone:
		s.MessageID = ev.MessageID
		s.TokenCount = ev.TokenCount
		s.IsCompleted = true
	case types.EventError:
		s.ErrorID = ev.ErrorID
		s.ErrorMessage = ev.Message
		s.IsCompleted = true
	}
	s.LastUpdated = time.Now()
}

// Manager registers, updates, and reads back fanned-out stream state,
// keyed by (sessionID, requestID).
type Manager interface {
	RegisterStream(ctx context.Context, sessionID, requestID string) error
	AppendEvent(ctx context.Context, sessionID, requestID string, ev types.Event) error
	GetStream(ctx context.Context, sessionID, requestID string) (*State, error)
}

// Pump drains a StreamChat event channel into a Manager under requestID,
// so any other reader of that key sees the same progress. It returns once
// events is closed; the caller is still responsible for forwarding events
// to its own consumer (an SSE response, a second channel) — Pump only
// mirrors them into shared state.
func Pump(ctx context.Context, mgr Manager, sessionID, requestID string, events <-chan types.Event) {
	if err := mgr.RegisterStream(ctx, sessionID, requestID); err != nil {
		return
	}
	for ev := range events {
		_ = mgr.AppendEvent(ctx, sessionID, requestID, ev)
	}
}
