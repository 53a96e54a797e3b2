// Package lifecycle implements session teardown: deleting a session
// removes it from every index it was ever written to before removing the
// authoritative record, so a crash mid-delete leaves orphan index entries
// (invisible once the session itself is gone) rather than orphan
// authoritative rows a client could still read.
package lifecycle

import (
	"context"
	"fmt"

	"github.com/anchoredrag/core/internal/logger"
	"github.com/anchoredrag/core/internal/types"
	"github.com/anchoredrag/core/internal/types/interfaces"
)

// Manager implements DeleteSession.
type Manager struct {
	sessions   interfaces.SessionRepository
	chunkIndex interfaces.IndexService[types.Chunk]
	messageIdx interfaces.IndexService[types.ChatMessage]
	memoryIdx  interfaces.IndexService[types.Memory]
}

// New builds a lifecycle Manager.
func New(
	sessions interfaces.SessionRepository,
	chunkIndex interfaces.IndexService[types.Chunk],
	messageIdx interfaces.IndexService[types.ChatMessage],
	memoryIdx interfaces.IndexService[types.Memory],
) *Manager {
	return &Manager{sessions: sessions, chunkIndex: chunkIndex, messageIdx: messageIdx, memoryIdx: memoryIdx}
}

// DeleteSession removes every trace of a session: secondary indices
// first, authoritative record last. The relational delete is expected to
// cascade to the session's documents, messages, summaries, and memories in
// the store.
func (m *Manager) DeleteSession(ctx context.Context, sessionID string) error {
	log := logger.GetLogger(ctx)
	filter := types.Filter{SessionID: sessionID}

	if err := m.chunkIndex.DeleteBy(ctx, filter); err != nil {
		return fmt.Errorf("lifecycle: delete chunks for session %s: %w", sessionID, err)
	}
	if err := m.messageIdx.DeleteBy(ctx, filter); err != nil {
		return fmt.Errorf("lifecycle: delete chat messages for session %s: %w", sessionID, err)
	}
	if err := m.memoryIdx.DeleteBy(ctx, filter); err != nil {
		return fmt.Errorf("lifecycle: delete memories for session %s: %w", sessionID, err)
	}

	if err := m.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("lifecycle: delete session %s: %w", sessionID, err)
	}

	log.Infof("lifecycle: deleted session %s", sessionID)
	return nil
}
