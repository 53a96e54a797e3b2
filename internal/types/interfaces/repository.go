package interfaces

import (
	"context"

	"github.com/anchoredrag/core/internal/types"
)

// SessionRepository is the authoritative relational contract for sessions.
// Persistence itself is out of scope; the core only consumes this
// contract, a default gorm-backed implementation is provided for
// runnability in internal/repository.
type SessionRepository interface {
	Get(ctx context.Context, sessionID string) (*types.Session, error)
	Create(ctx context.Context, session *types.Session) error
	Delete(ctx context.Context, sessionID string) error
}

// DocumentRepository is the authoritative relational contract for documents.
type DocumentRepository interface {
	Get(ctx context.Context, documentID string) (*types.Document, error)
	ListBySession(ctx context.Context, sessionID string) ([]types.Document, error)
	Create(ctx context.Context, doc *types.Document) error
	// CompareAndSwapStatus performs a single conditional UPDATE from `from` to
	// `to`, returning false (no error) if the row wasn't in state `from` —
	// this update is the re-entrancy lock for ingestion.
	CompareAndSwapStatus(ctx context.Context, documentID string, from, to types.DocumentStatus) (bool, error)
	SetReady(ctx context.Context, documentID string, chunkCount int) error
	SetFailed(ctx context.Context, documentID string, processingError string) error
}

// MessageRepository is the authoritative relational contract for chat messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *types.ChatMessage) error
	Get(ctx context.Context, messageID string) (*types.ChatMessage, error)
	// RecentBySession returns the last `limit` messages ordered by createdAt DESC.
	RecentBySession(ctx context.Context, sessionID string, limit int) ([]types.ChatMessage, error)
	// NonCompactedBySession returns non-compacted messages ordered by createdAt DESC.
	NonCompactedBySession(ctx context.Context, sessionID string, limit int) ([]types.ChatMessage, error)
	// CountAndSumTokensNonCompacted returns (N, T) over non-compacted messages.
	CountAndSumTokensNonCompacted(ctx context.Context, sessionID string) (int, int, error)
	// OldestNonCompacted returns the oldest non-compacted messages beyond the
	// sliding window, chronological order, up to `limit`.
	OldestNonCompacted(ctx context.Context, sessionID string, skipMostRecent, limit int) ([]types.ChatMessage, error)
	MarkCompacted(ctx context.Context, messageIDs []string, summaryRef string) error
}

// SummaryRepository is the authoritative relational contract for compaction summaries.
type SummaryRepository interface {
	Create(ctx context.Context, summary *types.ChatSummary) error
	MostRecentBySession(ctx context.Context, sessionID string) (*types.ChatSummary, error)
}

// MemoryRepository is the authoritative relational contract for extracted memories.
type MemoryRepository interface {
	Create(ctx context.Context, memory *types.Memory) error
	Update(ctx context.Context, memory *types.Memory) error
	ListBySession(ctx context.Context, sessionID string) ([]types.Memory, error)
	FindByContent(ctx context.Context, sessionID, content string) (*types.Memory, error)
	Delete(ctx context.Context, memoryID string) error
	TouchLastAccessed(ctx context.Context, memoryID string) error
}
