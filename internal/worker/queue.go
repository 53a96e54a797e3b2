package worker

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/anchoredrag/core/internal/logger"
)

// Queue enqueues background work instead of running it in-process. It
// implements conversation.MemoryExtractor and conversation.Compactor, so
// cmd/ wiring can hand a *Queue to conversation.New wherever it would
// otherwise hand a *memory.Extractor / *compaction.Compactor directly.
type Queue struct {
	client *asynq.Client
}

// NewQueue wraps an asynq client.
func NewQueue(client *asynq.Client) *Queue {
	return &Queue{client: client}
}

// EnqueueDocumentIngest schedules one TypeDocumentIngest task per documentId.
func (q *Queue) EnqueueDocumentIngest(ctx context.Context, documentID string, raw []byte) error {
	payload, err := json.Marshal(DocumentIngestPayload{DocumentID: documentID, Raw: raw})
	if err != nil {
		return err
	}
	_, err = q.client.EnqueueContext(ctx, asynq.NewTask(TypeDocumentIngest, payload))
	return err
}

// ExtractAsync implements conversation.MemoryExtractor by enqueueing a
// TypeMemoryExtract task. Enqueue failures are logged, never returned,
// matching the fire-and-forget contract of the interface it satisfies.
func (q *Queue) ExtractAsync(ctx context.Context, sessionID, userMessage, assistantMessage string) {
	payload, err := json.Marshal(MemoryExtractPayload{SessionID: sessionID, UserMessage: userMessage, AssistantMessage: assistantMessage})
	if err != nil {
		logger.Errorf(ctx, "worker: marshal memory extract payload for session %s: %v", sessionID, err)
		return
	}
	if _, err := q.client.EnqueueContext(ctx, asynq.NewTask(TypeMemoryExtract, payload)); err != nil {
		logger.Errorf(ctx, "worker: enqueue memory extract for session %s: %v", sessionID, err)
	}
}

// CheckAsync implements conversation.Compactor by enqueueing a
// TypeCompactionCheck task.
func (q *Queue) CheckAsync(ctx context.Context, sessionID string) {
	payload, err := json.Marshal(CompactionCheckPayload{SessionID: sessionID})
	if err != nil {
		logger.Errorf(ctx, "worker: marshal compaction check payload for session %s: %v", sessionID, err)
		return
	}
	if _, err := q.client.EnqueueContext(ctx, asynq.NewTask(TypeCompactionCheck, payload)); err != nil {
		logger.Errorf(ctx, "worker: enqueue compaction check for session %s: %v", sessionID, err)
	}
}
