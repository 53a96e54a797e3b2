package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/anchoredrag/core/internal/compaction"
	"github.com/anchoredrag/core/internal/ingest"
	"github.com/anchoredrag/core/internal/memory"
)

// Handlers routes dequeued tasks to the same in-process implementations a
// single-instance deployment would call directly, so the domain logic
// itself never needs to know whether it runs inline or behind a queue.
type Handlers struct {
	pipeline  *ingest.Pipeline
	extractor *memory.Extractor
	compactor *compaction.Compactor
}

// NewHandlers builds a Handlers.
func NewHandlers(pipeline *ingest.Pipeline, extractor *memory.Extractor, compactor *compaction.Compactor) *Handlers {
	return &Handlers{pipeline: pipeline, extractor: extractor, compactor: compactor}
}

func (h *Handlers) handleDocumentIngest(ctx context.Context, t *asynq.Task) error {
	var p DocumentIngestPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("worker: unmarshal document ingest payload: %w", err)
	}
	h.pipeline.ProcessDocument(ctx, p.DocumentID, p.Raw)
	return nil
}

func (h *Handlers) handleMemoryExtract(ctx context.Context, t *asynq.Task) error {
	var p MemoryExtractPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("worker: unmarshal memory extract payload: %w", err)
	}
	h.extractor.ExtractAsync(ctx, p.SessionID, p.UserMessage, p.AssistantMessage)
	return nil
}

func (h *Handlers) handleCompactionCheck(ctx context.Context, t *asynq.Task) error {
	var p CompactionCheckPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("worker: unmarshal compaction check payload: %w", err)
	}
	h.compactor.CheckAsync(ctx, p.SessionID)
	return nil
}

// Mux builds the asynq.ServeMux a Server runs, one route per task type.
func (h *Handlers) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeDocumentIngest, h.handleDocumentIngest)
	mux.HandleFunc(TypeMemoryExtract, h.handleMemoryExtract)
	mux.HandleFunc(TypeCompactionCheck, h.handleCompactionCheck)
	return mux
}
