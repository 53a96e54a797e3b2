// Package worker adapts the fire-and-forget background triggers
// (document ingestion, memory extraction, compaction) onto hibiken/asynq,
// keyed on a TypeX task-type string per queue.ServeMux route. There is no
// global client/handler-map state: Queue and Handlers are explicit structs
// built by cmd/ wiring and passed the collaborators they need.
//
// Running these triggers through asynq instead of a plain goroutine only
// matters for multi-instance deployments, where a goroutine on the
// instance that served StreamChat isn't visible to the others; a
// single-instance deployment can still pass internal/memory.Extractor and
// internal/compaction.Compactor directly to conversation.New and skip this
// package entirely.
package worker

// Task type identifiers routed through the asynq ServeMux.
const (
	TypeDocumentIngest  = "ingest:document"
	TypeMemoryExtract   = "memory:extract"
	TypeCompactionCheck = "compaction:check"
)

// DocumentIngestPayload is the TypeDocumentIngest task body: one task per
// documentId. Re-entrancy is prevented by the document's
// Pending->Processing status gate, not by asynq task uniqueness.
type DocumentIngestPayload struct {
	DocumentID string `json:"document_id"`
	Raw        []byte `json:"raw"`
}

// MemoryExtractPayload is the TypeMemoryExtract task body.
type MemoryExtractPayload struct {
	SessionID        string `json:"session_id"`
	UserMessage      string `json:"user_message"`
	AssistantMessage string `json:"assistant_message"`
}

// CompactionCheckPayload is the TypeCompactionCheck task body.
type CompactionCheckPayload struct {
	SessionID string `json:"session_id"`
}
