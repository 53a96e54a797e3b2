package types

import "fmt"

// MatchType identifies which retrieval path surfaced a ScoredChunk.
type MatchType string

const (
	MatchTypeVector  MatchType = "vector"
	MatchTypeKeyword MatchType = "keyword"
	MatchTypeHistory MatchType = "history"
)

// Chunk is the atomic unit of retrieval: at most MaxChunkChars of text plus
// section metadata and two dense embeddings.
type Chunk struct {
	ID                 string    `json:"id"`
	SessionID          string    `json:"session_id"`
	DocumentID         string    `json:"document_id"`
	FileName           string    `json:"file_name"`
	ChunkIndex         int       `json:"chunk_index"`
	Content            string    `json:"content"`
	DocumentTitle      string    `json:"document_title"`
	SectionTitle       string    `json:"section_title"`
	SectionBreadcrumb  []string  `json:"section_breadcrumb"`
	TitleEmbedding     []float32 `json:"title_embedding,omitempty"`
	ContentEmbedding   []float32 `json:"content_embedding,omitempty"`
	AssociatedImageIDs []string  `json:"associated_image_ids,omitempty"`
	TokenCount         int       `json:"token_count"`

	// RelevanceScore is transient: set by the retriever/reranker stages and
	// never persisted as part of the indexed chunk document.
	RelevanceScore float64 `json:"relevance_score,omitempty"`
}

// ChunkID builds the stable composite identity "documentId:chunkIndex".
func ChunkID(documentID string, chunkIndex int) string {
	return fmt.Sprintf("%s:%d", documentID, chunkIndex)
}

// Scored pairs an indexed document of type T with the score and match path
// that produced it. IndexService implementations are generic over T
// (Chunk, ChatMessage, Memory); ScoredChunk is the instantiation the
// retrieval/rerank pipeline operates on.
type Scored[T any] struct {
	Doc       T         `json:"doc"`
	Score     float64   `json:"score"`
	MatchType MatchType `json:"match_type"`
}

// ScoredChunk pairs a Chunk with the match path that produced it, used
// throughout the retrieval/rerank pipeline before the Chunk's own
// RelevanceScore is finalized.
type ScoredChunk = Scored[Chunk]

// WithScore returns a copy of s with Score replaced by score.
func (s Scored[T]) WithScore(score float64) Scored[T] {
	s.Score = score
	return s
}
