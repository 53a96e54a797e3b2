package interfaces

import (
	"context"

	"github.com/anchoredrag/core/internal/types"
)

// Embedder is the contract the core consumes for text vectorization.
// Implementations live in internal/models/embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)
	GetDimensions() int
}

// ChatTurn is a single role/content pair handed to the Generator.
type ChatTurn struct {
	Role    string
	Content string
}

// Generator is the contract for the LLM chat model. Implementations live in
// internal/models/chat.
type Generator interface {
	Chat(ctx context.Context, messages []ChatTurn) (*types.ChatResponse, error)
	ChatStream(ctx context.Context, messages []ChatTurn) (<-chan types.StreamResponse, error)
}

// RerankCandidate is one (index, relevanceScore) pair returned by a Reranker,
// compatible with an Elasticsearch-style Inference API.
type RerankCandidate struct {
	Index          int
	RelevanceScore float64
}

// Reranker is the contract for the cross-encoder reranking backend.
type Reranker interface {
	Rerank(ctx context.Context, modelID, query string, texts []string) ([]RerankCandidate, error)
}
