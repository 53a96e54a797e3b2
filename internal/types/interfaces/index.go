// Package interfaces collects the contracts the retrieval core consumes from
// its external collaborators (search index, embedder, generator, reranker,
// relational repositories) without depending on any concrete implementation.
package interfaces

import (
	"context"
	"errors"

	"github.com/anchoredrag/core/internal/types"
)

// ErrNativeRRFUnsupported signals HybridSearchWithRRF has no fast path; the
// caller falls back to application-side fusion.
var ErrNativeRRFUnsupported = errors.New("index: native RRF retriever not supported")

// IndexResult is the per-batch outcome of a bulk Index call.
type IndexResult struct {
	Indexed int
	Failed  int
	Errors  []error
}

// IndexService is the generic Search Index Abstraction contract,
// implemented once per indexed document type T (Chunk, ChatMessage, Memory).
type IndexService[T any] interface {
	// InitIndex idempotently creates the index with its schema.
	InitIndex(ctx context.Context) error

	// Index bulk-writes docs, reporting per-item outcome.
	Index(ctx context.Context, docs []T) (IndexResult, error)

	// VectorSearch runs kNN over the embedding field, always scoped by filter.SessionID.
	VectorSearch(ctx context.Context, filter types.Filter, queryVector []float32, topK int) ([]types.Scored[T], error)

	// KeywordSearch runs BM25 over analyzed text fields, always scoped by filter.SessionID.
	KeywordSearch(ctx context.Context, filter types.Filter, query string, topK int) ([]types.Scored[T], error)

	// HybridSearchWithRRF is the optional native-RRF fast path; implementations
	// that lack one return (nil, ErrNativeRRFUnsupported) so callers fall back
	// to application-side fusion.
	HybridSearchWithRRF(ctx context.Context, filter types.Filter, query string, queryVector []float32, topK int) ([]types.Scored[T], error)

	// DeleteBy is idempotent and forces a refresh before returning.
	DeleteBy(ctx context.Context, filter types.Filter) error

	// Refresh makes prior writes visible to subsequent reads.
	Refresh(ctx context.Context) error
}
