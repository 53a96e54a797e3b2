// Package retriever implements the Hybrid Retriever: kNN + BM25 +
// application-side Reciprocal Rank Fusion, session-filtered, followed by the
// Reranking Stack. The vector and keyword searches fan out concurrently via
// errgroup rather than a hand-rolled sync.WaitGroup+channel pair.
package retriever

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/anchoredrag/core/internal/fusion"
	"github.com/anchoredrag/core/internal/logger"
	"github.com/anchoredrag/core/internal/types"
	"github.com/anchoredrag/core/internal/types/interfaces"
)

// Reranker is the combined Cross-Encoder -> Diversity reranking stack,
// injected so this package stays decoupled from internal/rerank's types.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []types.ScoredChunk, topK int) ([]types.ScoredChunk, error)
}

// Config holds the "Retrieval" tunables.
type Config struct {
	RRFK                   int
	CandidatesMultiplier   int
	SourceAnchoringEnabled bool
	SourceAnchoringBoost   float64
	RetrievalTimeout       time.Duration
}

// queryInstructionPrefix steers the embedder toward the asymmetric
// query/passage distinction most retrieval embedding models expect.
const queryInstructionPrefix = "Represent this question for retrieving relevant passages: "

// DefaultConfig is the reference retrieval configuration.
func DefaultConfig() Config {
	return Config{
		RRFK:                   fusion.RRFConstant,
		CandidatesMultiplier:   2,
		SourceAnchoringEnabled: true,
		SourceAnchoringBoost:   0.3,
		RetrievalTimeout:       5 * time.Second,
	}
}

// Retriever implements Search(sessionId, query, mode, anchorDocIds).
type Retriever struct {
	chunkIndex interfaces.IndexService[types.Chunk]
	embedder   interfaces.Embedder
	reranker   Reranker
	cfg        Config
}

// New constructs a Retriever over the chunk index.
func New(chunkIndex interfaces.IndexService[types.Chunk], embedder interfaces.Embedder, reranker Reranker, cfg Config) *Retriever {
	return &Retriever{chunkIndex: chunkIndex, embedder: embedder, reranker: reranker, cfg: cfg}
}

// Search runs the full hybrid-retrieve-then-rerank pipeline.
func (r *Retriever) Search(ctx context.Context, sessionID, query string, mode types.Mode, anchorDocIDs []string) (types.SearchResult, error) {
	if sessionID == "" {
		panic("retriever: Search called without sessionId")
	}
	log := logger.GetLogger(ctx)

	topK := mode.TopK()
	candidatePool := topK * r.cfg.CandidatesMultiplier
	filter := types.Filter{SessionID: sessionID}

	queryVector, embedErr := r.embedder.Embed(ctx, queryInstructionPrefix+query)
	if embedErr != nil || len(queryVector) == 0 {
		log.Warnf("retriever: embedding unavailable for session %s, degrading to keyword-only: %v", sessionID, embedErr)
		keywordOnly, err := r.chunkIndex.KeywordSearch(ctx, filter, query, topK)
		if err != nil {
			return types.SearchResult{}, err
		}
		return types.SearchResult{KeywordResults: keywordOnly, FinalResults: keywordOnly}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.RetrievalTimeout)
	defer cancel()

	var vectorResults, keywordResults []types.ScoredChunk
	var vectorErr, keywordErr error

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vectorResults, vectorErr = r.chunkIndex.VectorSearch(gCtx, filter, queryVector, candidatePool)
		return nil // collected, not propagated: a single path failing degrades rather than aborts
	})
	g.Go(func() error {
		keywordResults, keywordErr = r.chunkIndex.KeywordSearch(gCtx, filter, query, candidatePool)
		return nil
	})
	_ = g.Wait()

	switch {
	case vectorErr != nil && keywordErr != nil:
		return types.SearchResult{}, vectorErr
	case vectorErr != nil:
		log.Warnf("retriever: vector search failed, degrading to keyword-only: %v", vectorErr)
		vectorResults = nil
	case keywordErr != nil:
		log.Warnf("retriever: keyword search failed, degrading to vector-only: %v", keywordErr)
		keywordResults = nil
	}

	rrfK := r.cfg.RRFK
	if rrfK <= 0 {
		rrfK = fusion.RRFConstant
	}
	fused := fusion.FuseRRF(vectorResults, keywordResults, rrfK, func(c types.Chunk) string { return c.ID })
	if r.cfg.SourceAnchoringEnabled {
		fused = ApplyAnchorBoost(fused, anchorDocIDs, r.cfg.SourceAnchoringBoost)
	}

	rerankInput := fused
	if limit := topK * 2; len(rerankInput) > limit {
		rerankInput = rerankInput[:limit]
	}

	final, err := r.reranker.Rerank(ctx, query, rerankInput, topK)
	if err != nil {
		// Reranking Stack already guarantees a pass-through fallback;
		// this branch only triggers on a programming error upstream of it.
		log.Errorf("retriever: rerank returned an error, using fused order: %v", err)
		final = rerankInput
		if len(final) > topK {
			final = final[:topK]
		}
	}

	for i := range final {
		final[i].Doc.RelevanceScore = final[i].Score
	}

	return types.SearchResult{
		VectorResults:  vectorResults,
		KeywordResults: keywordResults,
		FinalResults:   final,
	}, nil
}
