package memory

import (
	"context"
	"sort"

	"github.com/anchoredrag/core/internal/logger"
	"github.com/anchoredrag/core/internal/types"
	"github.com/anchoredrag/core/internal/types/interfaces"
)

// rank1RRFScore normalizes a fused RRF score the same way
// internal/verify/confidence.go does: rank 1 of RRF_K=60 maps to 1.0.
const rank1RRFScore = 1.0 / 61.0

// Provider implements the "Memory retrieval" algorithm
// (GetRelevantMemories) over the Memory index.
type Provider struct {
	repo     interfaces.MemoryRepository
	index    interfaces.IndexService[types.Memory]
	embedder interfaces.Embedder
	cfg      Config
}

// NewProvider builds a memory Provider.
func NewProvider(repo interfaces.MemoryRepository, index interfaces.IndexService[types.Memory], embedder interfaces.Embedder, cfg Config) *Provider {
	return &Provider{repo: repo, index: index, embedder: embedder, cfg: cfg}
}

// GetRelevantMemories runs a hybrid search over the session's memories and
// ranks them by finalScore = SemanticWeight*crossEncoderScore +
// (1-SemanticWeight)*importance. There is no dedicated cross-encoder
// stack for Memory candidates (the existing one is specialized to document
// chunks), so crossEncoderScore here is the candidate's RRF-fused hybrid
// score normalized the same way retrieval confidence normalizes maxRRF.
func (p *Provider) GetRelevantMemories(ctx context.Context, sessionID, query string, limit int) ([]types.Memory, error) {
	if limit <= 0 {
		return nil, nil
	}
	log := logger.GetLogger(ctx)
	filter := types.Filter{SessionID: sessionID}

	vec, err := p.embedder.Embed(ctx, query)
	if err != nil {
		log.Warnf("memory: embed query for session %s failed: %v", sessionID, err)
	}

	fetchK := limit * 4
	if fetchK < 20 {
		fetchK = 20
	}

	candidates, err := p.index.HybridSearchWithRRF(ctx, filter, query, vec, fetchK)
	if err != nil {
		if err != interfaces.ErrNativeRRFUnsupported {
			return nil, err
		}
		candidates, err = p.fallbackSearch(ctx, filter, query, vec, fetchK)
		if err != nil {
			return nil, err
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	type ranked struct {
		mem   types.Memory
		score float64
	}
	out := make([]ranked, 0, len(candidates))
	for _, c := range candidates {
		crossEncoderScore := c.Score / rank1RRFScore
		if crossEncoderScore > 1.0 {
			crossEncoderScore = 1.0
		}
		finalScore := p.cfg.SemanticWeight*crossEncoderScore + (1-p.cfg.SemanticWeight)*c.Doc.Importance
		out = append(out, ranked{mem: c.Doc, score: finalScore})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].score > out[j].score })
	if len(out) > limit {
		out = out[:limit]
	}

	result := make([]types.Memory, len(out))
	for i, r := range out {
		result[i] = r.mem
		if err := p.repo.TouchLastAccessed(ctx, r.mem.ID); err != nil {
			log.Warnf("memory: touch last accessed for %s failed: %v", r.mem.ID, err)
		}
	}
	return result, nil
}

// fallbackSearch runs vector and keyword search independently and fuses
// them with RRF, mirroring internal/retriever.Retriever's fallback for
// index backends that don't support native hybrid search.
func (p *Provider) fallbackSearch(ctx context.Context, filter types.Filter, query string, vec []float32, topK int) ([]types.Scored[types.Memory], error) {
	vectorResults, err := p.index.VectorSearch(ctx, filter, vec, topK)
	if err != nil {
		return nil, err
	}
	keywordResults, err := p.index.KeywordSearch(ctx, filter, query, topK)
	if err != nil {
		return nil, err
	}

	const rrfK = 60.0
	scores := make(map[string]float64)
	byID := make(map[string]types.Memory)
	for rank, m := range vectorResults {
		scores[m.Doc.ID] += 1.0 / (rrfK + float64(rank) + 1)
		byID[m.Doc.ID] = m.Doc
	}
	for rank, m := range keywordResults {
		scores[m.Doc.ID] += 1.0 / (rrfK + float64(rank) + 1)
		byID[m.Doc.ID] = m.Doc
	}

	fused := make([]types.Scored[types.Memory], 0, len(scores))
	for id, score := range scores {
		fused = append(fused, types.Scored[types.Memory]{Doc: byID[id], Score: score})
	}
	sort.Slice(fused, func(i, j int) bool { return fused[i].Score > fused[j].Score })
	if len(fused) > topK {
		fused = fused[:topK]
	}
	return fused, nil
}
