// Package index implements the generic Search Index Abstraction over
// Elasticsearch v8. One generic Service[T] backs all three indices (chunks,
// chat-messages, memories); only the Mapping[T] passed to New differs per
// index.
package index

import (
	"context"
	"encoding/json"
	"fmt"

	apperrors "github.com/anchoredrag/core/internal/errors"
	"github.com/anchoredrag/core/internal/logger"
	"github.com/anchoredrag/core/internal/tracing"
	"github.com/anchoredrag/core/internal/types"
	"github.com/anchoredrag/core/internal/types/interfaces"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/typedapi/core/search"
	estypes "github.com/elastic/go-elasticsearch/v8/typedapi/types"
)

// Service is the generic Elasticsearch-backed IndexService implementation.
type Service[T any] struct {
	client  *elasticsearch.TypedClient
	mapping Mapping[T]
}

// New constructs a Service for the given mapping. It does not create the
// index; callers call InitIndex explicitly (idempotent).
func New[T any](client *elasticsearch.TypedClient, mapping Mapping[T]) *Service[T] {
	return &Service[T]{client: client, mapping: mapping}
}

var _ interfaces.IndexService[types.Chunk] = (*Service[types.Chunk])(nil)

// InitIndex idempotently creates the index with its configured schema.
func (s *Service[T]) InitIndex(ctx context.Context) error {
	log := logger.GetLogger(ctx)
	exists, err := s.client.Indices.Exists(s.mapping.IndexName).Do(ctx)
	if err != nil {
		return classifyESError(err)
	}
	if exists {
		log.Debugf("index %s already exists", s.mapping.IndexName)
		return nil
	}

	if _, err := s.client.Indices.Create(s.mapping.IndexName).Do(ctx); err != nil {
		return classifyESError(err)
	}

	if len(s.mapping.Properties) > 0 {
		if _, err := s.client.Indices.PutMapping(s.mapping.IndexName).
			Properties(s.mapping.Properties).Do(ctx); err != nil {
			return classifyESError(err)
		}
	}

	log.Infof("created index %s", s.mapping.IndexName)
	return nil
}

// Index bulk-writes docs and reports per-item outcome. A batch of at least
// 10 docs with more than 10% item failures is reported as an error via
// IndexResult, rather than purely logged.
func (s *Service[T]) Index(ctx context.Context, docs []T) (interfaces.IndexResult, error) {
	ctx, span := tracing.ContextWithSpan(ctx, "index.Service.Index")
	defer span.End()
	if len(docs) == 0 {
		return interfaces.IndexResult{}, nil
	}

	bulk := s.client.Bulk().Index(s.mapping.IndexName)
	for _, doc := range docs {
		body, err := s.mapping.Encode(doc)
		if err != nil {
			return interfaces.IndexResult{}, fmt.Errorf("index: encode doc: %w", err)
		}
		id := s.mapping.IDOf(doc)
		if err := bulk.IndexOp(estypes.IndexOperation{Id_: &id}, body); err != nil {
			return interfaces.IndexResult{}, fmt.Errorf("index: bulk op: %w", err)
		}
	}

	resp, err := bulk.Do(ctx)
	span.RecordError(err)
	if err != nil {
		return interfaces.IndexResult{}, classifyESError(err)
	}

	result := interfaces.IndexResult{}
	for _, item := range resp.Items {
		for _, bri := range item {
			if bri.Error_ != nil {
				result.Failed++
				reason := ""
				if bri.Error_.Reason != nil {
					reason = *bri.Error_.Reason
				}
				result.Errors = append(result.Errors, fmt.Errorf("index: bulk item failed: %s", reason))
			} else {
				result.Indexed++
			}
		}
	}

	if len(docs) >= 10 && result.Failed*10 > len(docs) {
		return result, apperrors.NewDataIntegrityError(
			fmt.Sprintf("index: %d/%d items failed in batch, exceeds 10%% threshold", result.Failed, len(docs)))
	}
	return result, nil
}

// VectorSearch runs a cosine-similarity script-score query over the mapped
// embedding field, always scoped by filter.SessionID.
func (s *Service[T]) VectorSearch(ctx context.Context, filter types.Filter, queryVector []float32, topK int) ([]types.Scored[T], error) {
	ctx, span := tracing.ContextWithSpan(ctx, "index.Service.VectorSearch")
	defer span.End()
	if filter.SessionID == "" {
		panic("index: VectorSearch called without sessionId filter")
	}
	if len(queryVector) == 0 {
		return nil, nil
	}

	numCandidates := topK * 2
	if numCandidates < 50 {
		numCandidates = 50
	}

	vectorJSON, err := json.Marshal(queryVector)
	if err != nil {
		return nil, fmt.Errorf("index: marshal query vector: %w", err)
	}

	scoreSource := fmt.Sprintf("cosineSimilarity(params.query_vector, '%s') + 1.0", s.mapping.EmbeddingField)
	sessionFilter := estypes.Query{
		Term: map[string]estypes.TermQuery{"session_id": {Value: filter.SessionID}},
	}

	req := &search.Request{
		Query: &estypes.Query{
			ScriptScore: &estypes.ScriptScoreQuery{
				Query: estypes.Query{Bool: &estypes.BoolQuery{Filter: []estypes.Query{sessionFilter}}},
				Script: estypes.Script{
					Source: &scoreSource,
					Params: map[string]json.RawMessage{"query_vector": vectorJSON},
				},
			},
		},
		Size: intPtr(numCandidates),
	}

	resp, err := s.client.Search().Index(s.mapping.IndexName).Request(req).Do(ctx)
	span.RecordError(err)
	if err != nil {
		return nil, classifyESError(err)
	}

	results := make([]types.Scored[T], 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		score := 0.0
		if hit.Score_ != nil {
			score = float64(*hit.Score_)
		}
		scored, err := s.mapping.Decode(*hit.Id_, hit.Source_, score, types.MatchTypeVector)
		if err != nil {
			logger.GetLogger(ctx).Errorf("index: decode hit: %v", err)
			continue
		}
		results = append(results, scored)
	}
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// KeywordSearch runs a BM25 multi_match query over the mapped keyword
// fields, always scoped by filter.SessionID.
func (s *Service[T]) KeywordSearch(ctx context.Context, filter types.Filter, query string, topK int) ([]types.Scored[T], error) {
	ctx, span := tracing.ContextWithSpan(ctx, "index.Service.KeywordSearch")
	defer span.End()
	if filter.SessionID == "" {
		panic("index: KeywordSearch called without sessionId filter")
	}

	fields := make([]string, 0, len(s.mapping.KeywordFields))
	for _, fb := range s.mapping.KeywordFields {
		if fb.Boost != 0 && fb.Boost != 1 {
			fields = append(fields, fmt.Sprintf("%s^%g", fb.Field, fb.Boost))
		} else {
			fields = append(fields, fb.Field)
		}
	}

	sessionFilter := estypes.Query{
		Term: map[string]estypes.TermQuery{"session_id": {Value: filter.SessionID}},
	}
	multiMatch := estypes.Query{
		MultiMatch: &estypes.MultiMatchQuery{Query: query, Fields: fields},
	}

	req := &search.Request{
		Query: &estypes.Query{
			Bool: &estypes.BoolQuery{
				Filter: []estypes.Query{sessionFilter},
				Must:   []estypes.Query{multiMatch},
			},
		},
		Size: intPtr(topK),
	}

	resp, err := s.client.Search().Index(s.mapping.IndexName).Request(req).Do(ctx)
	span.RecordError(err)
	if err != nil {
		return nil, classifyESError(err)
	}

	results := make([]types.Scored[T], 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		score := 0.0
		if hit.Score_ != nil {
			score = float64(*hit.Score_)
		}
		scored, err := s.mapping.Decode(*hit.Id_, hit.Source_, score, types.MatchTypeKeyword)
		if err != nil {
			logger.GetLogger(ctx).Errorf("index: decode hit: %v", err)
			continue
		}
		results = append(results, scored)
	}
	return results, nil
}

// HybridSearchWithRRF is the optional native-RRF fast path. The
// Elasticsearch client version this module targets does not expose a
// retriever DSL for it, so this implementation always signals unsupported;
// the Hybrid Retriever falls back to application-side fusion (see
// DESIGN.md).
func (s *Service[T]) HybridSearchWithRRF(ctx context.Context, filter types.Filter, query string, queryVector []float32, topK int) ([]types.Scored[T], error) {
	return nil, interfaces.ErrNativeRRFUnsupported
}

// DeleteBy is idempotent and forces a refresh before returning.
func (s *Service[T]) DeleteBy(ctx context.Context, filter types.Filter) error {
	if filter.SessionID == "" {
		panic("index: DeleteBy called without sessionId filter")
	}

	_, err := s.client.DeleteByQuery(s.mapping.IndexName).Query(&estypes.Query{
		Term: map[string]estypes.TermQuery{"session_id": {Value: filter.SessionID}},
	}).Do(ctx)
	if err != nil {
		return classifyESError(err)
	}
	return s.Refresh(ctx)
}

// Refresh makes prior writes visible to subsequent reads.
func (s *Service[T]) Refresh(ctx context.Context) error {
	_, err := s.client.Indices.Refresh().Index(s.mapping.IndexName).Do(ctx)
	if err != nil {
		return classifyESError(err)
	}
	return nil
}

func intPtr(i int) *int { return &i }
