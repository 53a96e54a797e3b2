package types

// Filter scopes every index operation to a session. SessionID is required:
// its absence is a programmer error.
type Filter struct {
	SessionID string
}

// SearchResult is the outcome of a Hybrid Retriever Search call: the two
// raw ranked lists plus the fused/reranked/diversified final list.
type SearchResult struct {
	VectorResults  []ScoredChunk `json:"vector_results"`
	KeywordResults []ScoredChunk `json:"keyword_results"`
	FinalResults   []ScoredChunk `json:"final_results"`
}

// DistinctDocumentIDs returns the deduplicated, order-preserving document ids
// referenced by FinalResults — the anchor lineage persisted onto an assistant
// message's RetrievedContextJSON.
func (r SearchResult) DistinctDocumentIDs() []string {
	seen := make(map[string]struct{}, len(r.FinalResults))
	ids := make([]string, 0, len(r.FinalResults))
	for _, sc := range r.FinalResults {
		id := sc.Doc.DocumentID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
