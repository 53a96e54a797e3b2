package verify

import (
	"strings"

	"github.com/anchoredrag/core/internal/types"
)

// ConfidenceWeights are the weighted-sum coefficients and level
// thresholds, all configurable.
type ConfidenceWeights struct {
	MaxRRFWeight    float64
	AgreementWeight float64
	CoverageWeight  float64
	DiversityWeight float64
	HighThreshold   float64
	MediumThreshold float64
}

// DefaultConfidenceWeights matches the reference weights (0.4/0.3/0.2/0.1)
// and level buckets (HIGH >= 0.7, MEDIUM >= 0.4).
func DefaultConfidenceWeights() ConfidenceWeights {
	return ConfidenceWeights{
		MaxRRFWeight: 0.4, AgreementWeight: 0.3, CoverageWeight: 0.2, DiversityWeight: 0.1,
		HighThreshold: 0.7, MediumThreshold: 0.4,
	}
}

// rank1RRFScore is 1/(RRF_K+1) for RRF_K=60, the normalization denominator
// that maps a rank-1 RRF score to 1.0.
const rank1RRFScore = 1.0 / 61.0

// Confidence computes the Retrieval Confidence for one search result,
// given the original query text.
func Confidence(query string, result types.SearchResult, tokenizer *QueryTokenizer, weights ConfidenceWeights) types.RetrievalConfidence {
	maxRRF := 0.0
	if len(result.FinalResults) > 0 {
		maxRRF = result.FinalResults[0].Score / rank1RRFScore
		if maxRRF > 1.0 {
			maxRRF = 1.0
		}
	}

	agreement := jaccardTop10(result.VectorResults, result.KeywordResults)
	coverage := queryCoverage(query, result.FinalResults, tokenizer)
	diversity := diversityScore(result.FinalResults)

	score := weights.MaxRRFWeight*maxRRF + weights.AgreementWeight*agreement +
		weights.CoverageWeight*coverage + weights.DiversityWeight*diversity

	level := types.ConfidenceLow
	if score >= weights.HighThreshold {
		level = types.ConfidenceHigh
	} else if score >= weights.MediumThreshold {
		level = types.ConfidenceMedium
	}

	return types.RetrievalConfidence{
		MaxRRF: maxRRF, Agreement: agreement, Coverage: coverage, Diversity: diversity,
		Score: score, Level: level,
	}
}

func jaccardTop10(vector, keyword []types.ScoredChunk) float64 {
	vectorIDs := topIDs(vector, 10)
	keywordIDs := topIDs(keyword, 10)
	if len(vectorIDs) == 0 && len(keywordIDs) == 0 {
		return 0
	}

	union := make(map[string]struct{}, len(vectorIDs)+len(keywordIDs))
	for id := range vectorIDs {
		union[id] = struct{}{}
	}
	for id := range keywordIDs {
		union[id] = struct{}{}
	}

	intersection := 0
	for id := range vectorIDs {
		if _, ok := keywordIDs[id]; ok {
			intersection++
		}
	}
	if len(union) == 0 {
		return 0
	}
	return float64(intersection) / float64(len(union))
}

func topIDs(list []types.ScoredChunk, n int) map[string]struct{} {
	if len(list) > n {
		list = list[:n]
	}
	ids := make(map[string]struct{}, len(list))
	for _, sc := range list {
		ids[sc.Doc.ID] = struct{}{}
	}
	return ids
}

func queryCoverage(query string, finalResults []types.ScoredChunk, tokenizer *QueryTokenizer) float64 {
	if len(finalResults) == 0 || tokenizer == nil {
		return 0
	}
	terms := tokenizer.ContentTerms(query)
	if len(terms) == 0 {
		return 0
	}

	content := strings.ToLower(finalResults[0].Doc.Content)
	matched := 0
	for _, term := range terms {
		if strings.Contains(content, term) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}

func diversityScore(finalResults []types.ScoredChunk) float64 {
	if len(finalResults) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(finalResults))
	for _, sc := range finalResults {
		seen[sc.Doc.DocumentID] = struct{}{}
	}
	d := float64(len(seen)) / 5.0
	if d > 1.0 {
		d = 1.0
	}
	return d
}
