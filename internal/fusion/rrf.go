// Package fusion implements application-side Reciprocal Rank Fusion,
// shared by the Hybrid Retriever and the Query Reformulator's
// semantic-history search.
// Generic over the indexed document type so both chunks and chat messages
// reuse one fusion implementation.
package fusion

import (
	"sort"

	"github.com/anchoredrag/core/internal/types"
)

// RRFConstant is rrfK's default from the reference configuration.
const RRFConstant = 60

// FuseRRF combines the vector and keyword ranked lists with Reciprocal Rank
// Fusion: score(doc) += 1/(rrfK + rank), ranks are 1-based, and a document
// appearing in both lists sums its contributions. Ties are broken by id
// ascending so the fusion is deterministic.
func FuseRRF[T any](vector, keyword []types.Scored[T], rrfK int, idOf func(T) string) []types.Scored[T] {
	scores := make(map[string]float64)
	docs := make(map[string]T)
	matchTypes := make(map[string]types.MatchType)

	accumulate := func(list []types.Scored[T]) {
		for rank, s := range list {
			id := idOf(s.Doc)
			if id == "" {
				continue
			}
			scores[id] += 1.0 / float64(rrfK+rank+1)
			if _, ok := docs[id]; !ok {
				docs[id] = s.Doc
				matchTypes[id] = s.MatchType
			}
		}
	}
	accumulate(vector)
	accumulate(keyword)

	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if scores[ids[i]] != scores[ids[j]] {
			return scores[ids[i]] > scores[ids[j]]
		}
		return ids[i] < ids[j]
	})

	out := make([]types.Scored[T], 0, len(ids))
	for _, id := range ids {
		out = append(out, types.Scored[T]{Doc: docs[id], Score: scores[id], MatchType: matchTypes[id]})
	}
	return out
}
