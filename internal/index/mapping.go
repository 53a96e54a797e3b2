package index

import (
	estypes "github.com/elastic/go-elasticsearch/v8/typedapi/types"

	"github.com/anchoredrag/core/internal/types"
)

// FieldBoost pairs a text field with its multi_match boost.
type FieldBoost struct {
	Field string
	Boost float64
}

// Mapping describes how to translate between a domain document of type T
// and its Elasticsearch representation, and which fields the generic
// IndexService implementation should query against. One Mapping value backs
// each of the three indices (chunks, chat-messages, memories); the service
// itself (service.go) is generic over T and knows nothing domain-specific.
type Mapping[T any] struct {
	IndexName      string
	Properties     map[string]estypes.Property // explicit schema for Indices.PutMapping
	EmbeddingField string                       // vector field name searched by VectorSearch
	KeywordFields  []FieldBoost                 // multi_match fields+boosts searched by KeywordSearch

	IDOf   func(doc T) string
	Encode func(doc T) (map[string]any, error)
	Decode func(id string, source []byte, score float64, matchType types.MatchType) (types.Scored[T], error)
}
