package index

import (
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	estypes "github.com/elastic/go-elasticsearch/v8/typedapi/types"

	"github.com/anchoredrag/core/internal/types"
)

type memoryDoc struct {
	SessionID     string    `json:"session_id"`
	MemoryContent string    `json:"memory_content"`
	MemoryType    string    `json:"memory_type"`
	Importance    float64   `json:"importance"`
	Embedding     []float32 `json:"embedding,omitempty"`
}

// NewMemoryIndex builds the Search Index Abstraction for the memories index
// (reference name "notebooklm-memories"), consumed by
// GetRelevantMemories.
func NewMemoryIndex(client *elasticsearch.TypedClient, indexName string, dims int) *Service[types.Memory] {
	return New(client, Mapping[types.Memory]{
		IndexName:      indexName,
		EmbeddingField: "embedding",
		KeywordFields:  []FieldBoost{{Field: "memory_content", Boost: 1}},
		Properties: map[string]estypes.Property{
			"session_id":     estypes.NewKeywordProperty(),
			"memory_content": estypes.NewTextProperty(),
			"memory_type":    estypes.NewKeywordProperty(),
			"importance":     estypes.NewDoubleNumberProperty(),
			"embedding":      denseVector(dims),
		},
		IDOf: func(m types.Memory) string { return m.ID },
		Encode: func(m types.Memory) (map[string]any, error) {
			return toMap(memoryDoc{
				SessionID:     m.SessionID,
				MemoryContent: m.MemoryContent,
				MemoryType:    string(m.MemoryType),
				Importance:    m.Importance,
				Embedding:     m.Embedding,
			})
		},
		Decode: func(id string, source []byte, score float64, matchType types.MatchType) (types.Scored[types.Memory], error) {
			var doc memoryDoc
			if err := json.Unmarshal(source, &doc); err != nil {
				return types.Scored[types.Memory]{}, fmt.Errorf("memory index: decode: %w", err)
			}
			return types.Scored[types.Memory]{
				Doc: types.Memory{
					ID:            id,
					SessionID:     doc.SessionID,
					MemoryContent: doc.MemoryContent,
					MemoryType:    types.MemoryType(doc.MemoryType),
					Importance:    doc.Importance,
					Embedding:     doc.Embedding,
				},
				Score:     score,
				MatchType: matchType,
			}, nil
		},
	})
}
