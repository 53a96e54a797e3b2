package index

import (
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	estypes "github.com/elastic/go-elasticsearch/v8/typedapi/types"

	"github.com/anchoredrag/core/internal/types"
)

type chatMessageDoc struct {
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

// NewChatMessageIndex builds the Search Index Abstraction for the
// chat-messages index (reference name "notebooklm-chat-messages"),
// consumed by the Query Reformulator's semantic-history search.
func NewChatMessageIndex(client *elasticsearch.TypedClient, indexName string, dims int) *Service[types.ChatMessage] {
	return New(client, Mapping[types.ChatMessage]{
		IndexName:      indexName,
		EmbeddingField: "embedding",
		KeywordFields:  []FieldBoost{{Field: "content", Boost: 1}},
		Properties: map[string]estypes.Property{
			"session_id": estypes.NewKeywordProperty(),
			"role":       estypes.NewKeywordProperty(),
			"content":    estypes.NewTextProperty(),
			"embedding":  denseVector(dims),
			"timestamp":  estypes.NewLongNumberProperty(),
		},
		IDOf: func(m types.ChatMessage) string { return m.ID },
		Encode: func(m types.ChatMessage) (map[string]any, error) {
			return toMap(chatMessageDoc{
				SessionID: m.SessionID,
				Role:      string(m.Role),
				Content:   m.Content,
				Embedding: m.Embedding,
				Timestamp: m.EpochTimestamp(),
			})
		},
		Decode: func(id string, source []byte, score float64, matchType types.MatchType) (types.Scored[types.ChatMessage], error) {
			var doc chatMessageDoc
			if err := json.Unmarshal(source, &doc); err != nil {
				return types.Scored[types.ChatMessage]{}, fmt.Errorf("chat-message index: decode: %w", err)
			}
			return types.Scored[types.ChatMessage]{
				Doc: types.ChatMessage{
					ID:        id,
					SessionID: doc.SessionID,
					Role:      types.Role(doc.Role),
					Content:   doc.Content,
					Embedding: doc.Embedding,
					Timestamp: doc.Timestamp,
				},
				Score:     score,
				MatchType: matchType,
			}, nil
		},
	})
}
