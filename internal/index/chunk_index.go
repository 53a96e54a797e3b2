package index

import (
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	estypes "github.com/elastic/go-elasticsearch/v8/typedapi/types"

	"github.com/anchoredrag/core/internal/types"
)

// chunkDoc is the Elasticsearch-side shape of an indexed Chunk.
type chunkDoc struct {
	SessionID          string    `json:"session_id"`
	DocumentID         string    `json:"document_id"`
	FileName           string    `json:"file_name"`
	ChunkIndex         int       `json:"chunk_index"`
	Content            string    `json:"content"`
	DocumentTitle      string    `json:"document_title"`
	SectionTitle       string    `json:"section_title"`
	SectionBreadcrumb  []string  `json:"section_breadcrumb"`
	TitleEmbedding     []float32 `json:"title_embedding,omitempty"`
	ContentEmbedding   []float32 `json:"content_embedding,omitempty"`
	AssociatedImageIDs []string  `json:"associated_image_ids,omitempty"`
	TokenCount         int       `json:"token_count"`
}

// NewChunkIndex builds the Search Index Abstraction for the chunks index
// (reference name "notebooklm-chunks"), field-boosted:
// documentTitle^3, sectionTitle^2, fileName^1.5, content^1.
func NewChunkIndex(client *elasticsearch.TypedClient, indexName string, dims int) *Service[types.Chunk] {
	dimsInt := dims
	return New(client, Mapping[types.Chunk]{
		IndexName:      indexName,
		EmbeddingField: "content_embedding",
		KeywordFields: []FieldBoost{
			{Field: "document_title", Boost: 3},
			{Field: "section_title", Boost: 2},
			{Field: "file_name", Boost: 1.5},
			{Field: "content", Boost: 1},
		},
		Properties: map[string]estypes.Property{
			"session_id":        estypes.NewKeywordProperty(),
			"document_id":       estypes.NewKeywordProperty(),
			"file_name":         estypes.NewTextProperty(),
			"document_title":    estypes.NewTextProperty(),
			"section_title":     estypes.NewTextProperty(),
			"content":           estypes.NewTextProperty(),
			"content_embedding": denseVector(dimsInt),
			"title_embedding":   denseVector(dimsInt),
		},
		IDOf: func(c types.Chunk) string { return c.ID },
		Encode: func(c types.Chunk) (map[string]any, error) {
			return toMap(chunkDoc{
				SessionID:          c.SessionID,
				DocumentID:         c.DocumentID,
				FileName:           c.FileName,
				ChunkIndex:         c.ChunkIndex,
				Content:            c.Content,
				DocumentTitle:      c.DocumentTitle,
				SectionTitle:       c.SectionTitle,
				SectionBreadcrumb:  c.SectionBreadcrumb,
				TitleEmbedding:     c.TitleEmbedding,
				ContentEmbedding:   c.ContentEmbedding,
				AssociatedImageIDs: c.AssociatedImageIDs,
				TokenCount:         c.TokenCount,
			})
		},
		Decode: func(id string, source []byte, score float64, matchType types.MatchType) (types.Scored[types.Chunk], error) {
			var doc chunkDoc
			if err := json.Unmarshal(source, &doc); err != nil {
				return types.Scored[types.Chunk]{}, fmt.Errorf("chunk index: decode: %w", err)
			}
			return types.Scored[types.Chunk]{
				Doc: types.Chunk{
					ID:                 id,
					SessionID:          doc.SessionID,
					DocumentID:         doc.DocumentID,
					FileName:           doc.FileName,
					ChunkIndex:         doc.ChunkIndex,
					Content:            doc.Content,
					DocumentTitle:      doc.DocumentTitle,
					SectionTitle:       doc.SectionTitle,
					SectionBreadcrumb:  doc.SectionBreadcrumb,
					TitleEmbedding:     doc.TitleEmbedding,
					ContentEmbedding:   doc.ContentEmbedding,
					AssociatedImageIDs: doc.AssociatedImageIDs,
					TokenCount:         doc.TokenCount,
				},
				Score:     score,
				MatchType: matchType,
			}, nil
		},
	})
}

func denseVector(dims int) *estypes.DenseVectorProperty {
	prop := estypes.NewDenseVectorProperty()
	prop.Dims = &dims
	return prop
}

func toMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
