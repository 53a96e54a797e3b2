// Package ingest implements the Ingestion Pipeline: ProcessDocument
// is the sole writer of chunk index entries for a documentId, idempotent per
// the status-gate re-entrancy rule.
package ingest

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/anchoredrag/core/internal/common"
	apperrors "github.com/anchoredrag/core/internal/errors"
	"github.com/anchoredrag/core/internal/ingest/chunker"
	"github.com/anchoredrag/core/internal/logger"
	"github.com/anchoredrag/core/internal/resilience"
	"github.com/anchoredrag/core/internal/types"
	"github.com/anchoredrag/core/internal/types/interfaces"
)

// Config holds the chunking/embedding tunables this pipeline consumes.
type Config struct {
	MaxChunkChars      int
	DropRatioThreshold float64 // fail the document if more than this fraction of chunks drop
	MinBatchForRatio   int     // the 10%-drop rule only applies at or above this chunk count
}

// DefaultConfig matches the reference thresholds.
func DefaultConfig() Config {
	return Config{MaxChunkChars: 3500, DropRatioThreshold: 0.10, MinBatchForRatio: 10}
}

// Pipeline implements ProcessDocument(documentId, bytes).
type Pipeline struct {
	documents  interfaces.DocumentRepository
	chunkIndex interfaces.IndexService[types.Chunk]
	embedder   interfaces.Embedder
	registry   *chunker.Registry
	cfg        Config
}

// New constructs a Pipeline.
func New(documents interfaces.DocumentRepository, chunkIndex interfaces.IndexService[types.Chunk], embedder interfaces.Embedder, registry *chunker.Registry, cfg Config) *Pipeline {
	return &Pipeline{documents: documents, chunkIndex: chunkIndex, embedder: embedder, registry: registry, cfg: cfg}
}

const statusGateRetries = 3

// ProcessDocument runs the full ingestion algorithm. Any unchecked error along
// the way ends with the document in Failed status and processingError set,
// per the documented failure semantics; ProcessDocument itself never
// returns an error to its caller, since it's expected to be invoked from an
// asynchronous worker that only cares whether the row moved.
func (p *Pipeline) ProcessDocument(ctx context.Context, documentID string, raw []byte) {
	doc, err := p.documents.Get(ctx, documentID)
	if err != nil {
		logger.Errorf(ctx, "ingest: load document %s: %v", documentID, err)
		return
	}

	if !p.transitionToProcessing(ctx, documentID) {
		return
	}

	if err := p.process(ctx, doc, raw); err != nil {
		logger.Errorf(ctx, "ingest: document %s failed: %v", documentID, err)
		if setErr := p.documents.SetFailed(ctx, documentID, err.Error()); setErr != nil {
			logger.Errorf(ctx, "ingest: mark document %s failed: %v", documentID, setErr)
		}
	}
}

// transitionToProcessing performs the retried Pending->Processing status
// gate: up to 3 attempts, exponential backoff 100ms*attempt,
// on lock contention. A CAS that reports false without an error means some
// other worker already owns the document (or it isn't Pending), so this is
// not itself a failure worth recording.
func (p *Pipeline) transitionToProcessing(ctx context.Context, documentID string) bool {
	for attempt := 1; attempt <= statusGateRetries; attempt++ {
		ok, err := p.documents.CompareAndSwapStatus(ctx, documentID, types.DocumentStatusPending, types.DocumentStatusProcessing)
		if err == nil {
			if !ok {
				logger.Warnf(ctx, "ingest: document %s not in Pending status, skipping", documentID)
			}
			return ok
		}
		if attempt == statusGateRetries {
			logger.Errorf(ctx, "ingest: status gate for document %s exhausted retries: %v", documentID, err)
			return false
		}
		select {
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		case <-ctx.Done():
			return false
		}
	}
	return false
}

func (p *Pipeline) process(ctx context.Context, doc *types.Document, raw []byte) error {
	strategy := p.registry.Select(doc.MimeType)
	if strategy == nil {
		return fmt.Errorf("ingest: no chunking strategy supports mime type %q", doc.MimeType)
	}

	rawChunks, images, _, err := strategy.Chunk(raw)
	if err != nil {
		return fmt.Errorf("ingest: chunk document: %w", err)
	}
	if len(rawChunks) == 0 {
		return fmt.Errorf("ingest: strategy produced no chunks")
	}

	imagesByID := make(map[string]chunker.ExtractedImage, len(images))
	for _, img := range images {
		imagesByID[img.ID] = img
	}
	documentTitle := deriveDocumentTitle(rawChunks, doc.FileName)

	chunks := make([]types.Chunk, len(rawChunks))
	titleTexts := make([]string, len(rawChunks))
	contentTexts := make([]string, len(rawChunks))
	for i, rc := range rawChunks {
		sectionTitle := strings.Join(rc.SectionBreadcrumb, " > ")
		cleanContent := common.CleanInvalidUTF8(rc.Content)
		contentToEmbed := cleanContent
		if len(rc.AssociatedImageIDs) > 0 {
			contentToEmbed = cleanContent + "\n\n" + imageMarkers(rc.AssociatedImageIDs, imagesByID)
		}

		chunks[i] = types.Chunk{
			ID:                 types.ChunkID(doc.ID, i),
			SessionID:          doc.SessionID,
			DocumentID:         doc.ID,
			FileName:           doc.FileName,
			ChunkIndex:         i,
			Content:            truncateChars(cleanContent, p.cfg.MaxChunkChars),
			DocumentTitle:      documentTitle,
			SectionTitle:       sectionTitle,
			SectionBreadcrumb:  rc.SectionBreadcrumb,
			AssociatedImageIDs: rc.AssociatedImageIDs,
			TokenCount:         types.EstimateTokenCount(cleanContent),
		}
		titleTexts[i] = strings.TrimSpace(documentTitle + " " + sectionTitle)
		contentTexts[i] = contentToEmbed
	}

	titleVectors, err := p.batchEmbed(ctx, titleTexts)
	if err != nil {
		return fmt.Errorf("ingest: embed titles: %w", err)
	}
	contentVectors, err := p.batchEmbed(ctx, contentTexts)
	if err != nil {
		return fmt.Errorf("ingest: embed content: %w", err)
	}
	if len(titleVectors) != len(chunks) || len(contentVectors) != len(chunks) {
		return apperrors.NewDataIntegrityError(fmt.Sprintf(
			"ingest: embedding batch size mismatch: chunks=%d titles=%d contents=%d",
			len(chunks), len(titleVectors), len(contentVectors)))
	}

	valid := make([]types.Chunk, 0, len(chunks))
	for i := range chunks {
		if len(titleVectors[i]) == 0 || len(contentVectors[i]) == 0 {
			continue
		}
		chunks[i].TitleEmbedding = titleVectors[i]
		chunks[i].ContentEmbedding = contentVectors[i]
		valid = append(valid, chunks[i])
	}

	dropped := len(chunks) - len(valid)
	if len(valid) == 0 {
		return apperrors.NewDataIntegrityError("ingest: every chunk lost its embedding")
	}
	if len(chunks) >= p.cfg.MinBatchForRatio {
		if ratio := float64(dropped) / float64(len(chunks)); ratio > p.cfg.DropRatioThreshold {
			return apperrors.NewDataIntegrityError(fmt.Sprintf(
				"ingest: dropped %d/%d chunks (%.1f%%), exceeds %.0f%% threshold",
				dropped, len(chunks), ratio*100, p.cfg.DropRatioThreshold*100))
		}
	}

	if _, err := p.chunkIndex.Index(ctx, valid); err != nil {
		return fmt.Errorf("ingest: index chunks: %w", err)
	}

	if err := p.documents.SetReady(ctx, doc.ID, len(valid)); err != nil {
		return fmt.Errorf("ingest: mark document ready: %w", err)
	}
	return nil
}

func (p *Pipeline) batchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	return resilience.Retry(ctx, resilience.DefaultRetryConfig(), func(ctx context.Context) ([][]float32, error) {
		return p.embedder.BatchEmbed(ctx, texts)
	})
}

func imageMarkers(ids []string, imagesByID map[string]chunker.ExtractedImage) string {
	var sb strings.Builder
	for _, id := range ids {
		if img, ok := imagesByID[id]; ok {
			sb.WriteString(fmt.Sprintf("[image: %s]", img.URL))
		} else {
			sb.WriteString(fmt.Sprintf("[image: %s]", id))
		}
	}
	return sb.String()
}

var filenameCleanRegex = regexp.MustCompile(`[_\-]+`)

// deriveDocumentTitle picks the first non-empty breadcrumb
// root from any chunk, else a cleaned filename.
func deriveDocumentTitle(chunks []chunker.RawChunk, fileName string) string {
	for _, c := range chunks {
		if len(c.SectionBreadcrumb) > 0 && strings.TrimSpace(c.SectionBreadcrumb[0]) != "" {
			return c.SectionBreadcrumb[0]
		}
	}
	return cleanFileName(fileName)
}

func cleanFileName(fileName string) string {
	base := fileName
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	base = filenameCleanRegex.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	runes := []rune(base)
	runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
	return string(runes)
}

func truncateChars(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
