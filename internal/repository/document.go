package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/anchoredrag/core/internal/types"
	"github.com/anchoredrag/core/internal/types/interfaces"
)

type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository builds a gorm-backed interfaces.DocumentRepository.
func NewDocumentRepository(db *gorm.DB) interfaces.DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Get(ctx context.Context, documentID string) (*types.Document, error) {
	var doc types.Document
	err := r.db.WithContext(ctx).First(&doc, "id = ?", documentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) ListBySession(ctx context.Context, sessionID string) ([]types.Document, error) {
	var docs []types.Document
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("created_at ASC").Find(&docs).Error
	return docs, err
}

func (r *documentRepository) Create(ctx context.Context, doc *types.Document) error {
	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	return r.db.WithContext(ctx).Create(doc).Error
}

// CompareAndSwapStatus is the re-entrancy lock for ingestion: a single
// conditional UPDATE that only succeeds if the row is still in state
// `from`, so two concurrent ingestion attempts on the same document can't
// both proceed.
func (r *documentRepository) CompareAndSwapStatus(ctx context.Context, documentID string, from, to types.DocumentStatus) (bool, error) {
	result := r.db.WithContext(ctx).Model(&types.Document{}).
		Where("id = ? AND status = ?", documentID, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now()})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *documentRepository) SetReady(ctx context.Context, documentID string, chunkCount int) error {
	return r.db.WithContext(ctx).Model(&types.Document{}).Where("id = ?", documentID).
		Updates(map[string]any{
			"status":           types.DocumentStatusReady,
			"chunk_count":      chunkCount,
			"processing_error": "",
			"updated_at":       time.Now(),
		}).Error
}

func (r *documentRepository) SetFailed(ctx context.Context, documentID string, processingError string) error {
	return r.db.WithContext(ctx).Model(&types.Document{}).Where("id = ?", documentID).
		Updates(map[string]any{
			"status":           types.DocumentStatusFailed,
			"processing_error": processingError,
			"updated_at":       time.Now(),
		}).Error
}
