package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/anchoredrag/core/internal/types"
	"github.com/anchoredrag/core/internal/types/interfaces"
)

type memoryRepository struct {
	db *gorm.DB
}

// NewMemoryRepository builds a gorm-backed interfaces.MemoryRepository.
func NewMemoryRepository(db *gorm.DB) interfaces.MemoryRepository {
	return &memoryRepository{db: db}
}

func (r *memoryRepository) Create(ctx context.Context, memory *types.Memory) error {
	return r.db.WithContext(ctx).Create(memory).Error
}

func (r *memoryRepository) Update(ctx context.Context, memory *types.Memory) error {
	return r.db.WithContext(ctx).Model(&types.Memory{}).Where("id = ?", memory.ID).
		Updates(map[string]any{
			"importance":       memory.Importance,
			"last_accessed_at": memory.LastAccessedAt,
		}).Error
}

func (r *memoryRepository) ListBySession(ctx context.Context, sessionID string) ([]types.Memory, error) {
	var memories []types.Memory
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Find(&memories).Error
	return memories, err
}

func (r *memoryRepository) FindByContent(ctx context.Context, sessionID, content string) (*types.Memory, error) {
	var memory types.Memory
	err := r.db.WithContext(ctx).Where("session_id = ? AND memory_content = ?", sessionID, content).First(&memory).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &memory, nil
}

func (r *memoryRepository) Delete(ctx context.Context, memoryID string) error {
	return r.db.WithContext(ctx).Delete(&types.Memory{}, "id = ?", memoryID).Error
}

func (r *memoryRepository) TouchLastAccessed(ctx context.Context, memoryID string) error {
	return r.db.WithContext(ctx).Model(&types.Memory{}).Where("id = ?", memoryID).
		Update("last_accessed_at", time.Now()).Error
}
