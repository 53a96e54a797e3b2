package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/anchoredrag/core/internal/types"
	"github.com/anchoredrag/core/internal/types/interfaces"
)

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository builds a gorm-backed interfaces.MessageRepository.
func NewMessageRepository(db *gorm.DB) interfaces.MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *types.ChatMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *messageRepository) Get(ctx context.Context, messageID string) (*types.ChatMessage, error) {
	var msg types.ChatMessage
	err := r.db.WithContext(ctx).First(&msg, "id = ?", messageID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) RecentBySession(ctx context.Context, sessionID string, limit int) ([]types.ChatMessage, error) {
	var messages []types.ChatMessage
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).
		Order("created_at DESC").Limit(limit).Find(&messages).Error
	return messages, err
}

func (r *messageRepository) NonCompactedBySession(ctx context.Context, sessionID string, limit int) ([]types.ChatMessage, error) {
	var messages []types.ChatMessage
	err := r.db.WithContext(ctx).Where("session_id = ? AND is_compacted = ?", sessionID, false).
		Order("created_at DESC").Limit(limit).Find(&messages).Error
	return messages, err
}

func (r *messageRepository) CountAndSumTokensNonCompacted(ctx context.Context, sessionID string) (int, int, error) {
	var result struct {
		Count int
		Sum   int
	}
	err := r.db.WithContext(ctx).Model(&types.ChatMessage{}).
		Select("COUNT(*) AS count, COALESCE(SUM(token_count), 0) AS sum").
		Where("session_id = ? AND is_compacted = ?", sessionID, false).
		Scan(&result).Error
	return result.Count, result.Sum, err
}

func (r *messageRepository) OldestNonCompacted(ctx context.Context, sessionID string, skipMostRecent, limit int) ([]types.ChatMessage, error) {
	var recentIDs []string
	if err := r.db.WithContext(ctx).Model(&types.ChatMessage{}).
		Where("session_id = ? AND is_compacted = ?", sessionID, false).
		Order("created_at DESC").Limit(skipMostRecent).Pluck("id", &recentIDs).Error; err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).Where("session_id = ? AND is_compacted = ?", sessionID, false)
	if len(recentIDs) > 0 {
		query = query.Where("id NOT IN ?", recentIDs)
	}

	var messages []types.ChatMessage
	err := query.Order("created_at ASC").Limit(limit).Find(&messages).Error
	return messages, err
}

func (r *messageRepository) MarkCompacted(ctx context.Context, messageIDs []string, summaryRef string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&types.ChatMessage{}).Where("id IN ?", messageIDs).
		Updates(map[string]any{"is_compacted": true, "summary_ref": summaryRef}).Error
}

type summaryRepository struct {
	db *gorm.DB
}

// NewSummaryRepository builds a gorm-backed interfaces.SummaryRepository.
func NewSummaryRepository(db *gorm.DB) interfaces.SummaryRepository {
	return &summaryRepository{db: db}
}

func (r *summaryRepository) Create(ctx context.Context, summary *types.ChatSummary) error {
	summary.CreatedAt = time.Now()
	return r.db.WithContext(ctx).Create(summary).Error
}

func (r *summaryRepository) MostRecentBySession(ctx context.Context, sessionID string) (*types.ChatSummary, error) {
	var summary types.ChatSummary
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).
		Order("created_at DESC").First(&summary).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
