// Package repository provides gorm-backed implementations of the
// interfaces.*Repository contracts: each repository is a thin struct
// wrapping *gorm.DB, one file per aggregate, errors passed through
// unwrapped, except that a single-row lookup with no matching row returns
// (nil, nil) instead of gorm.ErrRecordNotFound.
package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/anchoredrag/core/internal/types"
	"github.com/anchoredrag/core/internal/types/interfaces"
)

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository builds a gorm-backed interfaces.SessionRepository.
func NewSessionRepository(db *gorm.DB) interfaces.SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Get(ctx context.Context, sessionID string) (*types.Session, error) {
	var session types.Session
	err := r.db.WithContext(ctx).First(&session, "id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) Create(ctx context.Context, session *types.Session) error {
	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now
	return r.db.WithContext(ctx).Create(session).Error
}

// Delete removes the Session row; foreign-key cascades configured on
// documents, chat_messages, chat_summaries and memories remove the rest of
// the session's relational footprint (internal/lifecycle handles the
// secondary search indices separately, ).
func (r *sessionRepository) Delete(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).Delete(&types.Session{}, "id = ?", sessionID).Error
}
