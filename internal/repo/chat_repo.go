// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for chat sessions
// and their turns.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a session is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-bookshop-assistant/internal/domain"
)

// CreateSession inserts a new ChatSession owned by userID.
func CreateSession(ctx context.Context, db *gorm.DB, userID string) (*domain.ChatSession, error) {
	now := time.Now().UTC()
	s := &domain.ChatSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// GetSession fetches a session by id and owner, or ErrNotFound.
func GetSession(ctx context.Context, db *gorm.DB, id, userID string) (*domain.ChatSession, error) {
	var s domain.ChatSession
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// TouchSession bumps UpdatedAt so session listings and ETags move with
// new turns.
func TouchSession(ctx context.Context, db *gorm.DB, id string, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.ChatSession{}).
		Where("id = ?", id).
		Update("updated_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateTurn inserts a turn, filling id and timestamps when unset.
func CreateTurn(ctx context.Context, db *gorm.DB, t *domain.ChatTurn) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	t.UpdatedAt = t.CreatedAt
	return db.WithContext(ctx).Create(t).Error
}

// GetTurn fetches a turn within a session.
func GetTurn(ctx context.Context, db *gorm.DB, sessionID, id string) (*domain.ChatTurn, error) {
	var t domain.ChatTurn
	if err := db.WithContext(ctx).Where("id = ? AND session_id = ?", id, sessionID).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// CountTurns returns the number of turns in a session.
func CountTurns(ctx context.Context, db *gorm.DB, sessionID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ChatTurn{}).
		Where("session_id = ?", sessionID).
		Count(&total).Error
	return total, err
}

// ListTurnsPage returns a page of turns ordered deterministically
// (CreatedAt ASC, ID ASC).
func ListTurnsPage(ctx context.Context, db *gorm.DB, sessionID string, offset, limit int) ([]domain.ChatTurn, error) {
	out := []domain.ChatTurn{}
	err := db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
