// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-bookshop-assistant/internal/domain"
)

// latest runs count + newest updated_at over q. When q matches no rows the
// count is 0 and maxUpdatedAt is nil.
func latest(q *gorm.DB) (count int64, maxUpdatedAt *time.Time, err error) {
	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// TurnsStats returns the number of turns in a session and the newest
// UpdatedAt among them.
func TurnsStats(ctx context.Context, db *gorm.DB, sessionID string) (int64, *time.Time, error) {
	return latest(db.WithContext(ctx).Model(&domain.ChatTurn{}).Where("session_id = ?", sessionID))
}

// CouponsStats returns the number of coupons visible to a user (owned or
// global) and the newest UpdatedAt among them.
func CouponsStats(ctx context.Context, db *gorm.DB, userID string) (int64, *time.Time, error) {
	return latest(db.WithContext(ctx).Model(&domain.Coupon{}).Where("(user_id = ? OR user_id IS NULL)", userID))
}
