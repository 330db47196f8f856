// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file stores proposed cart actions and the cart lines
// they produce once confirmed.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-bookshop-assistant/internal/domain"
)

// CreatePendingActions records the actions of one bot turn as pending.
func CreatePendingActions(ctx context.Context, db *gorm.DB, sessionID, userID string, actions []domain.BotAction) error {
	if len(actions) == 0 {
		return nil
	}
	rows := make([]domain.PendingAction, 0, len(actions))
	for _, a := range actions {
		rows = append(rows, domain.PendingAction{
			ID:        a.ID,
			SessionID: sessionID,
			UserID:    userID,
			Type:      a.Type,
			BookID:    a.Payload.BookID,
			Quantity:  a.Payload.Quantity,
			Status:    domain.ActionPending,
		})
	}
	return db.WithContext(ctx).Create(&rows).Error
}

// GetPendingAction fetches an action scoped to its session and owner.
func GetPendingAction(ctx context.Context, db *gorm.DB, sessionID, userID, id string) (*domain.PendingAction, error) {
	var a domain.PendingAction
	err := db.WithContext(ctx).
		Where("id = ? AND session_id = ? AND user_id = ?", id, sessionID, userID).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ResolvePendingAction moves an action out of pending. It returns
// ErrVersionConflict when the action was already resolved.
func ResolvePendingAction(ctx context.Context, db *gorm.DB, id string, to domain.ActionStatus, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.PendingAction{}).
		Where("id = ? AND status = ?", id, domain.ActionPending).
		Updates(map[string]any{
			"status":      to,
			"resolved_at": at,
			"updated_at":  at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// AddCartItem adds qty of bookID to the user's cart, summing with an
// existing line.
func AddCartItem(ctx context.Context, db *gorm.DB, userID, bookID string, qty int) error {
	now := time.Now().UTC()
	item := domain.CartItem{
		ID:        uuid.NewString(),
		UserID:    userID,
		BookID:    bookID,
		Quantity:  qty,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "book_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"quantity":   gorm.Expr("cart_items.quantity + ?", qty),
			"updated_at": now,
		}),
	}).Create(&item).Error
}

// ListCartItems returns the user's cart with books preloaded.
func ListCartItems(ctx context.Context, db *gorm.DB, userID string) ([]domain.CartItem, error) {
	out := []domain.CartItem{}
	err := db.WithContext(ctx).
		Preload("Book").
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}
