// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Coupon
// model, including the compare-and-swap update that consumes a coupon.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-bookshop-assistant/internal/domain"
)

// CreateCoupon inserts c, assigning an id when missing. A clash on
// (user_id, code) returns ErrDuplicate.
func CreateCoupon(ctx context.Context, db *gorm.DB, c *domain.Coupon) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// CouponCodeExists reports whether code is taken in the given scope. A nil
// userID checks global coupons; NULL user ids never collide in a unique
// index, so global duplicates are caught here instead.
func CouponCodeExists(ctx context.Context, db *gorm.DB, userID *string, code string) (bool, error) {
	var n int64
	q := db.WithContext(ctx).Model(&domain.Coupon{}).Where("code = ?", code)
	if userID == nil {
		q = q.Where("user_id IS NULL")
	} else {
		q = q.Where("user_id = ?", *userID)
	}
	err := q.Count(&n).Error
	return n > 0, err
}

// FindCouponByUserAndCode returns the user's own coupon with code.
func FindCouponByUserAndCode(ctx context.Context, db *gorm.DB, userID, code string) (*domain.Coupon, error) {
	var c domain.Coupon
	err := db.WithContext(ctx).
		Where("user_id = ? AND code = ?", userID, code).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindGlobalCouponByCode returns the global coupon with code.
func FindGlobalCouponByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Coupon, error) {
	var c domain.Coupon
	err := db.WithContext(ctx).
		Where("user_id IS NULL AND code = ?", code).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCouponsByUser returns coupons owned by userID plus global ones,
// user-owned first, newest first within each group.
func ListCouponsByUser(ctx context.Context, db *gorm.DB, userID string, includeUsed, includeInactive bool) ([]domain.Coupon, error) {
	out := []domain.Coupon{}
	q := db.WithContext(ctx).Where("(user_id = ? OR user_id IS NULL)", userID)
	if !includeUsed {
		q = q.Where("is_used = ?", false)
	}
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	err := q.
		Order("CASE WHEN user_id IS NULL THEN 1 ELSE 0 END").
		Order("created_at DESC, id ASC").
		Find(&out).Error
	return out, err
}

// MarkCouponUsed persists the single-use transition only if the row still
// carries c.Version and is unused. On success c.Version is advanced; when no
// row matched, ErrVersionConflict is returned and nothing changes.
func MarkCouponUsed(ctx context.Context, db *gorm.DB, c *domain.Coupon, usedAt time.Time, usedContext string) error {
	res := db.WithContext(ctx).
		Model(&domain.Coupon{}).
		Where("id = ? AND version = ? AND is_used = ?", c.ID, c.Version, false).
		Updates(map[string]any{
			"is_used":      true,
			"used_at":      usedAt,
			"used_context": usedContext,
			"version":      gorm.Expr("version + 1"),
			"updated_at":   usedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	c.Version++
	c.IsUsed = true
	c.UsedAt = &usedAt
	c.UsedContext = usedContext
	return nil
}
