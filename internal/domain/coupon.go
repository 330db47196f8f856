package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CouponType selects how Value is interpreted.
type CouponType string

const (
	// CouponPercentage discounts Value percent of the subtotal, Value in (0,100].
	CouponPercentage CouponType = "percentage"
	// CouponFixedAmount discounts Value directly, Value > 0.
	CouponFixedAmount CouponType = "fixed_amount"
)

// Coupon is a discount code. A nil UserID makes the coupon global.
//
// A coupon is usable at most once. Version is bumped on every write and is
// the compare-and-swap token that marks a coupon used exactly once under
// concurrent requests.
type Coupon struct {
	ID                string              `json:"id"                            gorm:"type:char(36);primaryKey"`
	UserID            *string             `json:"user_id,omitempty"             gorm:"type:varchar(64);index;uniqueIndex:ux_coupon_user_code,priority:1"`
	Code              string              `json:"code"                          gorm:"type:varchar(32);not null;index;uniqueIndex:ux_coupon_user_code,priority:2"`
	Type              CouponType          `json:"type"                          gorm:"type:varchar(16);not null"`
	Value             decimal.Decimal     `json:"value"                         gorm:"type:decimal(18,2);not null"`
	MaxDiscountAmount decimal.NullDecimal `json:"max_discount_amount,omitempty" gorm:"type:decimal(18,2)"`
	MinSubtotal       decimal.NullDecimal `json:"min_subtotal,omitempty"        gorm:"type:decimal(18,2)"`
	StartsAt          *time.Time          `json:"starts_at,omitempty"`
	ExpiresAt         *time.Time          `json:"expires_at,omitempty"`
	IsUsed            bool                `json:"is_used"                       gorm:"not null;index"`
	UsedAt            *time.Time          `json:"used_at,omitempty"`
	UsedContext       string              `json:"used_context,omitempty"        gorm:"type:varchar(128)"`
	IsActive          bool                `json:"is_active"                     gorm:"not null;index"`
	Version           int                 `json:"-"                             gorm:"not null"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// TableName returns the database table name for Coupon.
func (Coupon) TableName() string { return "coupons" }

// IsGlobal reports whether the coupon is not bound to a user.
func (c Coupon) IsGlobal() bool { return c.UserID == nil }
