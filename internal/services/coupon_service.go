// Package services – CouponService
//
// CouponService is the persistence-backed face of the coupon engine. Lookups
// prefer the caller's own coupon and fall back to a global one with the same
// code. Use marks a coupon consumed with a version compare-and-swap, so two
// concurrent requests cannot both spend it.

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tbourn/go-bookshop-assistant/internal/coupon"
	"github.com/tbourn/go-bookshop-assistant/internal/domain"
	"github.com/tbourn/go-bookshop-assistant/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// GrantInput describes a coupon to create. A nil UserID grants a global
// coupon.
type GrantInput struct {
	UserID            *string           `json:"user_id,omitempty"             validate:"omitempty,min=1,max=64"`
	Code              string            `json:"code"                          validate:"required,min=3,max=32"`
	Type              domain.CouponType `json:"type"                          validate:"required,oneof=percentage fixed_amount"`
	Value             decimal.Decimal   `json:"value"`
	MaxDiscountAmount *decimal.Decimal  `json:"max_discount_amount,omitempty"`
	MinSubtotal       *decimal.Decimal  `json:"min_subtotal,omitempty"`
	StartsAt          *time.Time        `json:"starts_at,omitempty"`
	ExpiresAt         *time.Time        `json:"expires_at,omitempty"`
}

// CouponService grants, validates and consumes coupons.
type CouponService struct {
	DB      *gorm.DB
	Metrics *Metrics
	Now     func() time.Time

	validate *validator.Validate
}

// NewCouponService constructs a CouponService.
func NewCouponService(db *gorm.DB, m *Metrics) *CouponService {
	return &CouponService{DB: db, Metrics: m, Now: time.Now, validate: validator.New()}
}

func (s *CouponService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}

// Grant creates an active coupon after checking its definition.
func (s *CouponService) Grant(ctx context.Context, in GrantInput) (*domain.Coupon, error) {
	tr := otel.Tracer("services/CouponService")
	ctx, span := tr.Start(ctx, "Grant",
		trace.WithAttributes(attribute.Bool("coupon.global", in.UserID == nil)),
	)
	defer span.End()

	in.Code = coupon.NormalizeCode(in.Code)
	if s.validate == nil {
		s.validate = validator.New()
	}
	if err := s.validate.StructCtx(ctx, in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGrant, err)
	}

	c := &domain.Coupon{
		ID:                uuid.NewString(),
		UserID:            in.UserID,
		Code:              in.Code,
		Type:              in.Type,
		Value:             in.Value,
		MaxDiscountAmount: nullDecimal(in.MaxDiscountAmount),
		MinSubtotal:       nullDecimal(in.MinSubtotal),
		StartsAt:          in.StartsAt,
		ExpiresAt:         in.ExpiresAt,
		IsActive:          true,
	}
	if err := coupon.ValidateGrant(c); err != nil {
		return nil, err
	}

	// NULL user ids never collide in the unique index; check globals by hand.
	exists, err := repo.CouponCodeExists(ctx, s.DB, c.UserID, c.Code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateCoupon
	}
	if err := repo.CreateCoupon(ctx, s.DB, c); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrDuplicateCoupon
		}
		return nil, err
	}
	return c, nil
}

// lookup resolves a code to the user's coupon, else a global one. It returns
// (nil, nil) when neither exists.
func (s *CouponService) lookup(ctx context.Context, userID, code string) (*domain.Coupon, error) {
	c, err := repo.FindCouponByUserAndCode(ctx, s.DB, userID, code)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	c, err = repo.FindGlobalCouponByCode(ctx, s.DB, code)
	if err == nil {
		return c, nil
	}
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	return nil, err
}

// Validate checks code against subtotal. Rule violations come back as an
// invalid Verdict; the error is reserved for storage failures.
func (s *CouponService) Validate(ctx context.Context, userID, code string, subtotal decimal.Decimal) (coupon.Verdict, *domain.Coupon, error) {
	tr := otel.Tracer("services/CouponService")
	ctx, span := tr.Start(ctx, "Validate",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	code = coupon.NormalizeCode(code)
	var c *domain.Coupon
	if code != "" && !subtotal.IsNegative() {
		var err error
		if c, err = s.lookup(ctx, userID, code); err != nil {
			return coupon.Verdict{}, nil, err
		}
	}
	v := coupon.Validate(code, c, subtotal, s.now())
	s.Metrics.couponVerdict(string(v.Reason))
	span.SetAttributes(attribute.String("coupon.reason", string(v.Reason)))
	return v, c, nil
}

// Use consumes code for userID. Only the state rules apply (active, unused,
// inside the window); minimum subtotal and discount belong to Validate. A
// rejected code is returned as an invalid Verdict with a nil error; losing a
// concurrent race yields coupon.ErrAlreadyUsed.
func (s *CouponService) Use(ctx context.Context, userID, code, usedContext string) (coupon.Verdict, error) {
	tr := otel.Tracer("services/CouponService")
	ctx, span := tr.Start(ctx, "Use",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	code = coupon.NormalizeCode(code)
	var c *domain.Coupon
	if code != "" {
		var err error
		if c, err = s.lookup(ctx, userID, code); err != nil {
			return coupon.Verdict{}, err
		}
	}
	now := s.now()
	v := coupon.CheckUse(code, c, now)
	s.Metrics.couponVerdict(string(v.Reason))
	span.SetAttributes(attribute.String("coupon.reason", string(v.Reason)))
	if !v.Valid {
		return v, nil
	}

	if err := coupon.MarkUsed(c, usedContext, now); err != nil {
		return coupon.Verdict{}, err
	}
	if err := repo.MarkCouponUsed(ctx, s.DB, c, *c.UsedAt, c.UsedContext); err != nil {
		if errors.Is(err, repo.ErrVersionConflict) {
			return coupon.Verdict{}, coupon.ErrAlreadyUsed
		}
		return coupon.Verdict{}, err
	}
	return v, nil
}

// ListMine lists the user's own coupons followed by global ones.
func (s *CouponService) ListMine(ctx context.Context, userID string, includeUsed, includeInactive bool) ([]domain.Coupon, error) {
	return repo.ListCouponsByUser(ctx, s.DB, userID, includeUsed, includeInactive)
}

// ListEligible ranks the coupons the user could apply to subtotal now.
func (s *CouponService) ListEligible(ctx context.Context, userID string, subtotal decimal.Decimal) ([]coupon.Eligible, error) {
	tr := otel.Tracer("services/CouponService")
	ctx, span := tr.Start(ctx, "ListEligible",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	if subtotal.IsNegative() {
		return nil, ErrInvalidSubtotal
	}
	coupons, err := repo.ListCouponsByUser(ctx, s.DB, userID, false, false)
	if err != nil {
		return nil, err
	}
	return coupon.ListEligible(coupons, subtotal, s.now()), nil
}
