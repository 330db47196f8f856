// Coupon HTTP handlers.
//
//   - POST /coupons             (grant)
//   - GET  /coupons/mine        (owned + global coupons, ETag support)
//   - POST /coupons/validate    (dry run against a subtotal)
//   - POST /coupons/use         (consume once)
//   - GET  /coupons/eligible    (usable coupons ranked by discount)
//
// Validate answers with a verdict even for unusable codes; only malformed
// requests and storage failures are errors there.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/tbourn/go-bookshop-assistant/internal/coupon"
	"github.com/tbourn/go-bookshop-assistant/internal/domain"
	"github.com/tbourn/go-bookshop-assistant/internal/repo"
	"github.com/tbourn/go-bookshop-assistant/internal/services"
	"github.com/tbourn/go-bookshop-assistant/internal/utils"
)

//
// DTOs
//

// GrantCouponRequest is the JSON payload for creating a coupon. Omitting
// user_id grants a global coupon. Amounts accept numbers or numeric strings.
type GrantCouponRequest struct {
	UserID            *string          `json:"user_id,omitempty"             example:"user123"`
	Code              string           `json:"code"                          binding:"required" example:"SACH10"`
	Type              string           `json:"type"                          binding:"required,oneof=percentage fixed_amount" example:"percentage"`
	Value             decimal.Decimal  `json:"value"                         swaggertype:"number" example:"10"`
	MaxDiscountAmount *decimal.Decimal `json:"max_discount_amount,omitempty" swaggertype:"number" example:"50000"`
	MinSubtotal       *decimal.Decimal `json:"min_subtotal,omitempty"        swaggertype:"number" example:"200000"`
	StartsAt          *time.Time       `json:"starts_at,omitempty"`
	ExpiresAt         *time.Time       `json:"expires_at,omitempty"`
}

// CheckCouponRequest is the payload for validate.
type CheckCouponRequest struct {
	Code     string           `json:"code"     example:"SACH10"`
	Subtotal *decimal.Decimal `json:"subtotal" binding:"required" swaggertype:"number" example:"250000"`
}

// UseCouponRequest is the payload for use. Context is stored with the
// coupon, typically an order reference.
type UseCouponRequest struct {
	Code    string `json:"code"    binding:"required" example:"SACH10"`
	Context string `json:"context" binding:"max=128"  example:"order-1042"`
}

// CheckCouponResponse is a verdict plus the coupon it was computed for.
type CheckCouponResponse struct {
	coupon.Verdict
	Coupon *domain.Coupon `json:"coupon,omitempty"`
}

// ListCouponsResponse wraps the caller's coupons.
type ListCouponsResponse struct {
	Coupons []domain.Coupon `json:"coupons"`
}

// ListEligibleResponse wraps eligible coupons, best discount first.
type ListEligibleResponse struct {
	Subtotal decimal.Decimal   `json:"subtotal" swaggertype:"number"`
	Coupons  []coupon.Eligible `json:"coupons"`
}

// grantErrors are definition problems reported back as 400.
var grantErrors = []error{
	services.ErrInvalidGrant,
	coupon.ErrInvalidCode,
	coupon.ErrInvalidType,
	coupon.ErrInvalidPercentage,
	coupon.ErrInvalidFixed,
	coupon.ErrInvalidWindow,
	coupon.ErrInvalidAmount,
}

func isGrantError(err error) bool {
	for _, e := range grantErrors {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

//
// Handlers
//

// GrantCoupon godoc
// @ID          grantCoupon
// @Summary     Grant a coupon
// @Description Creates an active coupon for one user or, without user_id, for everyone.
// @Tags        Coupons
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.GrantCouponRequest  true  "Coupon definition"
//
// @Success     201  {object}  domain.Coupon
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid definition"
// @Failure     409  {object}  handlers.ErrorResponse  "Code already exists"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /coupons [post]
func (h *Handlers) GrantCoupon(c *gin.Context) {
	var req GrantCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid coupon definition")
		return
	}

	cp, err := h.couponSvc.Grant(c.Request.Context(), services.GrantInput{
		UserID:            req.UserID,
		Code:              req.Code,
		Type:              domain.CouponType(req.Type),
		Value:             req.Value,
		MaxDiscountAmount: req.MaxDiscountAmount,
		MinSubtotal:       req.MinSubtotal,
		StartsAt:          req.StartsAt,
		ExpiresAt:         req.ExpiresAt,
	})
	switch {
	case err == nil:
		ok(c, http.StatusCreated, cp)
	case errors.Is(err, services.ErrDuplicateCoupon):
		fail(c, http.StatusConflict, ErrCodeConflict, "coupon code already exists")
	case isGrantError(err):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
	}
}

// ListMyCoupons godoc
// @ID          listMyCoupons
// @Summary     List my coupons
// @Description Returns the user's own coupons first, then global ones. Supports weak ETag via If-None-Match.
// @Tags        Coupons
// @Produce     json
//
// @Param       X-User-ID         header  string  false "User ID (demo header)"       example(user123)
// @Param       If-None-Match     header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       include_used      query   bool    false "Include used coupons"        default(false)
// @Param       include_inactive  query   bool    false "Include inactive coupons"    default(false)
//
// @Success     200  {object} handlers.ListCouponsResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /coupons/mine [get]
func (h *Handlers) ListMyCoupons(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	includeUsed := utils.ParseBoolDefault(c.Query("include_used"), false)
	includeInactive := utils.ParseBoolDefault(c.Query("include_inactive"), false)

	if svc, isGorm := h.couponSvc.(*services.CouponService); isGorm && svc.DB != nil {
		if count, maxTS, err := repo.CouponsStats(ctx, svc.DB, uid); err == nil {
			scope := fmt.Sprintf("coupons:%s:%t:%t", uid, includeUsed, includeInactive)
			if notModified(c, scope, count, maxTS) {
				return
			}
		}
	}

	items, err := h.couponSvc.ListMine(ctx, uid, includeUsed, includeInactive)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if items == nil {
		items = []domain.Coupon{}
	}
	ok(c, http.StatusOK, ListCouponsResponse{Coupons: items})
}

// ValidateCoupon godoc
// @ID          validateCoupon
// @Summary     Check a coupon against a subtotal
// @Description Returns a verdict with the discount, or the first rule the code fails. Nothing is consumed.
// @Tags        Coupons
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       body       body    handlers.CheckCouponRequest  true  "Code and subtotal"
//
// @Success     200  {object}  handlers.CheckCouponResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /coupons/validate [post]
func (h *Handlers) ValidateCoupon(c *gin.Context) {
	var req CheckCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "code required")
		return
	}

	v, cp, err := h.couponSvc.Validate(c.Request.Context(), userID(c), req.Code, *req.Subtotal)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	if !v.Valid {
		cp = nil
	}
	ok(c, http.StatusOK, CheckCouponResponse{Verdict: v, Coupon: cp})
}

// UseCoupon godoc
// @ID          useCoupon
// @Summary     Consume a coupon
// @Description Marks an active, unused coupon inside its window as used. Minimum subtotal is not checked here. A coupon can be used once.
// @Tags        Coupons
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       body       body    handlers.UseCouponRequest  true  "Code and context"
//
// @Success     200  {object}  coupon.Verdict
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse  "Already used"
// @Failure     422  {object}  handlers.ErrorResponse  "Coupon not applicable"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /coupons/use [post]
func (h *Handlers) UseCoupon(c *gin.Context) {
	var req UseCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "code and subtotal required")
		return
	}

	v, err := h.couponSvc.Use(c.Request.Context(), userID(c), req.Code, strings.TrimSpace(req.Context))
	switch {
	case errors.Is(err, coupon.ErrAlreadyUsed):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	case v.Reason == coupon.ReasonUsed:
		fail(c, http.StatusConflict, ErrCodeConflict, v.Message)
	case !v.Valid:
		fail(c, http.StatusUnprocessableEntity, ErrCodeCouponInvalid, v.Message)
	default:
		ok(c, http.StatusOK, v)
	}
}

// ListEligibleCoupons godoc
// @ID          listEligibleCoupons
// @Summary     Coupons usable for a subtotal
// @Description Lists active, unused coupons the user can apply now, best discount first.
// @Tags        Coupons
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       subtotal   query   number  true  "Cart subtotal in VND"   example(250000)
//
// @Success     200  {object}  handlers.ListEligibleResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /coupons/eligible [get]
func (h *Handlers) ListEligibleCoupons(c *gin.Context) {
	subtotal, err := decimal.NewFromString(strings.TrimSpace(c.Query("subtotal")))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "subtotal must be a number")
		return
	}

	items, err := h.couponSvc.ListEligible(c.Request.Context(), userID(c), subtotal)
	if err != nil {
		if errors.Is(err, services.ErrInvalidSubtotal) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListEligibleResponse{Subtotal: subtotal, Coupons: items})
}
