// Package coupon holds the coupon decision rules: validation against a
// subtotal at a point in time, discount computation, use-time preconditions
// and eligibility ranking. It performs no I/O; persistence and atomicity of
// the single-use transition belong to the caller.
package coupon

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tbourn/go-bookshop-assistant/internal/domain"
)

// Reason is a stable machine-readable verdict code.
type Reason string

const (
	ReasonOK           Reason = "ok"
	ReasonEmptyCode    Reason = "empty_code"
	ReasonBadSubtotal  Reason = "invalid_subtotal"
	ReasonNotFound     Reason = "not_found"
	ReasonInactive     Reason = "inactive"
	ReasonUsed         Reason = "already_used"
	ReasonNotStarted   Reason = "not_started"
	ReasonExpired      Reason = "expired"
	ReasonBelowMinimum Reason = "below_min_subtotal"
	ReasonZeroDiscount Reason = "no_discount"
)

// Verdict is the outcome of Validate. Rule violations are verdicts, not errors.
type Verdict struct {
	Valid    bool            `json:"is_valid"`
	Reason   Reason          `json:"reason"`
	Message  string          `json:"message"`
	Discount decimal.Decimal `json:"discount"`
}

func reject(r Reason, msg string) Verdict {
	return Verdict{Reason: r, Message: msg, Discount: decimal.Zero}
}

var printer = message.NewPrinter(language.Vietnamese)

// FormatVND renders an amount the way replies show it, e.g. 120.000.
func FormatVND(d decimal.Decimal) string {
	return printer.Sprintf("%d", d.Round(0).IntPart())
}

// Validate runs the guards in order and stops at the first failure. c is
// nil when the code does not resolve to a coupon.
func Validate(code string, c *domain.Coupon, subtotal decimal.Decimal, now time.Time) Verdict {
	if strings.TrimSpace(code) == "" {
		return reject(ReasonEmptyCode, "Mã trống.")
	}
	if subtotal.IsNegative() {
		return reject(ReasonBadSubtotal, "Subtotal không hợp lệ.")
	}
	if c == nil {
		return reject(ReasonNotFound, "Mã không tồn tại.")
	}
	if !c.IsActive {
		return reject(ReasonInactive, "Mã đang không hoạt động.")
	}
	if c.IsUsed {
		return reject(ReasonUsed, "Mã đã được sử dụng.")
	}
	if v, ok := checkWindow(c, now); !ok {
		return v
	}
	if c.MinSubtotal.Valid && subtotal.LessThan(c.MinSubtotal.Decimal) {
		return reject(ReasonBelowMinimum, fmt.Sprintf("Đơn tối thiểu %sđ.", FormatVND(c.MinSubtotal.Decimal)))
	}

	d := Discount(c, subtotal)
	if !d.IsPositive() {
		return reject(ReasonZeroDiscount, "Mã không tạo ra giảm giá.")
	}
	return Verdict{Valid: true, Reason: ReasonOK, Message: "Áp mã hợp lệ.", Discount: d}
}

func checkWindow(c *domain.Coupon, now time.Time) (Verdict, bool) {
	if c.StartsAt != nil && now.Before(*c.StartsAt) {
		return reject(ReasonNotStarted, "Mã chưa bắt đầu."), false
	}
	if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
		return reject(ReasonExpired, "Mã đã hết hạn."), false
	}
	return Verdict{}, true
}

// Discount computes the amount c takes off subtotal. Percentages round to
// two places half away from zero; the cap applies next; the result is
// clamped to [0, subtotal].
func Discount(c *domain.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch c.Type {
	case domain.CouponPercentage:
		d = subtotal.Mul(c.Value).Div(decimal.NewFromInt(100)).Round(2)
	case domain.CouponFixedAmount:
		d = c.Value
	default:
		return decimal.Zero
	}
	if c.MaxDiscountAmount.Valid && d.GreaterThan(c.MaxDiscountAmount.Decimal) {
		d = c.MaxDiscountAmount.Decimal
	}
	if d.IsNegative() {
		return decimal.Zero
	}
	if d.GreaterThan(subtotal) {
		return subtotal
	}
	return d
}

// CheckUse is the verdict form of the use-time rules: the code must resolve
// to an active, unused coupon inside its window. Subtotal rules are not part
// of it, so the verdict carries no discount.
func CheckUse(code string, c *domain.Coupon, now time.Time) Verdict {
	if strings.TrimSpace(code) == "" {
		return reject(ReasonEmptyCode, "Mã trống.")
	}
	if c == nil {
		return reject(ReasonNotFound, "Mã không tồn tại.")
	}
	if !c.IsActive {
		return reject(ReasonInactive, "Mã đang không hoạt động.")
	}
	if c.IsUsed {
		return reject(ReasonUsed, "Mã đã được sử dụng.")
	}
	if v, ok := checkWindow(c, now); !ok {
		return v
	}
	return Verdict{Valid: true, Reason: ReasonOK, Message: "Đã sử dụng mã.", Discount: decimal.Zero}
}

// CheckUsable re-checks the state rules right before a coupon is consumed.
func CheckUsable(c *domain.Coupon, now time.Time) error {
	switch {
	case !c.IsActive:
		return ErrInactive
	case c.IsUsed:
		return ErrAlreadyUsed
	case c.StartsAt != nil && now.Before(*c.StartsAt):
		return ErrNotStarted
	case c.ExpiresAt != nil && now.After(*c.ExpiresAt):
		return ErrExpired
	}
	return nil
}

// MaxUsedContext is the column width of UsedContext.
const MaxUsedContext = 128

// MarkUsed applies the single-use transition in memory after CheckUsable
// passes. Callers persist it with a compare-and-swap on Version.
func MarkUsed(c *domain.Coupon, usedContext string, now time.Time) error {
	if err := CheckUsable(c, now); err != nil {
		return err
	}
	usedContext = strings.TrimSpace(usedContext)
	if r := []rune(usedContext); len(r) > MaxUsedContext {
		usedContext = string(r[:MaxUsedContext])
	}
	t := now.UTC()
	c.IsUsed = true
	c.UsedAt = &t
	c.UsedContext = usedContext
	return nil
}

// Eligible pairs a coupon with the discount it yields.
type Eligible struct {
	Coupon   domain.Coupon   `json:"coupon"`
	Discount decimal.Decimal `json:"discount"`
}

// ListEligible keeps active, unused coupons inside their window whose minimum
// is met and whose discount is positive, best offer first. Equal discounts
// keep their input order.
func ListEligible(coupons []domain.Coupon, subtotal decimal.Decimal, now time.Time) []Eligible {
	out := make([]Eligible, 0, len(coupons))
	if subtotal.IsNegative() {
		return out
	}
	for i := range coupons {
		c := &coupons[i]
		if !c.IsActive || c.IsUsed {
			continue
		}
		if _, ok := checkWindow(c, now); !ok {
			continue
		}
		if c.MinSubtotal.Valid && subtotal.LessThan(c.MinSubtotal.Decimal) {
			continue
		}
		d := Discount(c, subtotal)
		if !d.IsPositive() {
			continue
		}
		out = append(out, Eligible{Coupon: *c, Discount: d})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Discount.GreaterThan(out[j].Discount)
	})
	return out
}

var codeRE = regexp.MustCompile(`^[A-Z0-9_-]{3,32}$`)

// NormalizeCode trims and upper-cases a code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateGrant checks a coupon definition before it is stored.
func ValidateGrant(c *domain.Coupon) error {
	if !codeRE.MatchString(c.Code) {
		return ErrInvalidCode
	}
	switch c.Type {
	case domain.CouponPercentage:
		if !c.Value.IsPositive() || c.Value.GreaterThan(decimal.NewFromInt(100)) {
			return ErrInvalidPercentage
		}
	case domain.CouponFixedAmount:
		if !c.Value.IsPositive() {
			return ErrInvalidFixed
		}
	default:
		return ErrInvalidType
	}
	if c.MaxDiscountAmount.Valid && c.MaxDiscountAmount.Decimal.IsNegative() {
		return ErrInvalidAmount
	}
	if c.MinSubtotal.Valid && c.MinSubtotal.Decimal.IsNegative() {
		return ErrInvalidAmount
	}
	if c.StartsAt != nil && c.ExpiresAt != nil && !c.StartsAt.Before(*c.ExpiresAt) {
		return ErrInvalidWindow
	}
	return nil
}
