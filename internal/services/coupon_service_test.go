package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"github.com/tbourn/go-bookshop-assistant/internal/coupon"
	"github.com/tbourn/go-bookshop-assistant/internal/domain"
)

func dec(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func decPtr(n int64) *decimal.Decimal {
	d := decimal.NewFromInt(n)
	return &d
}

func newTestCouponService(t *testing.T) *CouponService {
	t.Helper()
	s := NewCouponService(newServiceDB(t), NewMetrics(prometheus.NewRegistry()))
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.Now = func() time.Time { return now }
	return s
}

func TestGrant_ValidationErrors(t *testing.T) {
	s := newTestCouponService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   GrantInput
		want error
	}{
		{"short code", GrantInput{Code: "ab", Type: domain.CouponFixedAmount, Value: dec(1000)}, ErrInvalidGrant},
		{"bad type", GrantInput{Code: "SALE", Type: "bogo", Value: dec(1000)}, ErrInvalidGrant},
		{"bad charset", GrantInput{Code: "sale 10", Type: domain.CouponFixedAmount, Value: dec(1000)}, coupon.ErrInvalidCode},
		{"percent over 100", GrantInput{Code: "BIG", Type: domain.CouponPercentage, Value: dec(120)}, coupon.ErrInvalidPercentage},
		{"zero fixed", GrantInput{Code: "ZERO", Type: domain.CouponFixedAmount, Value: dec(0)}, coupon.ErrInvalidFixed},
		{"negative cap", GrantInput{Code: "CAP", Type: domain.CouponPercentage, Value: dec(10), MaxDiscountAmount: decPtr(-1)}, coupon.ErrInvalidAmount},
	}
	for _, tc := range cases {
		if _, err := s.Grant(ctx, tc.in); !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v; want %v", tc.name, err, tc.want)
		}
	}
}

func TestGrant_NormalizesAndRejectsDuplicates(t *testing.T) {
	s := newTestCouponService(t)
	ctx := context.Background()
	u1 := "u1"

	c, err := s.Grant(ctx, GrantInput{Code: "  welcome ", Type: domain.CouponPercentage, Value: dec(10)})
	if err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if c.Code != "WELCOME" || !c.IsActive || !c.IsGlobal() {
		t.Fatalf("unexpected coupon: %+v", c)
	}
	if _, err := s.Grant(ctx, GrantInput{Code: "welcome", Type: domain.CouponFixedAmount, Value: dec(5000)}); !errors.Is(err, ErrDuplicateCoupon) {
		t.Fatalf("duplicate global code: got %v", err)
	}
	if _, err := s.Grant(ctx, GrantInput{UserID: &u1, Code: "WELCOME", Type: domain.CouponFixedAmount, Value: dec(5000)}); err != nil {
		t.Fatalf("user coupon may shadow a global code: %v", err)
	}
	if _, err := s.Grant(ctx, GrantInput{UserID: &u1, Code: "WELCOME", Type: domain.CouponFixedAmount, Value: dec(5000)}); !errors.Is(err, ErrDuplicateCoupon) {
		t.Fatalf("duplicate user code: got %v", err)
	}
}

func TestValidate_PrefersOwnedCoupon(t *testing.T) {
	s := newTestCouponService(t)
	ctx := context.Background()
	u1 := "u1"
	_, _ = s.Grant(ctx, GrantInput{Code: "SALE", Type: domain.CouponFixedAmount, Value: dec(10000)})
	_, _ = s.Grant(ctx, GrantInput{UserID: &u1, Code: "SALE", Type: domain.CouponFixedAmount, Value: dec(30000)})

	v, c, err := s.Validate(ctx, "u1", "sale", dec(100000))
	if err != nil || !v.Valid || !v.Discount.Equal(dec(30000)) || c.IsGlobal() {
		t.Fatalf("owner should get own coupon: %+v %+v err=%v", v, c, err)
	}
	v, c, _ = s.Validate(ctx, "u2", "SALE", dec(100000))
	if !v.Valid || !v.Discount.Equal(dec(10000)) || !c.IsGlobal() {
		t.Fatalf("others fall back to the global coupon: %+v", v)
	}
}

func TestValidate_StructuredRejections(t *testing.T) {
	s := newTestCouponService(t)
	ctx := context.Background()
	_, _ = s.Grant(ctx, GrantInput{Code: "MIN200", Type: domain.CouponFixedAmount, Value: dec(20000), MinSubtotal: decPtr(200000)})

	cases := []struct {
		code     string
		subtotal int64
		want     coupon.Reason
	}{
		{"", 100000, coupon.ReasonEmptyCode},
		{"MIN200", -1, coupon.ReasonBadSubtotal},
		{"NOPE", 100000, coupon.ReasonNotFound},
		{"MIN200", 100000, coupon.ReasonBelowMinimum},
		{"MIN200", 250000, coupon.ReasonOK},
	}
	for _, tc := range cases {
		v, _, err := s.Validate(ctx, "u1", tc.code, dec(tc.subtotal))
		if err != nil {
			t.Fatalf("Validate(%q): %v", tc.code, err)
		}
		if v.Reason != tc.want {
			t.Fatalf("Validate(%q, %d) = %s; want %s", tc.code, tc.subtotal, v.Reason, tc.want)
		}
	}
	if got := testutil.ToFloat64(s.Metrics.CouponVerdicts.WithLabelValues(string(coupon.ReasonNotFound))); got != 1 {
		t.Fatalf("not_found verdicts = %v", got)
	}
}

func TestUse_SecondUseRejected(t *testing.T) {
	s := newTestCouponService(t)
	ctx := context.Background()
	_, _ = s.Grant(ctx, GrantInput{Code: "ONCE", Type: domain.CouponPercentage, Value: dec(20), MaxDiscountAmount: decPtr(50000)})

	v, err := s.Use(ctx, "u1", "once", "order-1")
	if err != nil || !v.Valid || v.Reason != coupon.ReasonOK {
		t.Fatalf("first Use: %+v err=%v", v, err)
	}

	v, err = s.Use(ctx, "u1", "ONCE", "order-2")
	if err != nil {
		t.Fatalf("second Use should be a verdict, got error %v", err)
	}
	if v.Valid || v.Reason != coupon.ReasonUsed {
		t.Fatalf("second Use = %+v; want already_used", v)
	}

	_, c, _ := s.Validate(ctx, "u1", "ONCE", dec(1))
	if !c.IsUsed || c.UsedContext != "order-1" || c.Version != 1 {
		t.Fatalf("persisted coupon: %+v", c)
	}
}

func TestUse_IgnoresMinimumSubtotal(t *testing.T) {
	s := newTestCouponService(t)
	ctx := context.Background()
	if _, err := s.Grant(ctx, GrantInput{Code: "MIN200", Type: domain.CouponFixedAmount, Value: dec(20000), MinSubtotal: decPtr(200000)}); err != nil {
		t.Fatalf("Grant: %v", err)
	}

	v, err := s.Use(ctx, "u1", "min200", "order-7")
	if err != nil || !v.Valid {
		t.Fatalf("Use: %+v err=%v", v, err)
	}

	_, c, _ := s.Validate(ctx, "u1", "MIN200", dec(500000))
	if c == nil || !c.IsUsed || c.UsedAt == nil || c.UsedContext != "order-7" {
		t.Fatalf("persisted coupon: %+v", c)
	}
}

func TestUse_StateVerdicts(t *testing.T) {
	s := newTestCouponService(t)
	ctx := context.Background()
	past := s.now().Add(-time.Hour)
	future := s.now().Add(time.Hour)
	_, _ = s.Grant(ctx, GrantInput{Code: "OLD", Type: domain.CouponFixedAmount, Value: dec(1000), ExpiresAt: &past})
	_, _ = s.Grant(ctx, GrantInput{Code: "SOON", Type: domain.CouponFixedAmount, Value: dec(1000), StartsAt: &future})

	cases := []struct {
		code string
		want coupon.Reason
	}{
		{"  ", coupon.ReasonEmptyCode},
		{"NOPE", coupon.ReasonNotFound},
		{"old", coupon.ReasonExpired},
		{"SOON", coupon.ReasonNotStarted},
	}
	for _, tc := range cases {
		v, err := s.Use(ctx, "u1", tc.code, "")
		if err != nil {
			t.Fatalf("%q: unexpected error %v", tc.code, err)
		}
		if v.Valid || v.Reason != tc.want {
			t.Fatalf("%q: verdict %+v; want %s", tc.code, v, tc.want)
		}
	}

	_, c, _ := s.Validate(ctx, "u1", "OLD", dec(10000))
	if c == nil || c.IsUsed {
		t.Fatalf("rejected coupon must stay unused: %+v", c)
	}
}

func TestListEligible_RankedByDiscount(t *testing.T) {
	s := newTestCouponService(t)
	ctx := context.Background()
	u1 := "u1"

	grant := func(in GrantInput) {
		if _, err := s.Grant(ctx, in); err != nil {
			t.Fatalf("Grant %s: %v", in.Code, err)
		}
	}
	grant(GrantInput{UserID: &u1, Code: "TEN", Type: domain.CouponFixedAmount, Value: dec(10000)})
	grant(GrantInput{Code: "FIFTY", Type: domain.CouponFixedAmount, Value: dec(50000)})
	grant(GrantInput{UserID: &u1, Code: "THIRTY", Type: domain.CouponPercentage, Value: dec(15)})
	grant(GrantInput{UserID: &u1, Code: "BIGMIN", Type: domain.CouponFixedAmount, Value: dec(90000), MinSubtotal: decPtr(500000)})

	got, err := s.ListEligible(ctx, "u1", dec(200000))
	if err != nil {
		t.Fatalf("ListEligible: %v", err)
	}
	want := []int64{50000, 30000, 10000}
	if len(got) != len(want) {
		t.Fatalf("got %d eligible; want %d", len(got), len(want))
	}
	for i, w := range want {
		if !got[i].Discount.Equal(dec(w)) {
			t.Fatalf("rank %d discount = %s; want %d", i, got[i].Discount, w)
		}
	}

	if _, err := s.ListEligible(ctx, "u1", dec(-5)); !errors.Is(err, ErrInvalidSubtotal) {
		t.Fatalf("expected ErrInvalidSubtotal, got %v", err)
	}
}
