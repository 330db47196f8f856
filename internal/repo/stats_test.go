package repo

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tbourn/go-bookshop-assistant/internal/domain"
)

func TestTurnsStats(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	s, _ := CreateSession(ctx, db, "u1")

	n, last, err := TurnsStats(ctx, db, s.ID)
	if err != nil || n != 0 || last != nil {
		t.Fatalf("empty session: n=%d last=%v err=%v", n, last, err)
	}

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		turn := &domain.ChatTurn{SessionID: s.ID, Role: domain.RoleUser, Content: "x", CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := CreateTurn(ctx, db, turn); err != nil {
			t.Fatalf("CreateTurn: %v", err)
		}
	}

	n, last, err = TurnsStats(ctx, db, s.ID)
	if err != nil || n != 3 || last == nil {
		t.Fatalf("TurnsStats: n=%d last=%v err=%v", n, last, err)
	}
	if want := base.Add(2 * time.Minute); !last.Equal(want) {
		t.Fatalf("max updated_at = %v; want %v", last, want)
	}
}

func TestTurnsStats_Error(t *testing.T) {
	db := newRepoDB(t)
	if err := db.Migrator().DropTable(&domain.ChatTurn{}); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if _, _, err := TurnsStats(context.Background(), db, "s1"); err == nil {
		t.Fatalf("expected error without table")
	}
}

func TestCouponsStats_CountsOwnedAndGlobal(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	u1, u2 := "u1", "u2"

	for _, c := range []domain.Coupon{
		{Code: "MINE", UserID: &u1},
		{Code: "GLOBAL"},
		{Code: "THEIRS", UserID: &u2},
	} {
		c := c
		c.ID = uuid.NewString()
		c.Type = domain.CouponFixedAmount
		c.Value = decimal.NewFromInt(1000)
		c.IsActive = true
		if err := CreateCoupon(ctx, db, &c); err != nil {
			t.Fatalf("CreateCoupon: %v", err)
		}
	}

	n, last, err := CouponsStats(ctx, db, "u1")
	if err != nil || n != 2 || last == nil {
		t.Fatalf("CouponsStats: n=%d last=%v err=%v", n, last, err)
	}
}
