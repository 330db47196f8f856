package domain

import (
	"testing"
	"time"
)

func TestIdempotency_UniquePerUserSessionKey(t *testing.T) {
	db := newDomainDB(t)

	if !db.Migrator().HasIndex(&Idempotency{}, "ux_user_session_key") {
		t.Fatalf("expected unique index ux_user_session_key")
	}

	now := time.Now().UTC()
	first := &Idempotency{
		ID: "i1", UserID: "u1", SessionID: "s1", Key: "k1",
		TurnID: "t1", Status: 200, ExpiresAt: now.Add(time.Hour),
	}
	if err := db.Create(first).Error; err != nil {
		t.Fatalf("insert first: %v", err)
	}
	if first.CreatedAt.IsZero() {
		t.Fatalf("CreatedAt should be set automatically")
	}

	dup := &Idempotency{
		ID: "i2", UserID: "u1", SessionID: "s1", Key: "k1",
		TurnID: "t2", Status: 200, ExpiresAt: now.Add(time.Hour),
	}
	if err := db.Create(dup).Error; err == nil {
		t.Fatalf("expected unique violation for duplicate (user, session, key)")
	}

	other := &Idempotency{
		ID: "i3", UserID: "u1", SessionID: "s2", Key: "k1",
		TurnID: "t3", Status: 200, ExpiresAt: now.Add(time.Hour),
	}
	if err := db.Create(other).Error; err != nil {
		t.Fatalf("same key in another session should be allowed: %v", err)
	}
}
