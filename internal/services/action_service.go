// Package services – ActionService
//
// Bot turns only propose cart changes. ActionService is the explicit second
// step: the user confirms (the book lands in the cart) or cancels. Each
// action resolves at most once; the pending→resolved transition is a
// compare-and-swap in the database.

package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-bookshop-assistant/internal/domain"
	"github.com/tbourn/go-bookshop-assistant/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// CartService mutates user carts.
type CartService struct {
	DB *gorm.DB
}

// AddItem adds qty of a book to the user's cart. A book missing from the
// catalog yields ErrBookUnavailable.
func (s *CartService) AddItem(ctx context.Context, db *gorm.DB, userID, bookID string, qty int) error {
	if db == nil {
		db = s.DB
	}
	if _, err := repo.GetBook(ctx, db, bookID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrBookUnavailable
		}
		return err
	}
	return repo.AddCartItem(ctx, db, userID, bookID, qty)
}

// List returns the user's cart.
func (s *CartService) List(ctx context.Context, userID string) ([]domain.CartItem, error) {
	return repo.ListCartItems(ctx, s.DB, userID)
}

// ActionService confirms or cancels proposed actions.
type ActionService struct {
	DB   *gorm.DB
	Cart *CartService
	Now  func() time.Time
}

// NewActionService wires an ActionService and its CartService on db.
func NewActionService(db *gorm.DB) *ActionService {
	return &ActionService{DB: db, Cart: &CartService{DB: db}, Now: time.Now}
}

func (s *ActionService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// Confirm executes a pending action. Resolution and the cart write commit
// together; if the book has left the catalog the action stays pending and
// ErrBookUnavailable is returned.
func (s *ActionService) Confirm(ctx context.Context, userID, sessionID, actionID string) (*domain.PendingAction, error) {
	tr := otel.Tracer("services/ActionService")
	ctx, span := tr.Start(ctx, "Confirm",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("action.id", actionID),
		),
	)
	defer span.End()

	return s.resolve(ctx, userID, sessionID, actionID, domain.ActionConfirmed, func(tx *gorm.DB, a *domain.PendingAction) error {
		return s.Cart.AddItem(ctx, tx, userID, a.BookID, a.Quantity)
	})
}

// Cancel drops a pending action without touching the cart.
func (s *ActionService) Cancel(ctx context.Context, userID, sessionID, actionID string) (*domain.PendingAction, error) {
	tr := otel.Tracer("services/ActionService")
	ctx, span := tr.Start(ctx, "Cancel",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("action.id", actionID),
		),
	)
	defer span.End()

	return s.resolve(ctx, userID, sessionID, actionID, domain.ActionCancelled, nil)
}

func (s *ActionService) resolve(ctx context.Context, userID, sessionID, actionID string, to domain.ActionStatus, effect func(*gorm.DB, *domain.PendingAction) error) (*domain.PendingAction, error) {
	a, err := repo.GetPendingAction(ctx, s.DB, sessionID, userID, actionID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrActionNotFound
		}
		return nil, err
	}
	if a.Status != domain.ActionPending {
		return nil, ErrActionResolved
	}

	at := s.now()
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.ResolvePendingAction(ctx, tx, a.ID, to, at); err != nil {
			return err
		}
		if effect != nil {
			return effect(tx, a)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repo.ErrVersionConflict) {
			return nil, ErrActionResolved
		}
		return nil, err
	}
	a.Status, a.ResolvedAt = to, &at
	return a, nil
}
