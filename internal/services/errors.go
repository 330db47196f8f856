// Package services holds the application logic behind the HTTP and WebSocket
// transports: the dialogue orchestrator, chat transcripts, confirmation of
// proposed cart actions and coupon operations.
//
// The errors below are returned by service methods for predictable cases.
// Mapping them to status codes and user-facing messages is the handler's job.
package services

import "errors"

// Chat errors.
var (
	// ErrSessionNotFound indicates that the session does not exist or belongs
	// to another user.
	ErrSessionNotFound = errors.New("session not found")

	// ErrEmptyContent is returned when a chat message is blank after sanitizing.
	ErrEmptyContent = errors.New("message content is empty")

	// ErrContentTooLong is returned when a chat message exceeds the configured
	// rune limit.
	ErrContentTooLong = errors.New("message content too long")
)

// Action errors.
var (
	// ErrActionNotFound indicates that the pending action is unknown in this
	// session for this user.
	ErrActionNotFound = errors.New("action not found")

	// ErrActionResolved is returned when an action was already confirmed or
	// cancelled.
	ErrActionResolved = errors.New("action already resolved")

	// ErrBookUnavailable is returned when confirming an action whose book was
	// removed from the catalog after it was proposed.
	ErrBookUnavailable = errors.New("book no longer available")
)

// Coupon errors. Rule violations at use time are the coupon package's
// sentinels (coupon.ErrAlreadyUsed, coupon.ErrExpired, ...).
var (
	// ErrDuplicateCoupon is returned when granting a code that already exists
	// in the same scope.
	ErrDuplicateCoupon = errors.New("coupon code already exists")

	// ErrInvalidSubtotal is returned when a subtotal is negative.
	ErrInvalidSubtotal = errors.New("subtotal must not be negative")

	// ErrInvalidGrant wraps struct-level validation failures of a grant request.
	ErrInvalidGrant = errors.New("invalid coupon grant")
)
