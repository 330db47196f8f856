package coupon

import "errors"

// Use-time rejections. Validate reports the same rules as a Verdict instead.
var (
	ErrInactive    = errors.New("coupon is inactive")
	ErrAlreadyUsed = errors.New("coupon already used")
	ErrNotStarted  = errors.New("coupon not started")
	ErrExpired     = errors.New("coupon expired")
)

// Grant-time configuration errors.
var (
	ErrInvalidCode       = errors.New("invalid coupon code")
	ErrInvalidType       = errors.New("invalid coupon type")
	ErrInvalidPercentage = errors.New("percentage value must be in (0, 100]")
	ErrInvalidFixed      = errors.New("fixed amount must be greater than 0")
	ErrInvalidWindow     = errors.New("starts_at must be before expires_at")
	ErrInvalidAmount     = errors.New("amount must not be negative")
)
