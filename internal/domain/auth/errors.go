package auth

import "errors"

// Sentinel errors for token and password handling.
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrPasswordMismatch = errors.New("password mismatch")
	ErrPasswordTooShort = errors.New("password too short")
	ErrNoSecret         = errors.New("signing secret not configured")
)
