package errors

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrTooManyLoginAttempts = errors.New("too many failed login attempts")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrEmailAlreadyInUse    = errors.New("email already in use")
	ErrIPBlocked            = errors.New("ip address is blocked for this account")
	ErrAccountLocked        = errors.New("account is locked")
	ErrTokenMalformed       = errors.New("token malformed")
	ErrTokenExpired         = errors.New("token expired")
	ErrTokenRevoked         = errors.New("token revoked")
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
)

// RateLimitError carries how long the caller has to wait before login
// attempts are accepted again. It unwraps to ErrTooManyLoginAttempts so
// callers can keep matching with errors.Is.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many failed login attempts, retry after %s", e.RetryAfter.Round(time.Second))
}

func (e *RateLimitError) Unwrap() error {
	return ErrTooManyLoginAttempts
}
