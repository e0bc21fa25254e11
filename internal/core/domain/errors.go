package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrAuthorizationDenied  = errors.New("authorization denied")
	ErrValidationFailed     = errors.New("validation failed")
	ErrStoreUnavailable     = errors.New("store unavailable")
	ErrUserExists           = errors.New("user already exists")
)

// Not-found errors for each aggregate. Both match ErrNotFound with errors.Is.
var (
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)
	ErrBookNotFound = fmt.Errorf("book %w", ErrNotFound)
)

// Unavailable wraps a driver or connectivity failure so callers can tell it
// apart from a missing record without inspecting driver types.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}
