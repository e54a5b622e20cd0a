package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrUserExists         = errors.New("identity already exists")
	ErrProviderLinked     = errors.New("provider already linked to a different account")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("authentication failed")
	ErrSessionNotFound    = errors.New("session not found")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrUnknownProvider    = errors.New("unknown identity provider")
	ErrInvalidOAuthState  = errors.New("invalid oauth state")
	ErrBridgeFailed       = errors.New("external identity resolution failed")
	ErrTooManyAttempts    = errors.New("too many login attempts")
)

// RejectReason says why the local strategy refused a credential pair.
type RejectReason string

const (
	RejectNoSuchUser  RejectReason = "no-such-user"
	RejectBadPassword RejectReason = "bad-password"
)

// AuthRejection is returned by local authentication. It matches
// ErrInvalidCredentials so transport code never needs the reason.
type AuthRejection struct {
	Reason RejectReason
}

func (e *AuthRejection) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidCredentials, e.Reason)
}

func (e *AuthRejection) Unwrap() error { return ErrInvalidCredentials }

// ValidationError carries a field-level message and matches ErrValidation.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a ValidationError.
func Invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
