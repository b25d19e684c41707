package services

import (
	"errors"

	"github.com/samber/oops"

	"github.com/TrustyKrab/Englix-Server/internal/store"
)

var (
	// ErrAccountNotFound is returned when no user matches the lookup.
	ErrAccountNotFound = errors.New("account not found")

	// ErrDuplicateEmail is returned when the email belongs to another user.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrDuplicateUsername is returned when the username belongs to another user.
	ErrDuplicateUsername = errors.New("username already registered")

	// ErrInvalidCredentials is returned when the password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken is returned for tampered, expired, or wrong-purpose tokens.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrValidation is returned when input is missing or malformed.
	ErrValidation = errors.New("validation failed")

	// ErrEmailDelivery is returned when the mail collaborator reports a failure.
	ErrEmailDelivery = errors.New("email delivery failed")
)

// translateStoreError maps store sentinels to service errors and wraps
// anything else as an upstream failure tagged with the operation.
func translateStoreError(domain, operation string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrAccountNotFound
	case errors.Is(err, store.ErrDuplicateEmail):
		return ErrDuplicateEmail
	case errors.Is(err, store.ErrDuplicateUsername):
		return ErrDuplicateUsername
	}
	return oops.In(domain).
		Code("STORE_FAILURE").
		With("operation", operation).
		Wrap(err)
}
