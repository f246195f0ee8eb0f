// Package service implements the authentication and family membership
// engines.  Every operation returns either a result or an *Error whose Kind
// is one of the sentinels below; transports map the Kind to a status code.
package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrInternal     = errors.New("internal failure")

	// ErrInvalidOrExpired rejects a one-time code that is absent, wrong,
	// expired or already consumed.
	ErrInvalidOrExpired = fmt.Errorf("invalid or expired code: %w", ErrValidation)
	// ErrInvalidRefreshToken rejects a refresh token that is not the stored
	// one or fails verification.
	ErrInvalidRefreshToken = fmt.Errorf("invalid refresh token: %w", ErrUnauthorized)
	// ErrInvalidAccessToken rejects an access token that cannot be decoded.
	ErrInvalidAccessToken = fmt.Errorf("invalid access token: %w", ErrUnauthorized)
)

// Error is the failure type returned by every operation.  Message is stable
// and safe to show to callers; Err is the underlying cause, if any.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func fail(kind error, msg string) *Error { return &Error{Kind: kind, Message: msg} }

func failWith(kind error, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func internal(msg string, err error) *Error { return failWith(ErrInternal, msg, err) }

// AsError extracts the *Error from err, wrapping unknown errors as internal
// failures.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return internal("Internal server error", err)
}
