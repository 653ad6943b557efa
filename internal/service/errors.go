// Package service holds the presence domain: the location ledger, the
// office check-in state machine and the read model that merges both
// for calendar views.  Handlers call into this package and translate
// its errors into HTTP responses.
package service

import (
	"errors"
	"fmt"
)

// Error kinds.  Each kind doubles as the wire code returned to clients.
var (
	ErrValidation       = errors.New("validation")
	ErrDuplicateCheckin = errors.New("duplicate_checkin")
	ErrSelfValidation   = errors.New("self_validation")
	ErrInvalidState     = errors.New("invalid_state")
	ErrAuthorization    = errors.New("forbidden")
	ErrPersistence      = errors.New("persistence")
)

var kinds = []error{
	ErrValidation,
	ErrDuplicateCheckin,
	ErrSelfValidation,
	ErrInvalidState,
	ErrAuthorization,
	ErrPersistence,
}

// Error is a domain failure of a known kind with a human readable
// message.  Err carries the underlying cause, if any.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap lets errors.Is match both the kind and the cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func validationf(format string, args ...any) *Error {
	return newError(ErrValidation, fmt.Sprintf(format, args...))
}

func persistence(op string, err error) *Error {
	return &Error{Kind: ErrPersistence, Message: op + " failed", Err: err}
}

// Code returns the wire code for err, or "" when err is not a domain
// error.
func Code(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k.Error()
		}
	}
	return ""
}

// Message returns the user facing message carried by err.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}
