// Package apperr defines the error kinds shared by the booking engine and
// the HTTP layer. Callers test for a kind with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrUpstream          = errors.New("upstream failure")
	ErrValidation        = errors.New("validation failed")
	ErrForbidden         = errors.New("forbidden")
)

// Error carries a kind, a message safe to show to clients, and an optional cause.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// New returns an error of the given kind.
func New(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap returns an error of the given kind that keeps err as its cause.
func Wrap(kind error, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// NotFound is shorthand for New(ErrNotFound, "<what> not found").
func NotFound(what string) *Error {
	return New(ErrNotFound, "%s not found", what)
}

// Message returns the client-facing message of err. Errors that carry no
// kind yield a generic message so internals are not leaked.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return "internal server error"
}
