package holdem

import (
	"errors"
	"fmt"
)

// Error kinds. Every error produced by the engine, the store and the table
// service wraps exactly one of these, so callers branch with errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrIllegalState  = errors.New("illegal state")
	ErrNotYourTurn   = errors.New("not your turn")
	ErrIllegalAction = errors.New("illegal action")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrValidation    = errors.New("validation failed")
	ErrConflict      = errors.New("concurrency conflict")
)

// Error is a kind plus a human readable reason.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Kind.Error() + ": " + e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error { return newError(ErrNotFound, format, args...) }

func IllegalState(format string, args ...any) error {
	return newError(ErrIllegalState, format, args...)
}

func NotYourTurn(format string, args ...any) error {
	return newError(ErrNotYourTurn, format, args...)
}

func IllegalAction(format string, args ...any) error {
	return newError(ErrIllegalAction, format, args...)
}

func Unauthorized(format string, args ...any) error {
	return newError(ErrUnauthorized, format, args...)
}

func Validation(format string, args ...any) error {
	return newError(ErrValidation, format, args...)
}

func Conflict(format string, args ...any) error { return newError(ErrConflict, format, args...) }

// Retriable reports whether the caller may resubmit the command after
// re-reading state.
func Retriable(err error) bool { return errors.Is(err, ErrConflict) }

// Kind returns the error kind err wraps, or nil for foreign errors.
func Kind(err error) error {
	for _, k := range []error{
		ErrNotFound, ErrIllegalState, ErrNotYourTurn, ErrIllegalAction,
		ErrUnauthorized, ErrValidation, ErrConflict,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
