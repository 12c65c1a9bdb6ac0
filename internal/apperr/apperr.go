// Package apperr defines the classified errors returned by the booking engine.
//
// Every failure that leaves the service layer carries a stable Kind that
// callers can match with errors.Is against the exported sentinels, plus a
// human-readable message.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the machine-checkable classification of a failure.
type Kind string

const (
	KindInvalidRequest        Kind = "InvalidRequest"
	KindExperienceUnavailable Kind = "ExperienceUnavailable"
	KindInsufficientCapacity  Kind = "InsufficientCapacity"
	KindDuplicateBooking      Kind = "DuplicateBooking"
	KindNotFound              Kind = "NotFound"
	KindForbidden             Kind = "Forbidden"
	KindUnauthorized          Kind = "Unauthorized"
	KindInvalidState          Kind = "InvalidState"
	KindInvalidCode           Kind = "InvalidCode"
	KindNotDeletable          Kind = "NotDeletable"
	KindInternal              Kind = "Internal"
)

// Error is a classified failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so the sentinels below can be used
// with errors.Is regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is matching.
var (
	ErrInvalidRequest        = &Error{Kind: KindInvalidRequest}
	ErrExperienceUnavailable = &Error{Kind: KindExperienceUnavailable}
	ErrInsufficientCapacity  = &Error{Kind: KindInsufficientCapacity}
	ErrDuplicateBooking      = &Error{Kind: KindDuplicateBooking}
	ErrNotFound              = &Error{Kind: KindNotFound}
	ErrForbidden             = &Error{Kind: KindForbidden}
	ErrUnauthorized          = &Error{Kind: KindUnauthorized}
	ErrInvalidState          = &Error{Kind: KindInvalidState}
	ErrInvalidCode           = &Error{Kind: KindInvalidCode}
	ErrNotDeletable          = &Error{Kind: KindNotDeletable}
	ErrInternal              = &Error{Kind: KindInternal}
)

// New returns a classified error with a message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf is New with formatting.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf returns the classification of err. Unclassified errors are Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the human-readable message of err. Internal details of
// unclassified errors are not exposed.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "internal error"
}
