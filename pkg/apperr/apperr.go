// Package apperr defines the tagged errors returned to the command boundary.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation        Kind = "ValidationError"
	KindNotFound          Kind = "NotFoundError"
	KindDuplicateUsername Kind = "DuplicateUsernameError"
	KindAuthentication    Kind = "AuthenticationError"
	KindNoSession         Kind = "NoSessionError"
	KindPermissionDenied  Kind = "PermissionDeniedError"
	KindIntegrity         Kind = "IntegrityError"
	KindResourceBusy      Kind = "ResourceBusyError"
	KindInternal          Kind = "InternalError"
)

// Error carries a Kind plus the operation that produced it. Two *Error values
// match under errors.Is when their kinds are equal, so the Err* sentinels
// below can be used as kind probes.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrDuplicateUsername = &Error{Kind: KindDuplicateUsername}
	ErrAuthentication    = &Error{Kind: KindAuthentication}
	ErrNoSession         = &Error{Kind: KindNoSession}
	ErrPermissionDenied  = &Error{Kind: KindPermissionDenied}
	ErrIntegrity         = &Error{Kind: KindIntegrity}
	ErrResourceBusy      = &Error{Kind: KindResourceBusy}
)

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Validation(op, format string, args ...any) *Error {
	return New(KindValidation, op, format, args...)
}

func NotFound(op, format string, args ...any) *Error {
	return New(KindNotFound, op, format, args...)
}

// KindOf reports the kind of the first *Error in err's chain, or KindInternal
// for anything untagged.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message is the caller-facing text for err. Untagged errors are not exposed
// verbatim since they may carry driver details.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Message != "" {
			return e.Message
		}
		if e.Kind == KindInternal {
			return "internal error"
		}
		return string(e.Kind)
	}
	return "internal error"
}
