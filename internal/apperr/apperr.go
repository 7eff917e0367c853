// Package apperr defines the error taxonomy shared by stores, services and
// handlers. Every failure that reaches the HTTP boundary carries a Kind, so
// "sign in", "wrong role", "no such link" and "link already used" stay
// distinguishable all the way to the client.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error.
type Kind uint8

const (
	KindInternal Kind = iota
	KindAuthenticationRequired
	KindAuthorizationDenied
	KindNotFound
	KindConflict
	// KindGone is a Conflict on a consumed or expired token.
	KindGone
	KindValidation
	KindDependency
)

func (k Kind) String() string {
	switch k {
	case KindAuthenticationRequired:
		return "authentication_required"
	case KindAuthorizationDenied:
		return "authorization_denied"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindGone:
		return "gone"
	case KindValidation:
		return "validation"
	case KindDependency:
		return "dependency_failure"
	default:
		return "internal"
	}
}

// Error is a classified application error.
// Code is a stable machine-readable identifier (e.g. "link_already_used").
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	msg := e.Code
	if e.Message != "" {
		msg = e.Code + ": " + e.Message
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by Kind and Code, so sentinel values work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && (t.Code == "" || e.Code == t.Code)
}

func newf(kind Kind, code, format string, args ...any) *Error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Kind: kind, Code: code, Message: msg}
}

func Unauthenticated(code, format string, args ...any) *Error {
	return newf(KindAuthenticationRequired, code, format, args...)
}

func Forbidden(code, format string, args ...any) *Error {
	return newf(KindAuthorizationDenied, code, format, args...)
}

func NotFound(code, format string, args ...any) *Error {
	return newf(KindNotFound, code, format, args...)
}

func Conflict(code, format string, args ...any) *Error {
	return newf(KindConflict, code, format, args...)
}

func Gone(code, format string, args ...any) *Error {
	return newf(KindGone, code, format, args...)
}

// Invalid builds a validation error; details usually holds field violations.
func Invalid(code string, details any) *Error {
	return &Error{Kind: KindValidation, Code: code, Details: details}
}

// Dependency wraps a failure of an external collaborator.
func Dependency(code string, err error) *Error {
	return &Error{Kind: KindDependency, Code: code, Err: err}
}

// Internal wraps an unexpected failure.
func Internal(code string, err error) *Error {
	return &Error{Kind: KindInternal, Code: code, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the Code of the first *Error in err's chain, or "internal_error".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Code != "" {
		return e.Code
	}
	return "internal_error"
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsConflict reports a Conflict, including its Gone specialisation.
func IsConflict(err error) bool {
	k := KindOf(err)
	return err != nil && (k == KindConflict || k == KindGone)
}
