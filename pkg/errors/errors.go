package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers deciding whether to retry.
type Kind int

const (
	// KindValidation: malformed input, never retried.
	KindValidation Kind = iota
	// KindStateConflict: wrong state for the operation, caller may retry after re-reading.
	KindStateConflict
	// KindExternal: a collaborator (oracle, payment rail) failed, whole operation may be retried.
	KindExternal
	// KindInvariant: a modeling bug, fatal and never retried.
	KindInvariant
	// KindNotFound: referenced record does not exist.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindStateConflict:
		return "state_conflict"
	case KindExternal:
		return "external"
	case KindInvariant:
		return "invariant"
	case KindNotFound:
		return "not_found"
	}
	return "unknown"
}

// Error carries a Kind alongside the wrapped cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the Kind of err, or KindExternal for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindExternal
}

func IsValidation(err error) bool    { return KindOf(err) == KindValidation }
func IsStateConflict(err error) bool { return KindOf(err) == KindStateConflict }
func IsExternal(err error) bool      { return KindOf(err) == KindExternal }
func IsInvariant(err error) bool     { return KindOf(err) == KindInvariant }
func IsNotFound(err error) bool      { return KindOf(err) == KindNotFound }

// Is / As re-exports so callers do not need both packages.
func Is(err, target error) bool { return errors.Is(err, target) }
func As(err error, target any) bool { return errors.As(err, target) }
