// Package storeerr defines the typed error taxonomy the Store returns.
//
// Store operations tag the failures they classify (missing or colliding
// mnemonics, invalid input, model failures and most database failures)
// with one of these kinds. Some database errors, such as a failed
// transaction commit or row scan, are returned without a Kind, and
// KindOf reports "" for them. Callers should branch on Kind, not on
// message text.
package storeerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a Store error. It is not a Go error type itself —
// Error carries one.
type Kind string

const (
	NotFound           Kind = "not_found"
	AlreadyExists      Kind = "already_exists"
	InvalidInput       Kind = "invalid_input"
	IntegrityViolation Kind = "integrity_violation"
	BackendFailure     Kind = "backend_failure"
	ModelFailure       Kind = "model_failure"
)

// Error is a Kind-tagged error carrying the mnemonic it concerns, when
// one is known.
type Error struct {
	Kind     Kind
	Mnemonic string
	msg      string
	cause    error
}

func (e *Error) Error() string {
	if e.Mnemonic != "" {
		if e.cause != nil {
			return fmt.Sprintf("%s: %s (mnemonic=%q): %v", e.Kind, e.msg, e.Mnemonic, e.cause)
		}
		return fmt.Sprintf("%s: %s (mnemonic=%q)", e.Kind, e.msg, e.Mnemonic)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a Kind-tagged error with no wrapped cause.
func New(kind Kind, mnemonic, msg string) *Error {
	return &Error{Kind: kind, Mnemonic: mnemonic, msg: msg}
}

// Newf creates a Kind-tagged error with a formatted message.
func Newf(kind Kind, mnemonic, format string, args ...any) *Error {
	return &Error{Kind: kind, Mnemonic: mnemonic, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a Kind and mnemonic to an underlying cause, capturing a
// stack trace at the call site via pkg/errors.
func Wrap(cause error, kind Kind, mnemonic, msg string) *Error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Mnemonic: mnemonic, msg: msg, cause: errors.WithStack(cause)}
}

// KindOf extracts the Kind from err, or "" if err is nil or not one of
// ours.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

func IsNotFound(err error) bool           { return Is(err, NotFound) }
func IsAlreadyExists(err error) bool      { return Is(err, AlreadyExists) }
func IsInvalidInput(err error) bool       { return Is(err, InvalidInput) }
func IsIntegrityViolation(err error) bool { return Is(err, IntegrityViolation) }
func IsBackendFailure(err error) bool     { return Is(err, BackendFailure) }
func IsModelFailure(err error) bool       { return Is(err, ModelFailure) }
