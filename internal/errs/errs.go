// Package errs holds the error taxonomy shared by the ledger engine and its
// collaborators. Concrete errors are marked with one of the sentinel kinds so
// callers can branch with Is regardless of the wrapping chain.
package errs

import (
	cr "github.com/cockroachdb/errors"
)

var (
	// ErrValidation marks malformed user input (non-integer amounts, empty names).
	ErrValidation = New("validation error")

	// ErrState marks an operation that is invalid for the current shift state.
	ErrState = New("state error")

	// ErrNotFound marks an unknown catalog item, sale or archive record.
	ErrNotFound = New("not found")

	// ErrIO marks a backup or archive read/write failure.
	ErrIO = New("io error")
)

func New(msg string) error {
	return cr.New(msg)
}

func Newf(format string, args ...interface{}) error {
	return cr.Newf(format, args...)
}

func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return cr.Wrap(err, msg)
}

func Mark(err error, markErr error) error {
	if err == nil {
		return markErr
	}
	return cr.Mark(err, markErr)
}

// Validation returns a new error marked as ErrValidation.
func Validation(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrValidation)
}

// State returns a new error marked as ErrState.
func State(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrState)
}

// NotFound returns a new error marked as ErrNotFound.
func NotFound(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrNotFound)
}

// IO wraps err with msg and marks it as ErrIO.
func IO(err error, msg string) error {
	return Mark(Wrap(err, msg), ErrIO)
}

func Is(err, reference error) bool {
	return cr.Is(err, reference)
}
