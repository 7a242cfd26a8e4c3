// Package derrors defines the error taxonomy shared across the view-model
// core. Every failure is returned as a value carrying a stable code so
// callers (and the HTTP layer) can react without string matching.
package derrors

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure.
type Code string

const (
	// CodeInvalidArgument marks malformed input; the offending record is
	// skipped, the rest of a batch proceeds.
	CodeInvalidArgument Code = "INVALID_ARGUMENT"

	// CodeNotFound marks a lookup or action against an unknown id.
	CodeNotFound Code = "NOT_FOUND"

	// CodeAlreadyExists marks an attempt to raise an alert under an id that
	// is already in the ledger.
	CodeAlreadyExists Code = "ALREADY_EXISTS"

	// CodeFailedPrecondition marks an illegal lifecycle transition. State is
	// left unchanged.
	CodeFailedPrecondition Code = "FAILED_PRECONDITION"

	// CodeUnknown is returned by GetCode for errors raised outside this
	// taxonomy.
	CodeUnknown Code = "UNKNOWN"
)

// Error is the concrete error type used throughout the core.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports equality by code, so two independently constructed NOT_FOUND
// errors match under errors.Is.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// New creates an error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an error with a code and formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause. Returns nil when
// err is nil.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Cause: err}
}

// GetCode extracts the code from any error in the chain, or CodeUnknown.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsCode reports whether any error in the chain carries the given code.
func IsCode(err error, code Code) bool {
	return GetCode(err) == code
}
