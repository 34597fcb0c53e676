// Package errors provides structured error types for fieldtrial.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, the HTTP API and the core
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The layout core raises exactly three kinds of failure:
//   - INVALID_CONFIG: non-positive usable dimensions, empty pools, zero-size grids
//   - CONSTRAINT_EXHAUSTED: a bounded random search ran out of attempts
//   - PARSE_ERROR: malformed input text such as a DMS anchor
//
// The remaining codes are used by the outer layers (lookups, I/O, transport).
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidConfig, "border %v too large for field %v", border, width)
//	if errors.Is(err, errors.ErrCodeInvalidConfig) {
//	    // Handle configuration error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeParse, origErr, "read table %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Core layout errors
	ErrCodeInvalidConfig       Code = "INVALID_CONFIG"
	ErrCodeConstraintExhausted Code = "CONSTRAINT_EXHAUSTED"
	ErrCodeParse               Code = "PARSE_ERROR"

	// Lookup errors
	ErrCodeUnknownLabel Code = "UNKNOWN_LABEL"
	ErrCodeNotFound     Code = "NOT_FOUND"

	// Input/output errors
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidInput  Code = "INVALID_INPUT"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// coder is implemented by typed errors that carry a code without being *Error.
type coder interface {
	error
	Code() Code
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error or a typed error with a matching code.
func Is(err error, code Code) bool {
	return GetCode(err) == code && code != ""
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error carries no code.
func GetCode(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return ""
}

// UserMessage returns a user-friendly message for the error: the messages
// of the first *Error in the chain and of its causes, without code prefixes.
// Other errors are returned as-is.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	if e.Cause == nil {
		return e.Message
	}
	cause := UserMessage(e.Cause)
	if e.Message == "" {
		return cause
	}
	return e.Message + ": " + cause
}

// ExhaustionError reports a bounded search that gave up.
// Callers may retry with a larger bound; nothing escalates automatically.
type ExhaustionError struct {
	Attempts int    // Number of draws made before giving up
	Message  string // What was being searched for
}

// Error implements the error interface.
func (e *ExhaustionError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "no valid arrangement found"
	}
	return fmt.Sprintf("%s: %s after %d attempts", ErrCodeConstraintExhausted, msg, e.Attempts)
}

// Code returns the error code for this error type.
func (e *ExhaustionError) Code() Code {
	return ErrCodeConstraintExhausted
}
