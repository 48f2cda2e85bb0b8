// Package errors provides structured error types for trackview.
//
// Every failure that crosses a package boundary carries a machine-readable
// [Code] so callers (the CLI, the HTTP server, tests) can branch on the kind
// of failure without string matching.
//
// # Error Codes
//
//   - INVALID_*: input validation failures (arguments, blocks, dimensions)
//   - DEGENERATE_*: scales whose bounds collapse to a single point
//   - NOT_RENDERED: a frame was requested before any render completed
//   - STORE_*, FETCH_FAILED: failures of the backing document store
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidInput, "tracks must be >= 1, got %d", n)
//	if errors.Is(err, errors.ErrCodeInvalidInput) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeStoreWrite, origErr, "insert into %s", coll)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput      Code = "INVALID_INPUT"
	ErrCodeInvalidBlock      Code = "INVALID_BLOCK"
	ErrCodeInvalidDimensions Code = "INVALID_DIMENSIONS"
	ErrCodeInvalidName       Code = "INVALID_NAME"

	// Scale errors
	ErrCodeDegenerateDomain Code = "DEGENERATE_DOMAIN"
	ErrCodeDegenerateRange  Code = "DEGENERATE_RANGE"

	// Renderer state errors
	ErrCodeNotRendered Code = "NOT_RENDERED"

	// Store errors
	ErrCodeStoreConnection Code = "STORE_CONNECTION_FAILED"
	ErrCodeStoreWrite      Code = "STORE_WRITE_FAILED"
	ErrCodeFetch           Code = "FETCH_FAILED"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
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

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// HTTPStatus maps an error code to the status the board server answers with.
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case ErrCodeInvalidInput, ErrCodeInvalidBlock, ErrCodeInvalidDimensions,
		ErrCodeInvalidName, ErrCodeDegenerateDomain, ErrCodeDegenerateRange:
		return 400
	case ErrCodeNotRendered:
		return 409
	case ErrCodeStoreConnection, ErrCodeFetch:
		return 502
	default:
		return 500
	}
}
