// Package errors provides structured error types for relgraph.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the library, CLI and HTTP API
//   - Machine-readable error codes for programmatic handling
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - *NOT_FOUND: Resource not found
//   - UNSUPPORTED_* / NO_SUCH_*: Composition and forwarding failures
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidQuery, "unknown relation: %s", name)
//	if errors.Is(err, errors.ErrCodeInvalidQuery) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "failed to query %s", table)
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
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeInvalidQuery  Code = "INVALID_QUERY"
	ErrCodeInvalidPath   Code = "INVALID_PATH"
	ErrCodeInvalidName   Code = "INVALID_NAME"

	// Resource not found errors
	ErrCodeNotFound         Code = "NOT_FOUND"
	ErrCodeRelationNotFound Code = "RELATION_NOT_FOUND"

	// Composition errors
	ErrCodeUnsupportedRelation Code = "UNSUPPORTED_RELATION"
	ErrCodeNoSuchOperation     Code = "NO_SUCH_OPERATION"
	ErrCodeArityMismatch       Code = "ARITY_MISMATCH"

	// Network errors
	ErrCodeNetwork Code = "NETWORK_ERROR"
	ErrCodeTimeout Code = "TIMEOUT"

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

// coder is implemented by error types that carry their own code.
type coder interface {
	error
	Code() Code
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error or a typed error with a
// Code method whose code matches.
func Is(err error, code Code) bool {
	return GetCode(err) == code && code != ""
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if no error in the chain carries a code.
func GetCode(err error) Code {
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

// UnsupportedComposition returns the error raised when a child relation
// already carries a post-load mapper pipeline.
func UnsupportedComposition() *Error {
	return New(ErrCodeUnsupportedRelation, "combining with composite relations is not supported")
}

// NoSuchOperationError is returned when a named operation is not defined on
// a relation, whether it was invoked directly or forwarded through a graph.
type NoSuchOperationError struct {
	Relation  string // Name of the relation that rejected the operation
	Operation string // Name of the attempted operation
}

// Error implements the error interface.
func (e *NoSuchOperationError) Error() string {
	if e.Relation == "" {
		return fmt.Sprintf("no such operation %q", e.Operation)
	}
	return fmt.Sprintf("no such operation %q on relation %q", e.Operation, e.Relation)
}

// Code returns the error code for this error type.
func (e *NoSuchOperationError) Code() Code {
	return ErrCodeNoSuchOperation
}

// NoSuchOperation builds a NoSuchOperationError.
func NoSuchOperation(relation, operation string) error {
	return &NoSuchOperationError{Relation: relation, Operation: operation}
}
