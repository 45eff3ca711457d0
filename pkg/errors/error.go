// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories that mirror the failure taxonomy
// of the evaluation pipeline:
//   - General errors (1-99): Unknown and general errors
//   - Artifact errors (100-199): Declared code files, cards, or log areas absent
//   - Schema errors (200-299): Strategy output not in the required tabular shape
//   - Domain-inapplicable errors (300-399): Known multi-asset signatures on single-asset data
//   - Runtime errors (400-499): Hosted code load and execution failures
//   - Determinism errors (500-599): Trade logs differ across repeated runs
//   - Constraint errors (600-699): Declared risk constraints violated
//   - Data errors (700-799): Market data loading and validation errors
//
// Usage:
//
//	// Create a new error
//	err := errors.New(errors.ErrCodeNotTabular, "trade log is not tabular")
//
//	// Create a formatted error
//	err := errors.Newf(errors.ErrCodeSymbolNotFound, "symbol %s not found", symbol)
//
//	// Wrap an existing error
//	err := errors.Wrap(errors.ErrCodeDataQueryFailed, "failed to execute query", originalErr)
//
//	// Check error code
//	if errors.HasCode(err, errors.ErrCodeStrategyFileNotFound) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around the standard errors.Is function.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around the standard errors.As function.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode from an error if it's an *Error type.
// Returns ErrCodeUnknown if the error is not an *Error type.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// IsArtifactMissing reports whether the error is in the artifact-missing category.
func IsArtifactMissing(err error) bool {
	code := GetCode(err)

	return code >= 100 && code < 200
}

// IsSchemaViolation reports whether the error is in the schema-violation category.
func IsSchemaViolation(err error) bool {
	code := GetCode(err)

	return code >= 200 && code < 300
}

// IsDomainInapplicable reports whether the error marks a strategy that
// architecturally requires data this harness does not supply.
func IsDomainInapplicable(err error) bool {
	code := GetCode(err)

	return code >= 300 && code < 400
}
