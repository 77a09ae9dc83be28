// Package errors provides coded domain errors for the library catalog.
//
// Every error that reaches a client carries a stable Code. The GraphQL layer
// renders the code into extensions.code and copies Extensions next to it; the
// REST layer maps the code to an HTTP status.
//
// Usage:
//
//	// In services - return coded errors
//	if user == nil {
//	    return nil, errors.Unauthenticated("Unauthorized")
//	}
//
//	// Wrap persistence failures with the arguments the caller supplied
//	return nil, errors.DatabaseError("Error adding book: "+err.Error(), err).
//	    WithExtension("invalidArgs", args)
//
//	// Check with errors.Is against a sentinel of the same code
//	if errors.Is(err, errors.ErrUnauthenticated) { ... }
package errors

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes surfaced to clients.
const (
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeInvalidToken    Code = "INVALID_TOKEN"
	CodeBadUserInput    Code = "BAD_USER_INPUT"
	CodeDatabase        Code = "DATABASE_ERROR"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidation      Code = "VALIDATION_ERROR"
	CodeRateLimited     Code = "RATE_LIMITED"
	CodeInternal        Code = "INTERNAL_SERVER_ERROR"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeUnauthenticated, CodeInvalidToken:
		return http.StatusUnauthorized
	case CodeBadUserInput, CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional extensions.
type Error struct {
	Code       Code           `json:"code"`
	Message    string         `json:"message"`
	Extensions map[string]any `json:"extensions,omitempty"`
	cause      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithExtension returns a copy of the error with one more extension entry.
func (e *Error) WithExtension(key string, value any) *Error {
	ext := make(map[string]any, len(e.Extensions)+1)
	maps.Copy(ext, e.Extensions)
	ext[key] = value
	return &Error{
		Code:       e.Code,
		Message:    e.Message,
		Extensions: ext,
		cause:      e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:       e.Code,
		Message:    e.Message,
		Extensions: e.Extensions,
		cause:      err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrUnauthenticated = &Error{Code: CodeUnauthenticated, Message: "Unauthorized"}
	ErrInvalidToken    = &Error{Code: CodeInvalidToken, Message: "invalid token"}
	ErrBadUserInput    = &Error{Code: CodeBadUserInput, Message: "bad user input"}
	ErrDatabase        = &Error{Code: CodeDatabase, Message: "database error"}
	ErrNotFound        = &Error{Code: CodeNotFound, Message: "not found"}
	ErrValidation      = &Error{Code: CodeValidation, Message: "validation failed"}
	ErrRateLimited     = &Error{Code: CodeRateLimited, Message: "too many requests"}
	ErrInternal        = &Error{Code: CodeInternal, Message: "internal server error"}
)

// Unauthenticated creates an error for operations that need a resolved user.
func Unauthenticated(msg string) *Error {
	return &Error{Code: CodeUnauthenticated, Message: msg}
}

// InvalidToken creates an error for a credential that failed verification.
func InvalidToken(msg string, cause error) *Error {
	return &Error{Code: CodeInvalidToken, Message: msg, cause: cause}
}

// BadUserInput creates a user-correctable input error.
func BadUserInput(msg string) *Error {
	return &Error{Code: CodeBadUserInput, Message: msg}
}

// BadUserInputf creates a user-correctable input error with formatted message.
func BadUserInputf(format string, args ...any) *Error {
	return &Error{Code: CodeBadUserInput, Message: fmt.Sprintf(format, args...)}
}

// DatabaseError wraps a persistence failure.
func DatabaseError(msg string, cause error) *Error {
	return &Error{Code: CodeDatabase, Message: msg, cause: cause}
}

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithFields creates a validation error listing the offending fields.
func ValidationWithFields(msg string, fields any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Extensions: map[string]any{"fields": fields}}
}

// RateLimited creates a rate limit error.
func RateLimited(msg string) *Error {
	return &Error{Code: CodeRateLimited, Message: msg}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
