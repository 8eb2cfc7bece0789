// Package errors provides coded domain errors for the catalog sourcing pipeline.
//
// Usage:
//
//	// In clients - return typed errors
//	if attempts == policy.MaxAttempts {
//	    return errors.FetchFailedf("GET %s failed after %d attempts", url, attempts).WithCause(lastErr)
//	}
//
//	// In the pipeline - check with errors.Is
//	if errors.Is(err, errors.ErrDataIntegrity) {
//	    log.Error("catalog is inconsistent", "error", err)
//	}
//
//	// Or use the Code directly for switch statements
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    switch domainErr.Code {
//	    case errors.CodePricing:
//	        diagnostics.Add(domainErr)
//	    }
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
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

// Error codes used throughout the application.
const (
	CodeNotFound       Code = "NOT_FOUND"
	CodeValidation     Code = "VALIDATION"
	CodeInternal       Code = "INTERNAL"
	CodeConfig         Code = "CONFIG"
	CodeAuth           Code = "AUTH"
	CodeFetchFailed    Code = "FETCH_FAILED"
	CodeDataIntegrity  Code = "DATA_INTEGRITY"
	CodePricing        Code = "PRICING"
	CodeRecommendation Code = "RECOMMENDATION"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeValidation:
		return http.StatusBadRequest
	case CodeAuth:
		return http.StatusUnauthorized
	case CodeFetchFailed:
		return http.StatusBadGateway
	case CodeDataIntegrity:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error  // unexported, for wrapping
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

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
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

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound       = &Error{Code: CodeNotFound, Message: "not found"}
	ErrValidation     = &Error{Code: CodeValidation, Message: "validation error"}
	ErrInternal       = &Error{Code: CodeInternal, Message: "internal error"}
	ErrConfig         = &Error{Code: CodeConfig, Message: "invalid configuration"}
	ErrAuth           = &Error{Code: CodeAuth, Message: "credential exchange failed"}
	ErrFetchFailed    = &Error{Code: CodeFetchFailed, Message: "fetch failed"}
	ErrDataIntegrity  = &Error{Code: CodeDataIntegrity, Message: "data integrity violation"}
	ErrPricing        = &Error{Code: CodePricing, Message: "pricing resolution failed"}
	ErrRecommendation = &Error{Code: CodeRecommendation, Message: "recommendation fetch failed"}
)

// Constructor functions for creating errors with custom messages.

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Internalf creates an internal error with formatted message.
func Internalf(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}

// Configf creates a configuration error with formatted message.
func Configf(format string, args ...any) *Error {
	return &Error{Code: CodeConfig, Message: fmt.Sprintf(format, args...)}
}

// Auth creates a credential exchange error.
func Auth(msg string) *Error {
	return &Error{Code: CodeAuth, Message: msg}
}

// FetchFailedf creates a fetch failure with formatted message.
func FetchFailedf(format string, args ...any) *Error {
	return &Error{Code: CodeFetchFailed, Message: fmt.Sprintf(format, args...)}
}

// Pricingf creates a pricing error with formatted message.
func Pricingf(format string, args ...any) *Error {
	return &Error{Code: CodePricing, Message: fmt.Sprintf(format, args...)}
}

// Recommendationf creates a recommendation error with formatted message.
func Recommendationf(format string, args ...any) *Error {
	return &Error{Code: CodeRecommendation, Message: fmt.Sprintf(format, args...)}
}

// DataIntegrity creates a single aggregate error from a set of violations.
// The violations are kept as Details so callers can list them individually.
func DataIntegrity(collection string, violations []string) *Error {
	return &Error{
		Code: CodeDataIntegrity,
		Message: fmt.Sprintf("%s: %d data integrity violation(s):\n%s",
			collection, len(violations), strings.Join(violations, "\n")),
		Details: violations,
	}
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
