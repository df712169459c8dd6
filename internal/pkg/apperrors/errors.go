package apperrors

import (
	"errors"
	"fmt"
)

// Domain errors. Every error a journal or notification operation returns
// wraps exactly one of these.
var (
	// ErrValidationFailed covers malformed input and invalid references such as non-student tag ids
	ErrValidationFailed = errors.New("validation failed")

	// ErrNotFoundOrForbidden is returned both when a record does not exist and when the
	// requester may not see it. Both cases produce the same response.
	ErrNotFoundOrForbidden = errors.New("not found or forbidden")

	// ErrConflict is reserved for concurrent modification that cannot be serialized
	ErrConflict = errors.New("conflict")

	// ErrTransportFailure marks a notification channel failure. It is logged and
	// never surfaces from a journal operation.
	ErrTransportFailure = errors.New("notification transport failure")
)

// Authentication errors
var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
	ErrUnauthorized = errors.New("unauthorized")
)

// Lookup errors used by repositories before they are mapped to a domain error
var (
	ErrResourceNotFound = errors.New("resource not found")
	ErrPermissionDenied = errors.New("permission denied")
)

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Code    string
	Details map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// WithCode adds an error code
func (e *CustomError) WithCode(code string) *CustomError {
	e.Code = code
	return e
}

// NewValidationError creates a validation error carrying a client-facing message
func NewValidationError(format string, args ...interface{}) error {
	return &CustomError{
		Err:     ErrValidationFailed,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewFieldValidationError creates a validation error for a single request field
func NewFieldValidationError(field, message string) error {
	return (&CustomError{
		Err:     ErrValidationFailed,
		Message: message,
	}).WithDetails(map[string]interface{}{"field": field})
}

// NewNotFoundOrForbiddenError creates the uniform "missing or not yours" error
func NewNotFoundOrForbiddenError(message string) error {
	return &CustomError{
		Err:     ErrNotFoundOrForbidden,
		Message: message,
	}
}

// NewConflictError creates a new custom error for conflict situations with a message
func NewConflictError(message string) error {
	return &CustomError{
		Err:     ErrConflict,
		Message: message,
	}
}

// NewTransportError wraps a channel failure so it can be classified with errors.Is
func NewTransportError(channel string, err error) error {
	return &CustomError{
		Err:     fmt.Errorf("%w: %s: %v", ErrTransportFailure, channel, err),
		Details: map[string]interface{}{"channel": channel},
	}
}

// Message returns the client-facing message of err when it carries one
func Message(err error) string {
	var ce *CustomError
	if errors.As(err, &ce) && ce.Message != "" {
		return ce.Message
	}
	return ""
}

// Is returns whether err matches target or any of errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}
	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
