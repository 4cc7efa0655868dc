// Package errors provides the unified error type for the authd service.
// It implements structured errors with machine-readable codes, HTTP status
// mapping, and a JSON response envelope.
package errors

import (
	"fmt"
	"net/http"
	"strings"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// HTTPStatus is the HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// --- Service Error Constructors ---

// InvalidCredentials covers bad logins, bad refresh tokens, and wrong old
// passwords. The message is deliberately generic so callers cannot tell an
// unknown email apart from a wrong password.
func InvalidCredentials() *AppError {
	return &AppError{
		Code: ErrCodeInvalidCredentials, Message: "Invalid email or password.",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// InvalidToken is returned for missing, malformed, or expired access tokens.
func InvalidToken() *AppError {
	return &AppError{
		Code: ErrCodeInvalidToken, Message: "Invalid or expired token.",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// AccessDenied is returned for inactive accounts and insufficient roles.
func AccessDenied(reason string) *AppError {
	if reason == "" {
		reason = "Access denied."
	}
	return &AppError{
		Code: ErrCodeAccessDenied, Message: reason,
		HTTPStatus: http.StatusForbidden,
	}
}

// RoleRequired is an AccessDenied variant naming the allowed role set.
func RoleRequired(roles []string) *AppError {
	return AccessDenied(fmt.Sprintf("This action requires one of these roles: %s", strings.Join(roles, ", ")))
}

// UserAlreadyExists is returned for duplicate emails and duplicate officer ids.
func UserAlreadyExists() *AppError {
	return &AppError{
		Code: ErrCodeAlreadyExists, Message: "User with this email already exists.",
		HTTPStatus: http.StatusBadRequest,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource string) *AppError {
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"resource": resource},
	}
}

// Internal creates a new AppError for an unexpected internal failure.
// The underlying error is kept as the cause but never sent to clients.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An internal error occurred. Please try again.",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}
