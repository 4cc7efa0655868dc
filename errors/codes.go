package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Authentication/Authorization errors
const (
	// ErrCodeInvalidCredentials indicates a failed login, refresh, or
	// old-password check.
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	// ErrCodeInvalidToken indicates a missing, malformed, or expired token.
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"
	// ErrCodeAccessDenied indicates an inactive account or insufficient role.
	ErrCodeAccessDenied ErrorCode = "ACCESS_DENIED"
)

// Resource errors
const (
	// ErrCodeAlreadyExists indicates the resource already exists.
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// Validation errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Internal errors
const (
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)
