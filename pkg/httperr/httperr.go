package httperr

import (
	"fmt"
	"net/http"
)

// StatusError is a caller-facing error carrying an explicit HTTP status.
// Handlers map it straight onto the response; anything else surfaces as 500.
type StatusError struct {
	Code    int    // HTTP status code
	Message string // safe for the client, never an internal stack trace
}

// Error implements the error interface.
func (e StatusError) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// New creates a StatusError with the given status code and message.
func New(code int, format string, args ...any) StatusError {
	return StatusError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// BadRequest creates a 400 StatusError.
func BadRequest(format string, args ...any) StatusError {
	return New(http.StatusBadRequest, format, args...)
}

// Unauthorized creates a 401 StatusError.
func Unauthorized(format string, args ...any) StatusError {
	return New(http.StatusUnauthorized, format, args...)
}

// Forbidden creates a 403 StatusError.
func Forbidden(format string, args ...any) StatusError {
	return New(http.StatusForbidden, format, args...)
}

// Conflict creates a 409 StatusError.
func Conflict(format string, args ...any) StatusError {
	return New(http.StatusConflict, format, args...)
}

// Internal creates a 500 StatusError.
func Internal(format string, args ...any) StatusError {
	return New(http.StatusInternalServerError, format, args...)
}
