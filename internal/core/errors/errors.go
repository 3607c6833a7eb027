package errors

import (
	"errors"
)

// Domain errors - these represent business rule violations
var (
	// Handshake & authorization
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("action forbidden")

	// Message relay
	ErrStoreUnavailable = errors.New("dispute store unavailable")
	ErrDisputeClosed    = errors.New("dispute no longer accepts messages")

	// Lookups
	ErrDisputeNotFound = errors.New("dispute not found")
	ErrNotFound        = errors.New("resource not found")

	// Generic
	ErrInternal   = errors.New("internal server error")
	ErrBadRequest = errors.New("bad request")
)

// AppError wraps errors with additional context for HTTP responses
type AppError struct {
	Err        error  // The underlying error
	Message    string // User-friendly message
	Code       string // Machine-readable error code
	StatusCode int    // HTTP status code
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error constructors for common cases
func NewBadRequestError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "BAD_REQUEST",
		StatusCode: 400,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Err:        ErrUnauthenticated,
		Message:    message,
		Code:       "UNAUTHORIZED",
		StatusCode: 401,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Err:        ErrForbidden,
		Message:    message,
		Code:       "FORBIDDEN",
		StatusCode: 403,
	}
}

func NewNotFoundError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "NOT_FOUND",
		StatusCode: 404,
	}
}

func NewUnavailableError(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "A downstream dependency is unavailable",
		Code:       "UNAVAILABLE",
		StatusCode: 503,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "An unexpected error occurred",
		Code:       "INTERNAL_ERROR",
		StatusCode: 500,
	}
}

// CodeFor maps a domain error to the machine-readable code sent in error
// events over the socket.
func CodeFor(err error) string {
	switch {
	case errors.Is(err, ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, ErrUnauthenticated):
		return "UNAUTHORIZED"
	case errors.Is(err, ErrStoreUnavailable):
		return "STORE_UNAVAILABLE"
	case errors.Is(err, ErrDisputeClosed):
		return "DISPUTE_CLOSED"
	case errors.Is(err, ErrDisputeNotFound):
		return "NOT_FOUND"
	default:
		return "BAD_REQUEST"
	}
}
