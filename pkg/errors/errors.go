package errors

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// User-facing errors
	ErrorTypeValidation   ErrorType = "VALIDATION"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeRateLimit    ErrorType = "RATE_LIMIT"

	// Internal errors
	ErrorTypeInternal ErrorType = "INTERNAL"
	ErrorTypeDatabase ErrorType = "DATABASE"
	ErrorTypeExternal ErrorType = "EXTERNAL"
)

// AppError carries an error kind, the message shown to the client and
// the underlying cause, which is only ever logged.
type AppError struct {
	Type       ErrorType
	Message    string
	Details    map[string]interface{}
	Cause      error
	StackTrace string
	HTTPStatus int
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// IsUserError reports whether the error is safe to show verbatim.
func (e *AppError) IsUserError() bool {
	return e.HTTPStatus >= 400 && e.HTTPStatus < 500
}

// WithDetails adds error details
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// WithCause wraps an underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

func captureStackTrace() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	stack := ""
	for {
		frame, more := frames.Next()
		stack += fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function)
		if !more {
			break
		}
	}
	return stack
}

func newUserError(t ErrorType, status int, message string) *AppError {
	return &AppError{
		Type:       t,
		Message:    message,
		HTTPStatus: status,
	}
}

// NewValidationError creates a 400 error
func NewValidationError(message string) *AppError {
	return newUserError(ErrorTypeValidation, http.StatusBadRequest, message)
}

// NewNotFoundError creates a 404 error with a ready-made message
func NewNotFoundError(message string) *AppError {
	return newUserError(ErrorTypeNotFound, http.StatusNotFound, message)
}

// NewConflictError creates a 409 error
func NewConflictError(message string) *AppError {
	return newUserError(ErrorTypeConflict, http.StatusConflict, message)
}

// NewUnauthorizedError creates a 401 error
func NewUnauthorizedError(message string) *AppError {
	if message == "" {
		message = "Unauthorized."
	}
	return newUserError(ErrorTypeUnauthorized, http.StatusUnauthorized, message)
}

// NewForbiddenError creates a 403 error
func NewForbiddenError(message string) *AppError {
	if message == "" {
		message = "Forbidden."
	}
	return newUserError(ErrorTypeForbidden, http.StatusForbidden, message)
}

// NewRateLimitError creates a 429 error
func NewRateLimitError(limit int, window string) *AppError {
	return newUserError(ErrorTypeRateLimit, http.StatusTooManyRequests,
		fmt.Sprintf("Rate limit exceeded: %d requests per %s.", limit, window))
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		StackTrace: captureStackTrace(),
	}
}

// NewDatabaseError creates a database error
func NewDatabaseError(operation string, err error) *AppError {
	return &AppError{
		Type:       ErrorTypeDatabase,
		Message:    fmt.Sprintf("database operation '%s' failed", operation),
		Cause:      err,
		HTTPStatus: http.StatusInternalServerError,
		StackTrace: captureStackTrace(),
	}
}

// NewExternalError creates an error for a failed third-party call. It is
// an internal error from the client's point of view.
func NewExternalError(service string, err error) *AppError {
	return &AppError{
		Type:       ErrorTypeExternal,
		Message:    fmt.Sprintf("external service '%s' error", service),
		Cause:      err,
		HTTPStatus: http.StatusInternalServerError,
		StackTrace: captureStackTrace(),
	}
}

// GetAppError extracts AppError from an error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == errType
}

func IsNotFound(err error) bool     { return IsType(err, ErrorTypeNotFound) }
func IsValidation(err error) bool   { return IsType(err, ErrorTypeValidation) }
func IsForbidden(err error) bool    { return IsType(err, ErrorTypeForbidden) }
func IsUnauthorized(err error) bool { return IsType(err, ErrorTypeUnauthorized) }
func IsConflict(err error) bool     { return IsType(err, ErrorTypeConflict) }

// IsInternal reports whether err maps to a 500, including plain errors.
func IsInternal(err error) bool {
	appErr := GetAppError(err)
	return appErr == nil || appErr.HTTPStatus >= 500
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr := GetAppError(err); appErr != nil {
		return appErr
	}
	return NewInternalError(message).WithCause(err)
}
