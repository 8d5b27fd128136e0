// Package apperror provides the error types returned by services. Each
// error carries an HTTP status and a message that is safe to show to the
// client; the underlying cause is kept for logging only.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is the base error type for all domain errors.
type AppError struct {
	// Code is the HTTP status code.
	Code int `json:"-"`

	// Type is a machine-readable classifier such as "not_found".
	Type string `json:"error"`

	// Message is a human-readable description safe for the client.
	Message string `json:"message"`

	// Internal holds the underlying error. Never exposed to the client.
	Internal error `json:"-"`
}

func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Internal
}

// Is matches two AppErrors by type and message so that a sentinel still
// matches after it has been wrapped with an internal cause.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Message == t.Message
}

// Wrap returns a copy of e carrying err as its internal cause.
func (e *AppError) Wrap(err error) *AppError {
	cp := *e
	cp.Internal = err
	return &cp
}

func NewValidation(message string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Type: "validation_error", Message: message}
}

func NewNotFound(message string) *AppError {
	return &AppError{Code: http.StatusNotFound, Type: "not_found", Message: message}
}

// NewUnauthorized is the AuthError class: bad or missing credentials.
func NewUnauthorized(message string) *AppError {
	return &AppError{Code: http.StatusUnauthorized, Type: "unauthorized", Message: message}
}

// NewForbidden is for callers that are authenticated but not allowed.
func NewForbidden(message string) *AppError {
	return &AppError{Code: http.StatusForbidden, Type: "forbidden", Message: message}
}

func NewConflict(message string) *AppError {
	return &AppError{Code: http.StatusConflict, Type: "conflict", Message: message}
}

// NewUpstream reports a failure of the mailer or the media host.
func NewUpstream(message string, err error) *AppError {
	return &AppError{Code: http.StatusBadGateway, Type: "upstream_failure", Message: message, Internal: err}
}

// NewInternal creates a 500 error. The client only sees a generic message.
func NewInternal(err error) *AppError {
	return &AppError{
		Code:     http.StatusInternalServerError,
		Type:     "internal_error",
		Message:  "An unexpected error occurred. Please try again.",
		Internal: err,
	}
}

// As returns err as an *AppError, converting anything else to an
// internal error.
func As(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternal(err)
}

// SafeMessage returns the client-safe message of err.
func SafeMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "an unexpected error occurred"
}

// SafeCode returns the HTTP status of err, or 500 for foreign errors.
func SafeCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return http.StatusInternalServerError
}
