// Package errors classifies every failure the client reports. API failures
// carry the HTTP status and server detail they came from; client-side
// outcomes (no session, canceled, superseded) never reached the API.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// Errors reported by the API
	ErrorTypeValidation   ErrorType = "VALIDATION"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeUnavailable  ErrorType = "UNAVAILABLE"
	ErrorTypeUnknown      ErrorType = "UNKNOWN"

	// Transport errors
	ErrorTypeNetwork ErrorType = "NETWORK"

	// Client-side outcomes that never reached the API or were discarded
	ErrorTypeUnauthenticated ErrorType = "UNAUTHENTICATED"
	ErrorTypeCanceled        ErrorType = "CANCELED"
	ErrorTypeStale           ErrorType = "STALE"
)

// AppError is a classified client error. Detail holds the server's own text
// when the API supplied one.
type AppError struct {
	Type       ErrorType      `json:"type"`
	Message    string         `json:"message"`
	Detail     string         `json:"detail,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`
	HTTPStatus int            `json:"-"`
}

// New creates an error of type t. API types get their canonical status.
func New(t ErrorType, message string) *AppError {
	return &AppError{Type: t, Message: message, HTTPStatus: statusForType(t)}
}

func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(strings.ToLower(string(e.Type)))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithDetails attaches per-field details
func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

// WithCause records the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// WithStatus records the HTTP status the error was derived from
func (e *AppError) WithStatus(status int) *AppError {
	e.HTTPStatus = status
	return e
}

func NewValidationError(message string) *AppError {
	return New(ErrorTypeValidation, message)
}

func NewUnauthorizedError(message string) *AppError {
	return New(ErrorTypeUnauthorized, orDefault(message, "unauthorized"))
}

func NewForbiddenError(message string) *AppError {
	return New(ErrorTypeForbidden, orDefault(message, "forbidden"))
}

// NewNotFoundError reports that resource (a capitalized noun, "Idea") does not exist
func NewNotFoundError(resource string) *AppError {
	return New(ErrorTypeNotFound, resource+" not found")
}

func NewUnavailableError(service string) *AppError {
	return New(ErrorTypeUnavailable, fmt.Sprintf("service %q is unavailable", service))
}

// NewUnknownError is for responses that fit no other class
func NewUnknownError(message string) *AppError {
	return New(ErrorTypeUnknown, message)
}

func NewNetworkError(message string, err error) *AppError {
	return New(ErrorTypeNetwork, message).WithCause(err)
}

// NewUnauthenticatedError is returned when an action needs a session and there is none
func NewUnauthenticatedError(message string) *AppError {
	return New(ErrorTypeUnauthenticated, orDefault(message, "no active session"))
}

// NewCanceledError is for actions whose caller went away
func NewCanceledError(operation string, err error) *AppError {
	return New(ErrorTypeCanceled, fmt.Sprintf("%s canceled", operation)).WithCause(err)
}

// NewStaleError is for completions superseded by a newer request
func NewStaleError(operation string) *AppError {
	return New(ErrorTypeStale, fmt.Sprintf("%s superseded by a newer request", operation))
}

func orDefault(message, fallback string) string {
	if message == "" {
		return fallback
	}
	return message
}

func statusForType(t ErrorType) int {
	switch t {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case ErrorTypeForbidden:
		return http.StatusForbidden
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeConflict:
		return http.StatusConflict
	case ErrorTypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return 0
	}
}

// IsAppError reports whether err's chain holds an AppError
func IsAppError(err error) bool {
	return GetAppError(err) != nil
}

// GetAppError extracts AppError from an error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// TypeOf returns the error type, or UNKNOWN for errors that are not AppErrors
func TypeOf(err error) ErrorType {
	if appErr := GetAppError(err); appErr != nil {
		return appErr.Type
	}
	return ErrorTypeUnknown
}

func IsValidation(err error) bool      { return TypeOf(err) == ErrorTypeValidation }
func IsUnauthorized(err error) bool    { return TypeOf(err) == ErrorTypeUnauthorized }
func IsUnauthenticated(err error) bool { return TypeOf(err) == ErrorTypeUnauthenticated }
func IsNotFound(err error) bool        { return TypeOf(err) == ErrorTypeNotFound }
func IsCanceled(err error) bool        { return TypeOf(err) == ErrorTypeCanceled }

// IsStale reports a discarded out-of-order completion
func IsStale(err error) bool { return TypeOf(err) == ErrorTypeStale }
