// Package errors defines the typed errors returned by services and rendered
// by the HTTP layer.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies an error class in API responses.
type Code string

const (
	CodeBadRequest        Code = "BAD_REQUEST"
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeInvalidFormat     Code = "INVALID_FORMAT"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeInvalidToken      Code = "INVALID_TOKEN"
	CodeTokenExpired      Code = "TOKEN_EXPIRED"
	CodeForbidden         Code = "FORBIDDEN"
	CodeNotFound          Code = "NOT_FOUND"
	CodeConflict          Code = "CONFLICT"
	CodeRateLimitExceeded Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal          Code = "INTERNAL_ERROR"

	CodeInsufficientHours Code = "INSUFFICIENT_HOURS"
	CodeTimeLimit         Code = "TIME_LIMIT"
	CodeLaterClasses      Code = "LATER_CLASSES"
)

// ServiceError is an error that knows how it should be presented over HTTP.
type ServiceError struct {
	Code       Code                   `json:"code"`
	Message    string                 `json:"message"`
	HTTPStatus int                    `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Err        error                  `json:"-"`
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// WithDetails returns a copy of e with key set in its details.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	clone := *e
	clone.Details = make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		clone.Details[k] = v
	}
	clone.Details[key] = value
	return &clone
}

// New builds a ServiceError.
func New(code Code, status int, message string) *ServiceError {
	return &ServiceError{Code: code, Message: message, HTTPStatus: status}
}

// Wrap builds a ServiceError carrying err as its cause.
func Wrap(err error, code Code, status int, message string) *ServiceError {
	return &ServiceError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

func BadRequest(message string) *ServiceError {
	return New(CodeBadRequest, http.StatusBadRequest, message)
}

func Validation(message string) *ServiceError {
	return New(CodeValidation, http.StatusBadRequest, message)
}

func InvalidFormat(field, expected string) *ServiceError {
	return New(CodeInvalidFormat, http.StatusBadRequest, fmt.Sprintf("invalid %s format, expected %s", field, expected))
}

func Unauthorized(message string) *ServiceError {
	return New(CodeUnauthorized, http.StatusUnauthorized, message)
}

func InvalidToken(err error) *ServiceError {
	return Wrap(err, CodeInvalidToken, http.StatusUnauthorized, "invalid or expired token")
}

func TokenExpired() *ServiceError {
	return New(CodeTokenExpired, http.StatusUnauthorized, "token has expired, please log in again")
}

func Forbidden(message string) *ServiceError {
	return New(CodeForbidden, http.StatusForbidden, message)
}

func NotFound(resource string) *ServiceError {
	return New(CodeNotFound, http.StatusNotFound, resource+" not found")
}

func Conflict(message string) *ServiceError {
	return New(CodeConflict, http.StatusConflict, message)
}

func RateLimitExceeded(limit int, window string) *ServiceError {
	return New(CodeRateLimitExceeded, http.StatusTooManyRequests, "too many requests, please try again later").
		WithDetails("limit", limit).
		WithDetails("window", window)
}

func Internal(message string, err error) *ServiceError {
	return Wrap(err, CodeInternal, http.StatusInternalServerError, message)
}

// GetServiceError extracts a ServiceError from err's chain.
func GetServiceError(err error) *ServiceError {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return nil
}

// HasCode reports whether err carries code.
func HasCode(err error, code Code) bool {
	if svcErr := GetServiceError(err); svcErr != nil {
		return svcErr.Code == code
	}
	return false
}
