package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies an error class shared by handlers and the HTTP client.
type Code string

const (
	CodeInvalidInput Code = "INVALID_INPUT"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeDuplicate    Code = "DUPLICATE_ENTRY"
	CodeServer       Code = "SERVER_ERROR"
	CodeUpload       Code = "UPLOAD_ERROR"
	CodeRateLimited  Code = "RATE_LIMITED"
)

// Error carries a taxonomy code plus a user-facing message. The wrapped cause,
// when present, is for logs only and must not leak into responses.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// From extracts an *Error from err, or classifies it as SERVER_ERROR.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Wrap(CodeServer, "internal server error", err)
}

// HTTPStatus maps an error code to the response status.
func HTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput, CodeUpload:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeDuplicate:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// FromStatus classifies an upstream HTTP status into the taxonomy.
func FromStatus(status int, message string) *Error {
	switch {
	case status == http.StatusUnauthorized:
		return New(CodeUnauthorized, message)
	case status == http.StatusForbidden:
		return New(CodeForbidden, message)
	case status == http.StatusNotFound:
		return New(CodeNotFound, message)
	case status == http.StatusConflict:
		return New(CodeDuplicate, message)
	case status == http.StatusTooManyRequests:
		return New(CodeRateLimited, message)
	case status >= 400 && status < 500:
		return New(CodeInvalidInput, message)
	default:
		return New(CodeServer, message)
	}
}

// Retryable reports whether a request failing with this code may be retried
// without the caller changing anything. Client errors never qualify.
func Retryable(code Code) bool {
	switch code {
	case CodeServer, CodeRateLimited:
		return true
	default:
		return false
	}
}
