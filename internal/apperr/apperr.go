// Package apperr defines the closed error taxonomy surfaced at the membership
// engine and API boundaries. Every error carries a machine-readable code and a
// list of human-readable messages.
package apperr

import (
	"fmt"
	"net/http"
)

// Code is the machine-readable classification of an Error.
type Code string

const (
	Unauthorized Code = "UNAUTHORIZED"
	Forbidden    Code = "FORBIDDEN"
	NotFound     Code = "NOT_FOUND"
	Conflict     Code = "CONFLICT"
	BadRequest   Code = "BAD_REQUEST"
	Internal     Code = "INTERNAL"
)

// Error is the structured error type crossing component boundaries.
type Error struct {
	Code     Code
	Messages []string
	// cause зберігається для логів, але ніколи не віддається назовні.
	cause error
}

func (e *Error) Error() string {
	if len(e.Messages) > 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Messages[0])
	}
	return string(e.Code)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As chains.
func (e *Error) Unwrap() error { return e.cause }

// New створює помилку з кодом та повідомленнями.
func New(code Code, messages ...string) *Error {
	return &Error{Code: code, Messages: messages}
}

// Wrap classifies an underlying failure as Internal without leaking its detail
// to the caller; the cause stays attached for logging.
func Wrap(cause error, messages ...string) *Error {
	if len(messages) == 0 {
		messages = []string{"internal error"}
	}
	return &Error{Code: Internal, Messages: messages, cause: cause}
}

// HTTPStatus maps the error code to an HTTP status for the REST surface.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case BadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
