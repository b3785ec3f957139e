package services

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidToken is returned for missing, malformed or expired tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrUnknownUser is returned when a valid token names a user that no
	// longer exists or was deactivated.
	ErrUnknownUser = errors.New("user no longer exists")
)

// Error is a failure with an HTTP status and a client-facing message.
type Error struct {
	Status  int
	Message string
	Fields  map[string]string // field-level validation messages
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(status int, message string, err error) *Error {
	return &Error{Status: status, Message: message, Err: err}
}

func BadRequest(message string) *Error { return newError(http.StatusBadRequest, message, nil) }

// Validation reports field-level errors keyed by JSON field name.
func Validation(fields map[string]string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: "Validation failed", Fields: fields}
}

func Unauthorized(message string) *Error { return newError(http.StatusUnauthorized, message, nil) }
func Forbidden(message string) *Error    { return newError(http.StatusForbidden, message, nil) }
func NotFound(message string) *Error     { return newError(http.StatusNotFound, message, nil) }
func Conflict(message string) *Error     { return newError(http.StatusConflict, message, nil) }

// PaymentRequired is returned when the provider has not confirmed payment yet.
func PaymentRequired(message string) *Error {
	return newError(http.StatusPaymentRequired, message, nil)
}

func Unavailable(message string, err error) *Error {
	return newError(http.StatusServiceUnavailable, message, err)
}

func Internal(message string, err error) *Error {
	return newError(http.StatusInternalServerError, message, err)
}

// AsError extracts a *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
