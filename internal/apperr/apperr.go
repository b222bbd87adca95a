// Package apperr defines the error taxonomy surfaced by the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an application error.
type Code string

const (
	CodeValidation  Code = "VALIDATION"   // 400
	CodeNotFound    Code = "NOT_FOUND"    // 404
	CodeBusy        Code = "BUSY"         // 409
	CodeRateLimited Code = "RATE_LIMITED" // 429
	CodeProvider    Code = "PROVIDER"     // 500
	CodeStorage     Code = "STORAGE"      // 500
	CodeInternal    Code = "INTERNAL"     // 500
)

// genericMessage is what callers see for every server-side failure.
const genericMessage = "Internal server error"

// Error is a classified error with the message safe to return to a caller.
// Err holds the underlying cause for logging only.
type Error struct {
	Code    Code
	Status  int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Validation creates a 400 error for missing or malformed input.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Status: http.StatusBadRequest, Message: msg}
}

// NotFound creates a 404 error.
func NotFound(what string) *Error {
	return &Error{Code: CodeNotFound, Status: http.StatusNotFound, Message: what + " not found"}
}

// Busy creates a 409 error for a request rejected because another is in flight.
func Busy(msg string) *Error {
	return &Error{Code: CodeBusy, Status: http.StatusConflict, Message: msg}
}

// RateLimited creates a 429 error.
func RateLimited() *Error {
	return &Error{Code: CodeRateLimited, Status: http.StatusTooManyRequests, Message: "rate limit exceeded"}
}

// Provider wraps a failed model call. The cause never reaches the caller.
func Provider(err error) *Error {
	return &Error{Code: CodeProvider, Status: http.StatusInternalServerError, Message: genericMessage, Err: err}
}

// Storage wraps a failed local-storage read or write.
func Storage(err error) *Error {
	return &Error{Code: CodeStorage, Status: http.StatusInternalServerError, Message: genericMessage, Err: err}
}

// Internal wraps anything unclassified.
func Internal(err error) *Error {
	return &Error{Code: CodeInternal, Status: http.StatusInternalServerError, Message: genericMessage, Err: err}
}

// Is reports whether err carries an *Error with the given code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// From classifies any error. Unclassified errors become Internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}
