package common

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound marks lookups that matched no row.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks writes that clash with existing state.
	ErrConflict = errors.New("conflict")
)

// AppError is an error that already knows how it is rendered: HTTP status,
// machine code, message and optional field details.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// BadRequest builds a 400 for requests that cannot be read at all.
func BadRequest(message string) *AppError {
	return &AppError{Code: "BAD_REQUEST", Message: message, HTTPStatus: http.StatusBadRequest}
}

// Unprocessable builds a 422 carrying per-field details such as
// {"servicios[0].cantidad": "gt=0"}.
func Unprocessable(message string, details any) *AppError {
	return &AppError{Code: "VALIDATION_FAILED", Message: message, HTTPStatus: http.StatusUnprocessableEntity, Details: details}
}

// Conflict builds a 409 wrapping ErrConflict.
func Conflict(message string) *AppError {
	return &AppError{Code: "CONFLICT", Message: message, HTTPStatus: http.StatusConflict, Err: ErrConflict}
}
