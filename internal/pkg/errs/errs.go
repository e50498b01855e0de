/*
Package errs provides custom error types and application-level error code constants.

CustomError carries a business code, a client-facing message and an HTTP status.
Two errors are equal under errors.Is when their codes match, so the exported
sentinels (MalformedEvent, StorageError, InvalidCredential) work as targets.
*/
package errs

import (
	"fmt"
	"net/http"
	"strings"

	"dmchat/internal/pkg/logx"
)

// Sentinels for errors.Is checks against the core error taxonomy.
var (
	MalformedEvent    = &CustomError{Code: ErrMalformedEvent}
	StorageError      = &CustomError{Code: ErrStorage}
	InvalidCredential = &CustomError{Code: ErrInvalidCredential}
)

// CustomError is the error type used throughout the application.
type CustomError struct {
	// Code is the business error code (see constants definition).
	Code int

	// Message is the user-friendly error description.
	Message string

	// Status is the HTTP status code for this error.
	Status int

	// Err is the underlying cause, if any. It is never sent to clients.
	Err error
}

// Error implements the error interface.
func (e *CustomError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("error code %d (HTTP %d): %s: %v", e.Code, e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("error code %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// Unwrap exposes the underlying cause.
func (e *CustomError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a CustomError with the same code.
func (e *CustomError) Is(target error) bool {
	t, ok := target.(*CustomError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewError builds a *CustomError from a registered code.
// details are printf arguments for message templates containing a verb.
// An unknown code yields ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	templateErr, ok := errorMap[code]

	if !ok {
		logx.Error(
			fmt.Errorf("unknown error code %d", code),
			"Unknown error code requested",
			"requested_code", code,
		)
		templateErr = errorMap[ErrUnknown]
	}

	customErr := templateErr

	if customErr.Status == 0 {
		customErr.Status = http.StatusOK
	}

	if len(details) > 0 {
		if strings.Contains(customErr.Message, "%") {
			customErr.Message = fmt.Sprintf(customErr.Message, details...)
		} else {
			logx.Warn("Details provided for error without placeholders. Details ignored.", "code", code)
		}
	}

	return &customErr
}

// Wrap builds a *CustomError from a registered code and records cause as the underlying error.
func Wrap(code int, cause error) *CustomError {
	customErr := NewError(code)
	customErr.Err = cause
	return customErr
}
