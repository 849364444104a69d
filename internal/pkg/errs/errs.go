/*
Package errs provides custom error types and application-level error code constants.

This file defines the CustomError struct, which implements the standard Go error interface
and carries a stable code so callers can classify failures with errors.Is.
*/
package errs

import (
	"errors"
	"fmt"
	"strings"

	"tcpchat/internal/pkg/logx"
)

// CustomError is the custom error structure used throughout the application.
type CustomError struct {
	// Code is the application error code (see constants definition).
	Code int

	// Message is the human-readable error description.
	Message string
}

// Error implements the standard Go error interface.
func (e *CustomError) Error() string {
	return fmt.Sprintf("error code %d: %s", e.Code, e.Message)
}

// Is reports whether target is a CustomError carrying the same code, so that
// errors built with different detail messages still match their sentinel.
func (e *CustomError) Is(target error) bool {
	var t *CustomError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewError constructs a new *CustomError from a predefined error code.
// The optional details are appended to the template message. Unknown codes
// fall back to ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	templateErr, ok := errorMap[code]
	if !ok {
		logx.Error(
			fmt.Errorf("attempted to create an error with an unknown code in errorMap"),
			"Unknown error code requested",
			"requested_code", code,
		)

		unknownErr := errorMap[ErrUnknown]
		return &unknownErr
	}

	customErr := templateErr

	if len(details) > 0 {
		parts := make([]string, 0, len(details))
		for _, d := range details {
			parts = append(parts, fmt.Sprint(d))
		}
		customErr.Message = customErr.Message + ": " + strings.Join(parts, " ")
	}

	return &customErr
}

// CodeOf returns the application code carried by err, or 0 if err does not wrap a CustomError.
func CodeOf(err error) int {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr.Code
	}
	return 0
}
