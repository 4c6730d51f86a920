// Package errs defines the application error taxonomy shared by the store,
// the conversation layer and the HTTP API.
package errs

import (
	"errors"
	"fmt"
)

// Standard error codes for the application.
const (
	CodeUnknown      = "UNKNOWN"
	CodeNotFound     = "NOT_FOUND"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeValidation   = "VALIDATION"
	CodeDatabase     = "DATABASE"
	CodeTransport    = "TRANSPORT"
	CodeConfig       = "CONFIG"
)

// ApplicationError is the interface that all our custom errors implement.
type ApplicationError interface {
	error
	Code() string
	Unwrap() error
}

// Error is a coded application error with an optional cause.
type Error struct {
	code    string
	message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}

	return e.message
}

// Code returns the error code.
func (e *Error) Code() string {
	return e.code
}

// Message returns the message without the cause.
func (e *Error) Message() string {
	return e.message
}

func (e *Error) Unwrap() error {
	return e.err
}

// Is reports whether target is an *Error with the same code, so callers can
// match on a code without caring about the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.message == "" && t.code == e.code
}

// Sentinels for errors.Is matching by code.
var (
	ErrNotFound     = &Error{code: CodeNotFound}
	ErrUnauthorized = &Error{code: CodeUnauthorized}
	ErrForbidden    = &Error{code: CodeForbidden}
	ErrValidation   = &Error{code: CodeValidation}
)

// Code returns the code of the first ApplicationError in err's chain,
// or CodeUnknown if there is none.
func Code(err error) string {
	var appErr ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Code()
	}

	return CodeUnknown
}

func newError(code, message string, cause error) *Error {
	return &Error{code: code, message: message, err: cause}
}

// NewNotFoundError reports an entity that is absent or outside the caller's visible scope.
func NewNotFoundError(message string) error {
	return newError(CodeNotFound, message, nil)
}

// NewUnauthorizedError reports a chat that has not been linked to an account yet.
func NewUnauthorizedError(message string) error {
	return newError(CodeUnauthorized, message, nil)
}

// NewForbiddenError reports a board role that does not allow the operation.
func NewForbiddenError(message string) error {
	return newError(CodeForbidden, message, nil)
}

func NewValidationError(message string, cause error) error {
	return newError(CodeValidation, message, cause)
}

func NewDatabaseError(message string, cause error) error {
	return newError(CodeDatabase, message, cause)
}

func NewTransportError(message string, cause error) error {
	return newError(CodeTransport, message, cause)
}

func NewConfigError(message string, cause error) error {
	return newError(CodeConfig, message, cause)
}
