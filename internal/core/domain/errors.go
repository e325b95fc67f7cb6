package domain

import (
	"errors"
	"fmt"
)

// Code is the stable, machine-readable kind of a domain error.
type Code string

const (
	CodeValidation       Code = "validation_error"
	CodeNotFound         Code = "not_found"
	CodeInvalidState     Code = "invalid_state"
	CodeIncompatible     Code = "incompatible"
	CodeAlreadyAccepted  Code = "already_accepted"
	CodeAlreadyCompleted Code = "already_completed"
	CodePrecondition     Code = "precondition_failed"
	CodeNotAssigned      Code = "not_assigned"
	CodeForbidden        Code = "forbidden"
	CodeUnauthorized     Code = "unauthorized"
	CodeConflict         Code = "conflict"
	CodeTransient        Code = "transient"
	CodeInternal         Code = "internal"
)

// Error carries a Code plus a human message. Err holds the underlying cause,
// if any, and is never shown to callers.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func WrapError(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the outermost domain error in err's chain, or
// CodeInternal when there is none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// IsDomainError reports whether err already carries a code.
func IsDomainError(err error) bool {
	var de *Error
	return errors.As(err, &de)
}

// Retryable reports whether a caller may retry the failed operation.
// Only persistence and broker failures are retryable.
func Retryable(err error) bool {
	return HasCode(err, CodeTransient)
}
