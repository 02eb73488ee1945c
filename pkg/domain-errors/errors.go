// Package domainerrors provides code-tagged errors shared by all layers.
//
// Services wrap infrastructure failures and sentinel facts into one of the
// codes below; the HTTP layer translates codes into statuses in exactly one
// place. Codes are stable strings so they can be returned to clients as the
// machine-readable part of an error envelope.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies the class of a failure.
type Code string

const (
	// CodeUnauthenticated covers missing, malformed, expired, or otherwise
	// unverifiable credentials. Deliberately a single code: clients must not
	// be able to distinguish "expired" from "forged".
	CodeUnauthenticated Code = "unauthenticated"

	// CodeForbidden means the caller is authenticated but lacks a required role.
	CodeForbidden Code = "forbidden"

	// CodeNotFound means the target entity does not exist.
	CodeNotFound Code = "not_found"

	// CodeConflict covers uniqueness and state-precondition violations.
	CodeConflict Code = "conflict"

	// CodeValidation covers malformed or incomplete request input.
	CodeValidation Code = "validation"

	// CodePersistence means the storage layer failed or is unavailable.
	CodePersistence Code = "persistence"

	// CodeTimeout means a bounded operation ran out of time.
	CodeTimeout Code = "timeout"

	// CodeInternal is the fallback for unexpected failures.
	CodeInternal Code = "internal"
)

// Error carries a code, a human-readable message, and an optional cause.
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

// New creates a code-tagged error with no cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying cause.
// A nil cause returns nil so call sites can wrap unconditionally.
func Wrap(cause error, code Code, message string) error {
	if cause == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: cause}
}

// CodeOf extracts the code from err, walking the wrap chain.
// Untagged errors report CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// MessageOf extracts the human-readable message, falling back to Error().
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}

// ToHTTPStatus maps a code to the response status used by every handler.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeValidation:
		return http.StatusBadRequest
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodePersistence, CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
