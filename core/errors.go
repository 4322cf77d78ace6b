package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// ErrorCode classifies engine and store failures. Callers branch on the code
// rather than on error strings.
type ErrorCode string

const (
	// ErrorCodeValidation marks a malformed or inconsistent request: bad
	// references, missing required fields on creation. Never retried.
	ErrorCodeValidation ErrorCode = "validation"
	// ErrorCodeNotFound marks a referenced session, thought or branch that
	// does not exist. Never retried.
	ErrorCodeNotFound ErrorCode = "not_found"
	// ErrorCodeConflict marks a lost per-branch sequencing race after the
	// engine exhausted its bounded automatic retries.
	ErrorCodeConflict ErrorCode = "conflict"
	// ErrorCodeStorage marks a backend I/O failure.
	ErrorCodeStorage ErrorCode = "storage"
	// ErrorCodeStorageTimeout marks a backend that did not respond within
	// the caller's budget.
	ErrorCodeStorageTimeout ErrorCode = "storage_timeout"
)

// Error is the structured error type surfaced by stores and the engine. It
// carries enough context (offending field, referenced id) for a caller to
// decide whether to retry with corrected input.
type Error struct {
	Code  ErrorCode
	Field string // request field that triggered the failure, if any
	Ref   string // referenced identifier (session id, thought id), if any
	Msg   string
	Err   error // wrapped cause, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Msg)
	if e.Field != "" {
		msg += fmt.Sprintf(" (field=%s)", e.Field)
	}
	if e.Ref != "" {
		msg += fmt.Sprintf(" (ref=%s)", e.Ref)
	}
	if e.Err != nil && e.Err.Error() != e.Msg {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error { return e.Err }

// NewValidationError reports a malformed request referencing the offending field.
func NewValidationError(field, msg string) *Error {
	return &Error{Code: ErrorCodeValidation, Field: field, Msg: msg}
}

// Sentinels for the two common not-found cases, usable with errors.Is in
// addition to the code-based IsNotFound helper.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrThoughtNotFound = errors.New("thought not found")
)

// NewNotFoundError reports a missing session, thought or branch.
func NewNotFoundError(ref, msg string) *Error {
	return &Error{Code: ErrorCodeNotFound, Ref: ref, Msg: msg}
}

// NewSessionNotFoundError reports a missing session id, wrapping
// ErrSessionNotFound.
func NewSessionNotFoundError(id string) *Error {
	return &Error{Code: ErrorCodeNotFound, Ref: id, Msg: ErrSessionNotFound.Error(), Err: ErrSessionNotFound}
}

// NewThoughtNotFoundError reports a missing thought id, wrapping
// ErrThoughtNotFound.
func NewThoughtNotFoundError(id int64) *Error {
	return &Error{Code: ErrorCodeNotFound, Ref: strconv.FormatInt(id, 10), Msg: ErrThoughtNotFound.Error(), Err: ErrThoughtNotFound}
}

// NewConflictError reports a lost sequencing race on the given branch.
func NewConflictError(ref, msg string) *Error {
	return &Error{Code: ErrorCodeConflict, Ref: ref, Msg: msg}
}

// NewStorageError wraps a backend failure. Context deadline and cancellation
// failures are classified as storage timeouts so callers can distinguish a
// slow backend from a broken one.
func NewStorageError(msg string, err error) *Error {
	code := ErrorCodeStorage
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		code = ErrorCodeStorageTimeout
	}
	return &Error{Code: code, Msg: msg, Err: err}
}

// CodeOf extracts the ErrorCode from err, or ErrorCodeStorage for errors that
// did not originate from this package.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrorCodeStorage
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return hasCode(err, ErrorCodeValidation) }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return hasCode(err, ErrorCodeNotFound) }

// IsConflict reports whether err is a sequencing conflict.
func IsConflict(err error) bool { return hasCode(err, ErrorCodeConflict) }

// IsStorage reports whether err is a backend I/O failure.
func IsStorage(err error) bool { return hasCode(err, ErrorCodeStorage) }

// IsStorageTimeout reports whether err is a backend timeout.
func IsStorageTimeout(err error) bool { return hasCode(err, ErrorCodeStorageTimeout) }

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
