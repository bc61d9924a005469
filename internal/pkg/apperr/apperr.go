// Package apperr defines the error categories surfaced by the story engine and
// the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies an error for callers and for the HTTP status mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindValidation
	KindForbidden
	KindUnauthenticated
	KindConflict
	KindUploadRejected
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation_failed"
	case KindForbidden:
		return "forbidden"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindConflict:
		return "conflict"
	case KindUploadRejected:
		return "upload_rejected"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

// Error is a categorized application error.
type Error struct {
	Kind    Kind
	Message string
	// Step names the cascade step that failed, if any.
	Step       string
	Retryable  bool
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Step != "" {
		msg = fmt.Sprintf("%s (step: %s)", msg, e.Step)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func NotFound(message string) *Error        { return New(KindNotFound, message) }
func Validation(message string) *Error      { return New(KindValidation, message) }
func Forbidden(message string) *Error       { return New(KindForbidden, message) }
func Unauthenticated(message string) *Error { return New(KindUnauthenticated, message) }
func Conflict(message string) *Error        { return New(KindConflict, message) }
func UploadRejected(message string) *Error  { return New(KindUploadRejected, message) }

// RateLimited reports a refused request along with how long the caller should wait.
func RateLimited(message string, after time.Duration) *Error {
	return &Error{Kind: KindRateLimited, Message: message, RetryAfter: after}
}

// Internal wraps an unexpected failure.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// StepFailed reports a failure of a named step of a multi-step operation
// whose steps are safe to run again.
func StepFailed(step string, err error) *Error {
	return &Error{Kind: KindInternal, Message: "operation incomplete", Step: step, Retryable: true, Err: err}
}

// WithRetry marks the error as safe to retry.
func (e *Error) WithRetry() *Error {
	e.Retryable = true
	return e
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// KindOf returns the kind of err, defaulting to KindInternal for foreign errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is an application error of the given kind.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}
