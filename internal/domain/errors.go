package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for callers that need to decide on retries or
// HTTP status codes without string-matching messages.
type Kind string

const (
	// KindInvalidInput marks a local validation failure; no remote call was made.
	KindInvalidInput Kind = "invalid_input"
	// KindPayloadTooLarge marks a local precondition failure on upload size.
	KindPayloadTooLarge Kind = "payload_too_large"
	// KindUpstreamUnavailable marks a transient network or timeout failure.
	// This is the only kind the pipeline may retry.
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	// KindUpstreamRejected means the remote service understood the request
	// and declined it. Retrying the same request will not help.
	KindUpstreamRejected Kind = "upstream_rejected"
	// KindUpstreamMalformed means the remote response could not be mapped
	// into the expected result type.
	KindUpstreamMalformed Kind = "upstream_malformed_response"
	// KindInternal covers programming errors and anything unclassified.
	KindInternal Kind = "internal"
)

// Error is the failure type returned by every adapter. Message is safe to
// show to an operator; Err keeps the underlying cause for logs only.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a classified error without an underlying cause.
func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Ef builds a classified error with a formatted message.
func Ef(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a classified error around an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from an error chain. Unclassified errors report
// KindInternal so they are neither retried nor mistaken for upstream faults.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// MessageOf returns the operator-safe message from an error chain, falling
// back to a generic one for unclassified errors so raw causes never leak.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "unexpected internal error"
}

// StageError attributes a failure to the pipeline stage that produced it.
type StageError struct {
	Stage   Stage
	Kind    Kind
	Message string
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %s: %s", e.Stage, e.Kind, e.Message)
}

func (e *StageError) Unwrap() error { return e.Err }

// FailStage wraps an adapter error with the stage it occurred in.
func FailStage(stage Stage, err error) *StageError {
	return &StageError{
		Stage:   stage,
		Kind:    KindOf(err),
		Message: MessageOf(err),
		Err:     err,
	}
}
