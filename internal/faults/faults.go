// Package faults classifies gateway failures so the API can map them to HTTP statuses.
package faults

import (
	"errors"
	"fmt"
)

// Kind identifies a class of failure.
type Kind int

// Failure kinds.
const (
	KindUnknown Kind = iota
	KindConfigurationMissing
	KindNotConnected
	KindAuthentication
	KindRemoteExecution
	KindStore
	KindInvalidRequest
)

func (k Kind) String() string {
	switch k {
	case KindConfigurationMissing:
		return "configuration_missing"
	case KindNotConnected:
		return "not_connected"
	case KindAuthentication:
		return "authentication"
	case KindRemoteExecution:
		return "remote_execution"
	case KindStore:
		return "store"
	case KindInvalidRequest:
		return "invalid_request"
	default:
		return "unknown"
	}
}

// Error is a classified failure.
type Error struct {
	Kind Kind
	// Op names the gateway operation that failed, e.g. "connect".
	Op string
	// Message is the human-readable summary returned to clients.
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error of the same kind, so sentinel values below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Message == ""
}

// Detail returns the message shown to clients, including the cause when present.
func (e *Error) Detail() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Sentinels for errors.Is checks.
var (
	ErrConfigurationMissing = &Error{Kind: KindConfigurationMissing}
	ErrNotConnected         = &Error{Kind: KindNotConnected}
	ErrAuthentication       = &Error{Kind: KindAuthentication}
	ErrRemoteExecution      = &Error{Kind: KindRemoteExecution}
	ErrStore                = &Error{Kind: KindStore}
	ErrInvalidRequest       = &Error{Kind: KindInvalidRequest}
)

// New creates an Error without a cause.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap creates an Error around cause.
func Wrap(kind Kind, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Cause: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Detail returns the client-facing message for any error.
func Detail(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Detail()
	}
	return err.Error()
}
