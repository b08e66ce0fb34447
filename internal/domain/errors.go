package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent error conditions in the geophoto domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("geophoto: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("geophoto: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("geophoto: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("geophoto: invalid configuration")

	// ErrMachineClosed is returned when an operation is submitted to a fetch
	// machine whose event loop is not running.
	ErrMachineClosed = errors.New("geophoto: fetch machine not running")

	// ErrNotStopped is returned by Resume() outside of the stopSharing state.
	ErrNotStopped = errors.New("geophoto: tracking is not stopped")

	// ErrPermissionDenied is returned by Start() while location permission is denied.
	ErrPermissionDenied = errors.New("geophoto: location permission denied")
)

// LookupErrorKind classifies photo lookup failures.
type LookupErrorKind int

const (
	// LookupUnknown is the catch-all, also used for location sensor errors.
	LookupUnknown LookupErrorKind = iota
	// LookupInvalidRequest means the outgoing request could not be built.
	LookupInvalidRequest
	// LookupTransport means the request failed on the network or with a non-2xx status.
	LookupTransport
	// LookupDecoding means the response did not have the expected shape.
	LookupDecoding
)

// String returns the kind name.
func (k LookupErrorKind) String() string {
	switch k {
	case LookupInvalidRequest:
		return "invalid_request"
	case LookupTransport:
		return "transport"
	case LookupDecoding:
		return "decoding"
	default:
		return "unknown"
	}
}

// LookupError is returned by PhotoLookup implementations.
type LookupError struct {
	Kind LookupErrorKind
	Err  error
}

// NewLookupError wraps err with a kind.
func NewLookupError(kind LookupErrorKind, err error) *LookupError {
	return &LookupError{Kind: kind, Err: err}
}

// Error returns the human readable description shown in the error view state.
func (e *LookupError) Error() string {
	switch e.Kind {
	case LookupInvalidRequest:
		if e.Err != nil {
			return fmt.Sprintf("Invalid Request: %v", e.Err)
		}
		return "Invalid Request"
	case LookupTransport:
		return fmt.Sprintf("Transport Error: %v", e.Err)
	case LookupDecoding:
		return fmt.Sprintf("Decoding Error: %v", e.Err)
	default:
		if e.Err != nil {
			return fmt.Sprintf("Unknown Error: %v", e.Err)
		}
		return "Unknown Error"
	}
}

// Unwrap returns the underlying cause.
func (e *LookupError) Unwrap() error {
	return e.Err
}

// AsLookupError returns err as a *LookupError, wrapping untyped errors as
// LookupUnknown. A nil error returns nil.
func AsLookupError(err error) *LookupError {
	if err == nil {
		return nil
	}
	var le *LookupError
	if errors.As(err, &le) {
		return le
	}
	return NewLookupError(LookupUnknown, err)
}
