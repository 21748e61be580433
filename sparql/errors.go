package sparql

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes construction errors.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates a modifier argument of an unsupported type.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// ErrCodeMixedArguments indicates mutually exclusive modifier inputs
	// supplied together (patterns alongside a sub-query or builder callback).
	ErrCodeMixedArguments ErrorCode = "MIXED_ARGUMENTS"

	// ErrCodeInvalidDirection indicates an order/group direction other than
	// ASC or DESC.
	ErrCodeInvalidDirection ErrorCode = "INVALID_DIRECTION"

	// ErrCodeArityMismatch indicates a VALUES row whose width differs from
	// the variable list.
	ErrCodeArityMismatch ErrorCode = "ARITY_MISMATCH"

	// ErrCodeInvalidTerm indicates a value that is not a term and cannot be
	// promoted to one.
	ErrCodeInvalidTerm ErrorCode = "INVALID_TERM"

	// ErrCodeEmptyTemplate indicates a CONSTRUCT query without a template.
	ErrCodeEmptyTemplate ErrorCode = "EMPTY_TEMPLATE"
)

// BuildError reports an invalid modifier argument. It is recorded at the
// offending call; a query whose Err() is nil is guaranteed serializable.
type BuildError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op is the builder call that failed (e.g. "Query.Values").
	Op string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, e.Message)
}

// IsBuildError reports whether err is (or wraps) a BuildError.
func IsBuildError(err error) bool {
	var be *BuildError
	return errors.As(err, &be)
}

// TransportError reports a failed request/response exchange: connection
// refusal, timeout, DNS or TLS failure. The underlying error is surfaced
// unmodified via Unwrap.
type TransportError struct {
	// Op is the operation that failed (e.g. "Client.ExecuteQuery").
	Op string

	// Err is the underlying transport failure.
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error { return e.Err }

// IsTransportError reports whether err is (or wraps) a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// ProtocolError reports a non-success status, an unparseable response body,
// or an unrecognized content type.
type ProtocolError struct {
	// Op is the operation that failed.
	Op string

	// Status is the HTTP status code, when the failure came from one.
	Status int

	// ContentType is the response content type, when relevant.
	ContentType string

	// Message describes the problem.
	Message string

	// Err is the underlying decode error, if any.
	Err error
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	msg := fmt.Sprintf("%s: protocol: %s", e.Op, e.Message)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.ContentType != "" {
		msg += fmt.Sprintf(" (content type %q)", e.ContentType)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error, if any.
func (e *ProtocolError) Unwrap() error { return e.Err }

// IsProtocolError reports whether err is (or wraps) a ProtocolError.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// IsMalformedQuery reports whether err is a protocol error with the
// malformed-query status (HTTP 400), distinguishing client-side query
// faults from server-side failures.
func IsMalformedQuery(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe) && pe.Status == 400
}
