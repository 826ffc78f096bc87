// Package domainerrors defines the coded error taxonomy shared by the grievance
// services, the tool layer and the HTTP transport.
//
// Services return *Error values (optionally wrapping an underlying cause) so
// callers can branch on Code instead of matching message strings.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a failure for routing at the public-operation boundary.
type Code string

const (
	// CodeValidation: the caller supplied bad input and can retry with a fix.
	CodeValidation Code = "validation"
	// CodeIdentityResolution: the identity could not be resolved upstream
	// (e.g. Aadhaar not registered); the caller should supply another one.
	CodeIdentityResolution Code = "identity_resolution"
	// CodeConfiguration: missing or malformed process configuration.
	CodeConfiguration Code = "configuration"
	// CodeProtocol: the upstream answered with something that does not honour
	// the envelope/crypto/schema contract.
	CodeProtocol Code = "protocol"
	// CodeTransport: connection failures and non-200 upstream statuses.
	CodeTransport Code = "transport"
	// CodeTimeout: the upstream did not answer in time.
	CodeTimeout Code = "timeout"

	CodeUnauthorized Code = "unauthorized"
	CodeInternal     Code = "internal"
)

// Error is a coded domain error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error with no underlying cause.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to err.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the code of the outermost *Error in err's chain, or
// CodeInternal when there is none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether the outermost *Error in err's chain carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	return errors.As(err, &de) && de.Code == code
}

// MessageOf returns the message of the outermost *Error without its cause,
// which keeps internals (crypto, URLs) out of user-facing text.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}

// IsRetryable reports whether the same call may succeed later without new
// input from the user.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case CodeTimeout, CodeTransport:
		return true
	default:
		return false
	}
}

// NeedsGuidance reports whether err should be relayed to the user so they
// can correct their input (or so an operator can fix configuration) before
// the operation is attempted again.
func NeedsGuidance(err error) bool {
	switch CodeOf(err) {
	case CodeValidation, CodeIdentityResolution, CodeConfiguration, CodeInternal:
		return true
	default:
		return false
	}
}
