package errors

import (
	"errors"
	"fmt"
)

// Kind is the closed set of error categories surfaced by the client core.
// Callers are expected to match on Kind rather than sniffing messages.
type Kind string

const (
	// KindUnauthorized indicates the credential was rejected (401) and
	// could not be refreshed.
	KindUnauthorized Kind = "unauthorized"
	// KindValidation indicates a business or validation failure reported
	// by the server (any other non-2xx with a usable message).
	KindValidation Kind = "validation"
	// KindTransport indicates the request never produced a response
	// (network unreachable, connection reset, context deadline).
	KindTransport Kind = "transport"
	// KindUnknown indicates an unclassifiable failure, such as a success
	// status with an undecodable body.
	KindUnknown Kind = "unknown"
)

// ClientError is the single normalized error shape raised by the request
// dispatcher and propagated untouched by the session controller.
// It supports wrapping and unwrapping for use with errors.Is and errors.As.
type ClientError struct {
	// Kind categorizes the error.
	Kind Kind
	// Message is the server-provided message when one exists, otherwise a
	// generic message annotated with the transport status text.
	Message string
	// Status is the HTTP status code, 0 when no response was received.
	Status int
	// Cause is the underlying error (optional).
	Cause error
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Unauthorized creates a new Unauthorized error.
func Unauthorized(message string) *ClientError {
	return &ClientError{
		Kind:    KindUnauthorized,
		Message: message,
		Status:  401,
	}
}

// Validation creates a new Validation error for the given HTTP status.
func Validation(status int, message string) *ClientError {
	return &ClientError{
		Kind:    KindValidation,
		Message: message,
		Status:  status,
	}
}

// Validationf creates a new Validation error with a formatted message.
func Validationf(status int, format string, args ...any) *ClientError {
	return &ClientError{
		Kind:    KindValidation,
		Message: fmt.Sprintf(format, args...),
		Status:  status,
	}
}

// Transport wraps a transport-level failure.
func Transport(err error, message string) *ClientError {
	return &ClientError{
		Kind:    KindTransport,
		Message: message,
		Cause:   err,
	}
}

// Unknown creates a new Unknown error.
func Unknown(message string) *ClientError {
	return &ClientError{
		Kind:    KindUnknown,
		Message: message,
	}
}

// Wrap wraps an existing error with a ClientError, preserving the cause.
func Wrap(err error, kind Kind, message string) *ClientError {
	if err == nil {
		return nil
	}
	return &ClientError{
		Kind:    kind,
		Message: message,
		Cause:   err,
	}
}

// isKind checks if an error carries a specific kind.
func isKind(err error, kind Kind) bool {
	var ce *ClientError
	return errors.As(err, &ce) && ce.Kind == kind
}

// IsUnauthorized checks if an error is an Unauthorized error.
func IsUnauthorized(err error) bool {
	return isKind(err, KindUnauthorized)
}

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool {
	return isKind(err, KindValidation)
}

// IsTransport checks if an error is a Transport error.
func IsTransport(err error) bool {
	return isKind(err, KindTransport)
}

// IsUnknown checks if an error is an Unknown error.
func IsUnknown(err error) bool {
	return isKind(err, KindUnknown)
}

// GetKind returns the Kind from an error, or empty string if the error is
// not a ClientError.
func GetKind(err error) Kind {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// GetStatus returns the HTTP status from an error, or 0 if the error is
// not a ClientError or no response was received.
func GetStatus(err error) int {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Status
	}
	return 0
}
