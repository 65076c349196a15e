package presence

import (
	"errors"
	"fmt"
)

// ErrorCode represents a categorized error type.
type ErrorCode int

const (
	// Protocol Errors (from server error responses)
	ErrorUnknown ErrorCode = iota
	ErrorUnauthorized
	ErrorBadRequest
	ErrorConversationNotFound
	ErrorRateLimited
	ErrorInternalServer

	// Client-side Errors
	ErrorConnection
	ErrorDisconnected
	ErrorTimeout
	ErrorInvalidConfig
	ErrorNotConnected
	ErrorSerialization
	ErrorMalformedEvent
)

// String returns the string representation of an ErrorCode.
func (e ErrorCode) String() string {
	switch e {
	case ErrorUnknown:
		return "unknown"
	case ErrorUnauthorized:
		return "unauthorized"
	case ErrorBadRequest:
		return "bad_request"
	case ErrorConversationNotFound:
		return "conversation_not_found"
	case ErrorRateLimited:
		return "rate_limited"
	case ErrorInternalServer:
		return "internal_error"
	case ErrorConnection:
		return "connection_error"
	case ErrorDisconnected:
		return "disconnected"
	case ErrorTimeout:
		return "timeout"
	case ErrorInvalidConfig:
		return "invalid_config"
	case ErrorNotConnected:
		return "not_connected"
	case ErrorSerialization:
		return "serialization_error"
	case ErrorMalformedEvent:
		return "malformed_event"
	default:
		return fmt.Sprintf("unknown_code_%d", e)
	}
}

// ParseErrorCode converts a protocol error code string to ErrorCode.
func ParseErrorCode(code string) ErrorCode {
	switch code {
	case "unauthorized":
		return ErrorUnauthorized
	case "bad_request":
		return ErrorBadRequest
	case "conversation_not_found":
		return ErrorConversationNotFound
	case "rate_limited":
		return ErrorRateLimited
	case "internal_error":
		return ErrorInternalServer
	default:
		return ErrorUnknown
	}
}

// PresenceError is a structured error with code and context.
type PresenceError struct {
	Code    ErrorCode
	Message string
	Wrapped error
}

// Error implements the error interface.
func (e *PresenceError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s (wrapped: %v)", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Unwrap support.
func (e *PresenceError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface for error comparison.
func (e *PresenceError) Is(target error) bool {
	t, ok := target.(*PresenceError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a new PresenceError with the given code and message.
func NewError(code ErrorCode, message string) *PresenceError {
	return &PresenceError{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with a PresenceError.
func WrapError(code ErrorCode, message string, err error) *PresenceError {
	return &PresenceError{
		Code:    code,
		Message: message,
		Wrapped: err,
	}
}

// FromProtocolError converts a protocol Error to PresenceError.
func FromProtocolError(e *Error) *PresenceError {
	if e == nil {
		return nil
	}
	return &PresenceError{
		Code:    ParseErrorCode(e.Code),
		Message: e.Msg,
	}
}

// IsProtocolError checks if an error is a protocol error (from server).
func IsProtocolError(err error) bool {
	if err == nil {
		return false
	}
	var pe *PresenceError
	if !errors.As(err, &pe) {
		return false
	}
	return pe.Code >= ErrorUnauthorized && pe.Code <= ErrorInternalServer
}

// IsConnectionError checks if an error is a connection-related error.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var pe *PresenceError
	if !errors.As(err, &pe) {
		return false
	}
	return pe.Code == ErrorConnection || pe.Code == ErrorDisconnected || pe.Code == ErrorTimeout
}
