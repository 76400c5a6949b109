package runtime

import (
	"fmt"
)

// ErrorType categorizes failures produced by the runtime client.
type ErrorType string

const (
	// ErrorTypeTransport covers I/O and request-construction failures:
	// unreachable endpoint, malformed URI, dropped connection.
	ErrorTypeTransport ErrorType = "transport"
	// ErrorTypeDecode covers failures interpreting a poll response:
	// missing or malformed headers, bad client-context JSON.
	ErrorTypeDecode ErrorType = "decode"
	// ErrorTypeProtocol covers non-success HTTP statuses returned by the
	// runtime API itself.
	ErrorTypeProtocol ErrorType = "protocol"
)

// ErrorReport is the wire representation of a failure, posted to the
// runtime API's error endpoints as JSON.
type ErrorReport struct {
	ErrorMessage string   `json:"errorMessage"`
	ErrorType    string   `json:"errorType"`
	StackTrace   []string `json:"stackTrace,omitempty"`
}

// Reportable is implemented by error values that can render themselves as
// an ErrorReport for transmission to the runtime API. Handler error types
// implement this to control the message, type tag, and stack frames that
// Lambda records for a failed invocation.
type Reportable interface {
	error
	Report() ErrorReport
}

// APIError is the error type returned by all client calls. Callers must
// check Unrecoverable after every call: when set, the process should stop
// polling and exit so the supervisor can restart it.
type APIError struct {
	Type          ErrorType
	Message       string
	Unrecoverable bool
	Cause         error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Cause.Error())
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *APIError) Unwrap() error {
	return e.Cause
}

// Is matches APIErrors by category.
func (e *APIError) Is(target error) bool {
	if targetErr, ok := target.(*APIError); ok {
		return e.Type == targetErr.Type
	}
	return false
}

// Fatal marks the error unrecoverable and returns it.
func (e *APIError) Fatal() *APIError {
	e.Unrecoverable = true
	return e
}

// Report implements Reportable so client-internal failures can themselves
// be posted through the error endpoints.
func (e *APIError) Report() ErrorReport {
	return ErrorReport{
		ErrorMessage: e.Error(),
		ErrorType:    string(e.Type),
	}
}

// NewAPIError creates a new APIError. The unrecoverable flag defaults to
// false; marking an error fatal is always an explicit step.
func NewAPIError(errType ErrorType, message string) *APIError {
	return &APIError{
		Type:    errType,
		Message: message,
	}
}

// NewAPIErrorf creates a new APIError with a formatted message.
func NewAPIErrorf(errType ErrorType, format string, args ...interface{}) *APIError {
	return NewAPIError(errType, fmt.Sprintf(format, args...))
}

// WrapAPIError wraps an existing error with a category and message.
func WrapAPIError(err error, errType ErrorType, message string) *APIError {
	return &APIError{
		Type:    errType,
		Message: message,
		Cause:   err,
	}
}

// IsUnrecoverable reports whether err carries the unrecoverable flag.
// Errors that are not APIErrors are recoverable.
func IsUnrecoverable(err error) bool {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr.Unrecoverable
	}
	return false
}

// MissingHeaderError is the decode failure for a poll response that lacks
// one of the required Lambda-Runtime headers. Header names the specific
// absent header.
type MissingHeaderError struct {
	Header string
}

// Error implements the error interface.
func (e *MissingHeaderError) Error() string {
	return fmt.Sprintf("missing %s header", e.Header)
}

// HandlerError adapts a plain error produced by application code into a
// Reportable with the given type tag. The client never inspects handler
// errors beyond this rendering.
type HandlerError struct {
	Err       error
	ErrorType string
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the wrapped handler error.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// Report implements Reportable.
func (e *HandlerError) Report() ErrorReport {
	errType := e.ErrorType
	if errType == "" {
		errType = "HandlerError"
	}
	return ErrorReport{
		ErrorMessage: e.Err.Error(),
		ErrorType:    errType,
	}
}
