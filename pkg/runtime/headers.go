package runtime

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// Header names returned by the runtime API's next-event call. The table is
// fixed by the protocol; header matching is case-insensitive on the wire.
const (
	HeaderRequestID       = "Lambda-Runtime-Aws-Request-Id"
	HeaderFunctionARN     = "Lambda-Runtime-Invoked-Function-Arn"
	HeaderTraceID         = "Lambda-Runtime-Trace-Id"
	HeaderDeadlineMS      = "Lambda-Runtime-Deadline-Ms"
	HeaderClientContext   = "Lambda-Runtime-Client-Context"
	HeaderCognitoIdentity = "Lambda-Runtime-Cognito-Identity"
)

// DecodeEventContext builds an EventContext from the headers of a poll
// response. Absence of any required header fails with a MissingHeaderError
// naming that header; a malformed deadline, client-context document, or
// identity document is a decode failure distinct from a missing header.
func DecodeEventContext(headers http.Header) (*EventContext, error) {
	requestID, err := requiredHeader(headers, HeaderRequestID)
	if err != nil {
		return nil, err
	}
	functionARN, err := requiredHeader(headers, HeaderFunctionARN)
	if err != nil {
		return nil, err
	}
	traceID, err := requiredHeader(headers, HeaderTraceID)
	if err != nil {
		return nil, err
	}
	deadlineValue, err := requiredHeader(headers, HeaderDeadlineMS)
	if err != nil {
		return nil, err
	}
	deadline, err := strconv.ParseInt(deadlineValue, 10, 64)
	if err != nil {
		return nil, WrapAPIError(err, ErrorTypeDecode, "invalid "+HeaderDeadlineMS+" header")
	}

	ctx := &EventContext{
		RequestID:          requestID,
		InvokedFunctionARN: functionARN,
		TraceID:            traceID,
		DeadlineMS:         deadline,
	}

	if raw := headers.Get(HeaderClientContext); raw != "" {
		var cc ClientContext
		if err := json.Unmarshal([]byte(raw), &cc); err != nil {
			return nil, WrapAPIError(err, ErrorTypeDecode, "invalid "+HeaderClientContext+" header")
		}
		ctx.ClientContext = &cc
	}

	if raw := headers.Get(HeaderCognitoIdentity); raw != "" {
		var identity CognitoIdentity
		if err := json.Unmarshal([]byte(raw), &identity); err != nil {
			return nil, WrapAPIError(err, ErrorTypeDecode, "invalid "+HeaderCognitoIdentity+" header")
		}
		ctx.Identity = &identity
	}

	return ctx, nil
}

func requiredHeader(headers http.Header, name string) (string, error) {
	value := headers.Get(name)
	if value == "" {
		return "", &MissingHeaderError{Header: name}
	}
	return value, nil
}
