package testutil

import (
	"net/http"
	"strconv"
)

// HeaderBuilder provides a fluent interface for building the runtime API's
// next-event response headers. This eliminates repetitive header setup
// across test files.
type HeaderBuilder struct {
	headers http.Header
}

// NewHeaderBuilder creates a header builder populated with a valid set of
// the four required headers.
func NewHeaderBuilder() *HeaderBuilder {
	b := &HeaderBuilder{headers: make(http.Header)}
	b.headers.Set("Lambda-Runtime-Aws-Request-Id", TestRequestID)
	b.headers.Set("Lambda-Runtime-Invoked-Function-Arn", TestFunctionARN)
	b.headers.Set("Lambda-Runtime-Trace-Id", TestTraceID)
	b.headers.Set("Lambda-Runtime-Deadline-Ms", strconv.FormatInt(TestDeadlineMS, 10))
	return b
}

// WithRequestID sets the request id header.
func (b *HeaderBuilder) WithRequestID(id string) *HeaderBuilder {
	b.headers.Set("Lambda-Runtime-Aws-Request-Id", id)
	return b
}

// WithDeadline sets the deadline header to a raw string value.
func (b *HeaderBuilder) WithDeadline(value string) *HeaderBuilder {
	b.headers.Set("Lambda-Runtime-Deadline-Ms", value)
	return b
}

// WithClientContext sets the client context header to a JSON document.
func (b *HeaderBuilder) WithClientContext(doc string) *HeaderBuilder {
	b.headers.Set("Lambda-Runtime-Client-Context", doc)
	return b
}

// WithCognitoIdentity sets the cognito identity header to a JSON document.
func (b *HeaderBuilder) WithCognitoIdentity(doc string) *HeaderBuilder {
	b.headers.Set("Lambda-Runtime-Cognito-Identity", doc)
	return b
}

// Without removes a header, for missing-header cases.
func (b *HeaderBuilder) Without(name string) *HeaderBuilder {
	b.headers.Del(name)
	return b
}

// Build returns the accumulated headers.
func (b *HeaderBuilder) Build() http.Header {
	return b.headers.Clone()
}
