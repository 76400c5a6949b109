package testutil

import (
	"net/http"
)

// FailingRoundTripper is an http.RoundTripper that fails every request
// with a fixed error, for simulating transport-level network failures.
type FailingRoundTripper struct {
	Err      error
	Requests []*http.Request // Track all requests made
}

// RoundTrip implements http.RoundTripper.
func (m *FailingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.Requests = append(m.Requests, req)
	return nil, m.Err
}

// NewFailingHTTPClient creates an *http.Client whose every request fails
// with err.
func NewFailingHTTPClient(err error) *http.Client {
	return &http.Client{Transport: &FailingRoundTripper{Err: err}}
}
