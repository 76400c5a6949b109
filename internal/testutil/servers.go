package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// RecordedRequest captures one request received by the fake runtime API so
// tests can assert on method, path, headers, and body.
type RecordedRequest struct {
	Method      string
	Path        string
	ContentType string
	Header      http.Header
	Body        []byte
}

// RuntimeServer is a scriptable fake of the runtime API control endpoint.
// Tests configure the status, headers, and body of the next-event call and
// the statuses of the reporting calls, then assert on the recorded
// requests.
type RuntimeServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []RecordedRequest

	// NextStatus, NextHeaders, and NextBody script the response to the
	// next-event poll.
	NextStatus  int
	NextHeaders http.Header
	NextBody    []byte

	// ResponseStatus, ErrorStatus, and InitStatus script the statuses
	// returned by the three reporting endpoints.
	ResponseStatus int
	ErrorStatus    int
	InitStatus     int
}

// NewRuntimeServer starts a fake runtime API that answers every call with
// success until scripted otherwise.
func NewRuntimeServer() *RuntimeServer {
	s := &RuntimeServer{
		NextStatus:     http.StatusOK,
		NextHeaders:    make(http.Header),
		ResponseStatus: http.StatusAccepted,
		ErrorStatus:    http.StatusAccepted,
		InitStatus:     http.StatusAccepted,
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

func (s *RuntimeServer) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.requests = append(s.requests, RecordedRequest{
		Method:      r.Method,
		Path:        r.URL.Path,
		ContentType: r.Header.Get("Content-Type"),
		Header:      r.Header.Clone(),
		Body:        body,
	})
	nextStatus := s.NextStatus
	nextHeaders := s.NextHeaders.Clone()
	nextBody := s.NextBody
	responseStatus := s.ResponseStatus
	errorStatus := s.ErrorStatus
	initStatus := s.InitStatus
	s.mu.Unlock()

	switch {
	case strings.HasSuffix(r.URL.Path, "/invocation/next"):
		for name, values := range nextHeaders {
			for _, value := range values {
				w.Header().Add(name, value)
			}
		}
		w.WriteHeader(nextStatus)
		w.Write(nextBody)
	case strings.HasSuffix(r.URL.Path, "/response"):
		w.WriteHeader(responseStatus)
	case strings.HasSuffix(r.URL.Path, "/init/error"):
		w.WriteHeader(initStatus)
	case strings.HasSuffix(r.URL.Path, "/error"):
		w.WriteHeader(errorStatus)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// Endpoint returns the host:port of the fake server, the form the runtime
// client expects.
func (s *RuntimeServer) Endpoint() string {
	return strings.TrimPrefix(s.URL, "http://")
}

// ScriptNext configures the response to the next poll.
func (s *RuntimeServer) ScriptNext(status int, headers http.Header, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NextStatus = status
	if headers != nil {
		s.NextHeaders = headers
	}
	s.NextBody = body
}

// ScriptResponse configures the status of the response endpoint.
func (s *RuntimeServer) ScriptResponse(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ResponseStatus = status
}

// ScriptError configures the status of the error endpoint.
func (s *RuntimeServer) ScriptError(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ErrorStatus = status
}

// Requests returns a copy of the requests received so far.
func (s *RuntimeServer) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestsTo returns the recorded requests whose path ends with suffix.
func (s *RuntimeServer) RequestsTo(suffix string) []RecordedRequest {
	var out []RecordedRequest
	for _, req := range s.Requests() {
		if strings.HasSuffix(req.Path, suffix) {
			out = append(out, req)
		}
	}
	return out
}
