// Package emulator implements a local stand-in for the Lambda control
// plane: it serves the runtime API that workers poll and exposes a side
// endpoint that accepts invocations, so handlers can be exercised without
// deploying them.
package emulator

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kessler-labs/lambda-runtime-client/pkg/runtime"
)

// invokePath mirrors the invoke endpoint of the AWS runtime interface
// emulator so existing tooling can point at this server unchanged.
const invokePath = "/2015-03-31/functions/function/invocations"

// headerFunctionError marks an invoke response as a function error, the
// same way the Lambda invoke API does.
const headerFunctionError = "X-Amz-Function-Error"

type result struct {
	payload []byte
	report  *runtime.ErrorReport
}

type invocation struct {
	requestID string
	payload   []byte
	done      chan result
}

// Server queues invocations for a single worker and serves the runtime API
// it polls. One event is handed out per poll; the matching response or
// error completes the pending invoke call.
type Server struct {
	functionName string
	functionARN  string
	timeout      time.Duration
	logger       zerolog.Logger

	pending chan *invocation

	mu       sync.Mutex
	inFlight map[string]*invocation
}

// Option configures a Server.
type Option func(*Server)

// WithTimeout sets the invocation deadline window advertised to workers.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		s.timeout = timeout
	}
}

// WithLogger attaches a logger to the server.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger.With().Str("component", "emulator").Logger()
	}
}

// New creates an emulator for the named function.
func New(functionName string, opts ...Option) *Server {
	s := &Server{
		functionName: functionName,
		functionARN:  fmt.Sprintf("arn:aws:lambda:us-east-1:000000000000:function:%s", functionName),
		timeout:      30 * time.Second,
		logger:       zerolog.Nop(),
		pending:      make(chan *invocation),
		inFlight:     make(map[string]*invocation),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler serving both the invoke endpoint and
// the runtime API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+invokePath, s.handleInvoke)
	mux.HandleFunc("GET /"+runtime.APIVersion+"/runtime/invocation/next", s.handleNext)
	mux.HandleFunc("POST /"+runtime.APIVersion+"/runtime/invocation/{id}/response", s.handleResponse)
	mux.HandleFunc("POST /"+runtime.APIVersion+"/runtime/invocation/{id}/error", s.handleError)
	mux.HandleFunc("POST /"+runtime.APIVersion+"/runtime/init/error", s.handleInitError)
	return mux
}

// handleInvoke accepts an invocation, queues it for the worker, and blocks
// until the worker posts the terminal report for it.
func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "reading invocation payload", http.StatusBadRequest)
		return
	}

	inv := &invocation{
		requestID: uuid.NewString(),
		payload:   payload,
		done:      make(chan result, 1),
	}
	s.logger.Info().Str("request_id", inv.requestID).Int("payload_bytes", len(payload)).Msg("queueing invocation")

	select {
	case s.pending <- inv:
	case <-r.Context().Done():
		return
	}

	select {
	case res := <-inv.done:
		w.Header().Set("Content-Type", "application/json")
		if res.report != nil {
			w.Header().Set(headerFunctionError, "Unhandled")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(res.report)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write(res.payload)
	case <-r.Context().Done():
		s.abandon(inv.requestID)
	}
}

// handleNext hands the oldest queued invocation to the polling worker,
// blocking until one arrives. Long-poll semantics: no timeout here.
func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	var inv *invocation
	select {
	case inv = <-s.pending:
	case <-r.Context().Done():
		return
	}

	s.mu.Lock()
	s.inFlight[inv.requestID] = inv
	s.mu.Unlock()

	deadline := time.Now().Add(s.timeout).UnixMilli()
	w.Header().Set(runtime.HeaderRequestID, inv.requestID)
	w.Header().Set(runtime.HeaderFunctionARN, s.functionARN)
	w.Header().Set(runtime.HeaderTraceID, syntheticTraceID())
	w.Header().Set(runtime.HeaderDeadlineMS, strconv.FormatInt(deadline, 10))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(inv.payload)

	s.logger.Debug().Str("request_id", inv.requestID).Msg("handed event to worker")
}

func (s *Server) handleResponse(w http.ResponseWriter, r *http.Request) {
	requestID := r.PathValue("id")
	inv := s.take(requestID)
	if inv == nil {
		http.Error(w, "unknown request id", http.StatusNotFound)
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "reading response payload", http.StatusBadRequest)
		return
	}

	inv.done <- result{payload: payload}
	s.logger.Debug().Str("request_id", requestID).Msg("worker posted response")
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request) {
	requestID := r.PathValue("id")
	inv := s.take(requestID)
	if inv == nil {
		http.Error(w, "unknown request id", http.StatusNotFound)
		return
	}

	var report runtime.ErrorReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		http.Error(w, "invalid error report", http.StatusBadRequest)
		return
	}

	inv.done <- result{report: &report}
	s.logger.Warn().
		Str("request_id", requestID).
		Str("error_type", report.ErrorType).
		Str("error_message", report.ErrorMessage).
		Msg("worker posted error")
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleInitError(w http.ResponseWriter, r *http.Request) {
	var report runtime.ErrorReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		http.Error(w, "invalid error report", http.StatusBadRequest)
		return
	}

	s.logger.Error().
		Str("error_type", report.ErrorType).
		Str("error_message", report.ErrorMessage).
		Msg("worker reported init failure")
	w.WriteHeader(http.StatusAccepted)
}

// take removes and returns the in-flight invocation for requestID.
func (s *Server) take(requestID string) *invocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv := s.inFlight[requestID]
	delete(s.inFlight, requestID)
	return inv
}

// abandon drops an in-flight invocation whose invoker went away. The
// worker's eventual report for it is answered with 404.
func (s *Server) abandon(requestID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, requestID)
}

func syntheticTraceID() string {
	return fmt.Sprintf("Root=1-%08x-%024x;Sampled=0", time.Now().Unix(), time.Now().UnixNano())
}
