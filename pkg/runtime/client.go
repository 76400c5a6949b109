// Package runtime implements the client side of the Lambda Runtime API:
// the long-poll for the next invocation event, the response and error
// reporting calls, and the init-failure report. It is the only package in
// this module that performs network I/O against the runtime endpoint.
package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/rs/zerolog"
)

const (
	// APIVersion is the fixed version path segment of the runtime API.
	APIVersion = "2018-06-01"

	contentTypeJSON  = "application/json"
	contentTypeError = "application/vnd.aws.lambda.error+json"

	// HeaderFunctionErrorType marks posted errors as runtime errors.
	HeaderFunctionErrorType = "Lambda-Runtime-Function-Error-Type"

	functionErrorType = "RuntimeError"
)

// Client talks to the runtime API at a fixed endpoint. The underlying
// HTTP client has no timeout: the next-event call long-polls and may block
// indefinitely until the control plane hands out an event. Connections are
// reused across the sequential poll/report cycle.
//
// A Client holds no per-invocation state; the protocol serializes
// interaction to one event at a time, so no locking is needed for the
// steady-state loop.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     zerolog.Logger

	// fatal is invoked when PostInitFailure cannot deliver its report.
	// Defaults to os.Exit(1); tests substitute their own hook.
	fatal func()
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient substitutes the transport. The replacement must not set
// a timeout shorter than the longest expected poll.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger attaches a logger to the client.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger.With().Str("component", "runtime-client").Logger()
	}
}

// WithFatalHook replaces the process-termination hook used when an init
// failure report cannot be delivered.
func WithFatalHook(fatal func()) Option {
	return func(c *Client) {
		c.fatal = fatal
	}
}

// NewClient creates a runtime API client for the given endpoint host:port,
// typically the value of AWS_LAMBDA_RUNTIME_API.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		// Timeout deliberately zero: the next call long-polls.
		httpClient: &http.Client{},
		logger:     zerolog.Nop(),
		fatal:      func() { os.Exit(1) },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the endpoint this client was configured with.
func (c *Client) Endpoint() string {
	return c.endpoint
}

func (c *Client) url(path string) string {
	return fmt.Sprintf("http://%s/%s/%s", c.endpoint, APIVersion, path)
}

// NextEvent polls the runtime API for the next invocation. It blocks until
// the control plane hands out an event or the transport fails. The payload
// is buffered fully before returning; the protocol does not stream bodies.
//
// A 4xx status fails this one poll attempt with a recoverable error. A 5xx
// status returns an error marked unrecoverable: a persistent control-plane
// fault cannot be resolved by polling again from the same process, so the
// caller should exit and let the supervisor restart the worker.
func (c *Client) NextEvent(ctx context.Context) ([]byte, *EventContext, error) {
	c.logger.Trace().Msg("polling for next event")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("runtime/invocation/next"), nil)
	if err != nil {
		return nil, nil, WrapAPIError(err, ErrorTypeTransport, "building next event request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Msg("error fetching next event from runtime API")
		return nil, nil, WrapAPIError(err, ErrorTypeTransport, "fetching next event")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		c.logger.Error().Int("status", resp.StatusCode).Msg("runtime API returned client error when polling for events")
		return nil, nil, NewAPIErrorf(ErrorTypeProtocol, "error %d when polling for events", resp.StatusCode)
	}
	if resp.StatusCode >= 500 {
		c.logger.Error().Int("status", resp.StatusCode).Msg("runtime API returned server error when polling for events")
		return nil, nil, NewAPIError(ErrorTypeProtocol, "server error when polling for events").Fatal()
	}

	eventCtx, err := DecodeEventContext(resp.Header)
	if err != nil {
		return nil, nil, err
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, WrapAPIError(err, ErrorTypeTransport, "reading event payload")
	}

	c.logger.Debug().
		Str("request_id", eventCtx.RequestID).
		Int("payload_bytes", len(payload)).
		Msg("received new event")

	return payload, eventCtx, nil
}

// PostResponse reports a successful invocation result. Any non-2xx status
// is a recoverable error carrying the status code; the runtime API returns
// 4xx for oversized responses, and that must not kill the worker — the
// caller logs it and polls for the next event.
func (c *Client) PostResponse(ctx context.Context, requestID string, output []byte) error {
	c.logger.Trace().
		Str("request_id", requestID).
		Int("response_bytes", len(output)).
		Msg("posting response to runtime API")

	path := fmt.Sprintf("runtime/invocation/%s/response", requestID)
	resp, err := c.post(ctx, path, contentTypeJSON, output, nil)
	if err != nil {
		c.logger.Error().Err(err).Str("request_id", requestID).Msg("error posting response to runtime API")
		return err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		c.logger.Error().
			Int("status", resp.StatusCode).
			Str("request_id", requestID).
			Msg("runtime API rejected response")
		return NewAPIErrorf(ErrorTypeProtocol, "error %d while sending response", resp.StatusCode)
	}

	c.logger.Trace().Str("request_id", requestID).Msg("posted response to runtime API")
	return nil
}

// PostError reports a failed invocation. The reportable error is rendered
// into an ErrorReport and posted with the Lambda error content type. The
// call completes (or fails observably) before returning; it never decides
// on its own that a posting failure is fatal — that is the caller's call.
func (c *Client) PostError(ctx context.Context, requestID string, reportable Reportable) error {
	report := reportable.Report()
	c.logger.Trace().
		Str("request_id", requestID).
		Str("error_message", report.ErrorMessage).
		Msg("posting error to runtime API")

	body, err := json.Marshal(report)
	if err != nil {
		return WrapAPIError(err, ErrorTypeTransport, "encoding error report")
	}

	path := fmt.Sprintf("runtime/invocation/%s/error", requestID)
	resp, err := c.post(ctx, path, contentTypeError, body, errorHeaders())
	if err != nil {
		c.logger.Error().Err(err).Str("request_id", requestID).Msg("error posting error report to runtime API")
		return err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		c.logger.Error().
			Int("status", resp.StatusCode).
			Str("request_id", requestID).
			Msg("runtime API rejected error report")
		return NewAPIErrorf(ErrorTypeProtocol, "error %d while sending error report", resp.StatusCode)
	}

	c.logger.Trace().Str("request_id", requestID).Msg("posted error report to runtime API")
	return nil
}

// PostInitFailure announces a fatal startup failure to the runtime API.
// There is no event loop to recover into at init time, so being unable to
// deliver the report is itself unrecoverable: on transport failure the
// fatal hook terminates the process and the call does not return. A
// successfully delivered report returns normally, whatever the status.
func (c *Client) PostInitFailure(ctx context.Context, reportable Reportable) {
	report := reportable.Report()
	c.logger.Error().Str("error_message", report.ErrorMessage).Msg("reporting init failure to runtime API")

	body, err := json.Marshal(report)
	if err != nil {
		c.logger.Error().Err(err).Msg("could not encode init failure report")
		c.fatal()
		return
	}

	resp, err := c.post(ctx, "runtime/init/error", contentTypeError, body, errorHeaders())
	if err != nil {
		c.logger.Error().Err(err).Msg("error sending init failure report")
		c.fatal()
		return
	}
	defer resp.Body.Close()

	c.logger.Info().Int("status", resp.StatusCode).Msg("sent init failure report to runtime API")
}

func (c *Client) post(ctx context.Context, path, contentType string, body []byte, headers http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(body))
	if err != nil {
		return nil, WrapAPIError(err, ErrorTypeTransport, "building runtime API request")
	}
	req.Header.Set("Content-Type", contentType)
	for name, values := range headers {
		for _, value := range values {
			req.Header.Add(name, value)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, WrapAPIError(err, ErrorTypeTransport, "calling runtime API")
	}
	return resp, nil
}

func errorHeaders() http.Header {
	headers := make(http.Header)
	headers.Set(HeaderFunctionErrorType, functionErrorType)
	return headers
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
