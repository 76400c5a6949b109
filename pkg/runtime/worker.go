package runtime

import (
	"context"

	"github.com/rs/zerolog"
)

// Handler executes application logic for one invocation. The payload is
// the raw event bytes from the poll; the returned bytes are posted back as
// the invocation response. A returned error is reported through the error
// endpoint and the worker moves on to the next event.
type Handler interface {
	Invoke(ctx context.Context, payload []byte, eventCtx *EventContext) ([]byte, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, payload []byte, eventCtx *EventContext) ([]byte, error)

// Invoke implements Handler.
func (f HandlerFunc) Invoke(ctx context.Context, payload []byte, eventCtx *EventContext) ([]byte, error) {
	return f(ctx, payload, eventCtx)
}

// Worker drives the poll, execute, report cycle against a runtime client.
// Exactly one invocation is in flight at a time: the control plane hands
// out one event per poll and expects one terminal report before the next
// poll, so no second poll is issued until the previous report completes.
type Worker struct {
	client  *Client
	handler Handler
	logger  zerolog.Logger
}

// NewWorker creates a worker loop around client and handler.
func NewWorker(client *Client, handler Handler, logger zerolog.Logger) *Worker {
	return &Worker{
		client:  client,
		handler: handler,
		logger:  logger.With().Str("component", "worker").Logger(),
	}
}

// Run polls for events until ctx is cancelled or an unrecoverable error is
// observed. Recoverable failures on any call are logged and the loop
// continues with the next poll; the unrecoverable flag is checked after
// every client call and stops the loop so the process can exit and be
// restarted by its supervisor.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		payload, eventCtx, err := w.client.NextEvent(ctx)
		if err != nil {
			if IsUnrecoverable(err) {
				w.logger.Error().Err(err).Msg("unrecoverable poll failure, stopping worker")
				return err
			}
			w.logger.Warn().Err(err).Msg("poll failed, retrying")
			continue
		}

		w.invoke(ctx, payload, eventCtx)
	}
}

// invoke executes the handler for one event and posts the terminal report.
func (w *Worker) invoke(ctx context.Context, payload []byte, eventCtx *EventContext) {
	logger := w.logger.With().Str("request_id", eventCtx.RequestID).Logger()

	// The deadline header is absolute wall-clock time; derive the
	// handler's context from it so application code can observe it.
	invokeCtx, cancel := context.WithDeadline(ctx, eventCtx.Deadline())
	defer cancel()

	// The terminal report for an event runs to completion even when the
	// loop is being shut down; cancellation only stops new polls.
	reportCtx := context.WithoutCancel(ctx)

	output, err := w.handler.Invoke(invokeCtx, payload, eventCtx)
	if err != nil {
		logger.Warn().Err(err).Msg("handler returned error")
		if postErr := w.client.PostError(reportCtx, eventCtx.RequestID, asReportable(err)); postErr != nil {
			logger.Error().Err(postErr).Msg("failed to post error report")
		}
		return
	}

	if err := w.client.PostResponse(reportCtx, eventCtx.RequestID, output); err != nil {
		// Oversized or malformed responses surface here as 4xx; log and
		// keep polling rather than killing the worker.
		logger.Error().Err(err).Msg("failed to post response")
	}
}

// asReportable passes Reportable handler errors through verbatim and wraps
// everything else with a generic type tag.
func asReportable(err error) Reportable {
	if reportable, ok := err.(Reportable); ok {
		return reportable
	}
	return &HandlerError{Err: err}
}
