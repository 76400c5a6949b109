package runtime_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/kessler-labs/lambda-runtime-client/internal/testutil"
	"github.com/kessler-labs/lambda-runtime-client/pkg/runtime"
)

func TestNextEventSuccess(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{
			name: "json payload",
			body: []byte(`{"records": [1, 2, 3]}`),
		},
		{
			name: "empty body",
			body: []byte{},
		},
		{
			name: "binary payload",
			body: []byte{0x00, 0xff, 0x10, 0x80},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := testutil.NewRuntimeServer()
			defer server.Close()
			server.ScriptNext(http.StatusOK, testutil.NewHeaderBuilder().Build(), tt.body)

			client := runtime.NewClient(server.Endpoint())
			payload, eventCtx, err := client.NextEvent(context.Background())
			testutil.AssertNoError(t, err, "NextEvent")

			if !bytes.Equal(payload, tt.body) {
				t.Errorf("payload = %v, want %v", payload, tt.body)
			}
			testutil.AssertEqual(t, eventCtx.RequestID, testutil.TestRequestID, "request id")
			testutil.AssertEqual(t, eventCtx.InvokedFunctionARN, testutil.TestFunctionARN, "function arn")
			testutil.AssertEqual(t, eventCtx.TraceID, testutil.TestTraceID, "trace id")
			testutil.AssertEqual(t, eventCtx.DeadlineMS, testutil.TestDeadlineMS, "deadline")

			polls := server.RequestsTo("/invocation/next")
			if len(polls) != 1 {
				t.Fatalf("expected 1 poll, got %d", len(polls))
			}
			testutil.AssertEqual(t, polls[0].Method, http.MethodGet, "poll method")
		})
	}
}

func TestNextEventClientErrorIsRecoverable(t *testing.T) {
	server := testutil.NewRuntimeServer()
	defer server.Close()
	server.ScriptNext(http.StatusNotFound, nil, nil)

	client := runtime.NewClient(server.Endpoint())
	_, _, err := client.NextEvent(context.Background())
	testutil.AssertErrorContains(t, err, "404", "poll with 404")

	if runtime.IsUnrecoverable(err) {
		t.Error("a 4xx poll failure must be recoverable")
	}
}

func TestNextEventServerErrorIsUnrecoverable(t *testing.T) {
	server := testutil.NewRuntimeServer()
	defer server.Close()
	server.ScriptNext(http.StatusInternalServerError, nil, nil)

	client := runtime.NewClient(server.Endpoint())
	_, _, err := client.NextEvent(context.Background())
	testutil.AssertError(t, err, "poll with 500")

	if !runtime.IsUnrecoverable(err) {
		t.Error("a 5xx poll failure must be flagged unrecoverable")
	}
}

func TestNextEventMissingHeaderShortCircuits(t *testing.T) {
	server := testutil.NewRuntimeServer()
	defer server.Close()
	headers := testutil.NewHeaderBuilder().Without("Lambda-Runtime-Aws-Request-Id").Build()
	server.ScriptNext(http.StatusOK, headers, []byte(`{"ignored": true}`))

	client := runtime.NewClient(server.Endpoint())
	_, _, err := client.NextEvent(context.Background())
	testutil.AssertErrorContains(t, err, "Lambda-Runtime-Aws-Request-Id", "poll without request id header")

	var missing *runtime.MissingHeaderError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingHeaderError, got %T", err)
	}
}

func TestNextEventTransportFailure(t *testing.T) {
	client := runtime.NewClient("127.0.0.1:1",
		runtime.WithHTTPClient(testutil.NewFailingHTTPClient(errors.New("connection refused"))))

	_, _, err := client.NextEvent(context.Background())
	testutil.AssertErrorContains(t, err, "connection refused", "poll over dead transport")
	if runtime.IsUnrecoverable(err) {
		t.Error("transport failures default to recoverable")
	}
}

func TestPostResponse(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		server := testutil.NewRuntimeServer()
		defer server.Close()

		client := runtime.NewClient(server.Endpoint())
		err := client.PostResponse(context.Background(), testutil.TestRequestID, []byte(`{"ok": true}`))
		testutil.AssertNoError(t, err, "PostResponse with 202")

		posts := server.RequestsTo("/response")
		if len(posts) != 1 {
			t.Fatalf("expected 1 response post, got %d", len(posts))
		}
		testutil.AssertEqual(t, posts[0].ContentType, "application/json", "response content type")
		testutil.AssertEqual(t, posts[0].Path, "/2018-06-01/runtime/invocation/"+testutil.TestRequestID+"/response", "response path")
		if string(posts[0].Body) != `{"ok": true}` {
			t.Errorf("response body = %s", posts[0].Body)
		}
	})

	t.Run("payload too large", func(t *testing.T) {
		server := testutil.NewRuntimeServer()
		defer server.Close()
		server.ScriptResponse(http.StatusRequestEntityTooLarge)

		client := runtime.NewClient(server.Endpoint())
		err := client.PostResponse(context.Background(), testutil.TestRequestID, []byte(`{}`))
		testutil.AssertErrorContains(t, err, "413", "PostResponse with 413")

		// Response-posting failures never kill the worker, whatever the
		// status class.
		if runtime.IsUnrecoverable(err) {
			t.Error("PostResponse errors must be recoverable")
		}
	})

	t.Run("server error", func(t *testing.T) {
		server := testutil.NewRuntimeServer()
		defer server.Close()
		server.ScriptResponse(http.StatusInternalServerError)

		client := runtime.NewClient(server.Endpoint())
		err := client.PostResponse(context.Background(), testutil.TestRequestID, []byte(`{}`))
		testutil.AssertErrorContains(t, err, "500", "PostResponse with 500")
		if runtime.IsUnrecoverable(err) {
			t.Error("PostResponse errors must be recoverable even for 5xx")
		}
	})
}

func TestPostError(t *testing.T) {
	t.Run("serializes report", func(t *testing.T) {
		server := testutil.NewRuntimeServer()
		defer server.Close()

		client := runtime.NewClient(server.Endpoint())
		handlerErr := &runtime.HandlerError{Err: errors.New("out of cheese"), ErrorType: "CheeseError"}
		err := client.PostError(context.Background(), testutil.TestRequestID, handlerErr)
		testutil.AssertNoError(t, err, "PostError with 202")

		posts := server.RequestsTo("/error")
		if len(posts) != 1 {
			t.Fatalf("expected exactly 1 error post, got %d", len(posts))
		}
		testutil.AssertEqual(t, posts[0].ContentType, "application/vnd.aws.lambda.error+json", "error content type")
		testutil.AssertEqual(t, posts[0].Header.Get("Lambda-Runtime-Function-Error-Type"), "RuntimeError", "function error type header")

		var report runtime.ErrorReport
		testutil.AssertNoError(t, json.Unmarshal(posts[0].Body, &report), "decoding posted report")
		testutil.AssertEqual(t, report.ErrorMessage, "out of cheese", "report message")
		testutil.AssertEqual(t, report.ErrorType, "CheeseError", "report type")
	})

	t.Run("rejected report is recoverable", func(t *testing.T) {
		server := testutil.NewRuntimeServer()
		defer server.Close()
		server.ScriptError(http.StatusBadRequest)

		client := runtime.NewClient(server.Endpoint())
		handlerErr := &runtime.HandlerError{Err: errors.New("boom")}
		err := client.PostError(context.Background(), testutil.TestRequestID, handlerErr)
		testutil.AssertErrorContains(t, err, "400", "PostError with 400")
		if runtime.IsUnrecoverable(err) {
			t.Error("PostError failures must be left to the caller to classify")
		}

		// The report must still have been serialized and sent exactly once.
		posts := server.RequestsTo("/error")
		if len(posts) != 1 {
			t.Fatalf("expected exactly 1 error post, got %d", len(posts))
		}
	})
}

func TestPostInitFailure(t *testing.T) {
	t.Run("delivered report returns normally", func(t *testing.T) {
		server := testutil.NewRuntimeServer()
		defer server.Close()

		fatalCalled := false
		client := runtime.NewClient(server.Endpoint(),
			runtime.WithFatalHook(func() { fatalCalled = true }))

		client.PostInitFailure(context.Background(), &runtime.HandlerError{Err: errors.New("init exploded"), ErrorType: "InitError"})

		if fatalCalled {
			t.Error("fatal hook must not fire when the report is delivered")
		}

		posts := server.RequestsTo("/init/error")
		if len(posts) != 1 {
			t.Fatalf("expected 1 init error post, got %d", len(posts))
		}
		testutil.AssertEqual(t, posts[0].Path, "/2018-06-01/runtime/init/error", "init error path")
		testutil.AssertEqual(t, posts[0].ContentType, "application/vnd.aws.lambda.error+json", "init error content type")

		var report runtime.ErrorReport
		testutil.AssertNoError(t, json.Unmarshal(posts[0].Body, &report), "decoding init report")
		testutil.AssertEqual(t, report.ErrorType, "InitError", "init report type")
	})

	t.Run("transport failure terminates", func(t *testing.T) {
		fatalCalled := false
		client := runtime.NewClient("127.0.0.1:1",
			runtime.WithHTTPClient(testutil.NewFailingHTTPClient(errors.New("network down"))),
			runtime.WithFatalHook(func() { fatalCalled = true }))

		client.PostInitFailure(context.Background(), &runtime.HandlerError{Err: errors.New("init exploded")})

		if !fatalCalled {
			t.Error("fatal hook must fire when the init report cannot be sent")
		}
	})
}
