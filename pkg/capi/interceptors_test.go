package capi_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/fivetwenty-io/cfsync/pkg/capi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRejected = errors.New("rejected")

type recordingLogger struct {
	mu      sync.Mutex
	entries []string
	fields  []map[string]interface{}
}

func (l *recordingLogger) record(level, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, level+" "+msg)
	l.fields = append(l.fields, fields)
}

func (l *recordingLogger) Debug(msg string, fields map[string]interface{}) {
	l.record("debug", msg, fields)
}

func (l *recordingLogger) Info(msg string, fields map[string]interface{}) {
	l.record("info", msg, fields)
}

func (l *recordingLogger) Warn(msg string, fields map[string]interface{}) {
	l.record("warn", msg, fields)
}

func (l *recordingLogger) Error(msg string, fields map[string]interface{}) {
	l.record("error", msg, fields)
}

func TestInterceptorChain_Order(t *testing.T) {
	t.Parallel()

	chain := capi.NewInterceptorChain()
	ctx := context.Background()

	var order []string

	chain.AddRequestInterceptor(func(ctx context.Context, req *capi.Request) error {
		order = append(order, "request-1")

		return nil
	})
	chain.AddRequestInterceptor(func(ctx context.Context, req *capi.Request) error {
		order = append(order, "request-2")

		return nil
	})
	chain.AddResponseInterceptor(func(ctx context.Context, req *capi.Request, resp *capi.Response) error {
		order = append(order, "response-1")

		return nil
	})

	req := &capi.Request{Method: http.MethodGet, Path: "/v3/organizations"}

	require.NoError(t, chain.ExecuteRequestInterceptors(ctx, req))
	require.NoError(t, chain.ExecuteResponseInterceptors(ctx, req, &capi.Response{StatusCode: http.StatusOK}))
	assert.Equal(t, []string{"request-1", "request-2", "response-1"}, order)
}

func TestInterceptorChain_StopsOnError(t *testing.T) {
	t.Parallel()

	chain := capi.NewInterceptorChain()
	called := false

	chain.AddRequestInterceptor(func(ctx context.Context, req *capi.Request) error {
		return errRejected
	})
	chain.AddRequestInterceptor(func(ctx context.Context, req *capi.Request) error {
		called = true

		return nil
	})

	err := chain.ExecuteRequestInterceptors(context.Background(), &capi.Request{})
	require.ErrorIs(t, err, errRejected)
	assert.False(t, called)
}

func TestHeaderInterceptor(t *testing.T) {
	t.Parallel()

	req := &capi.Request{}
	interceptor := capi.HeaderInterceptor(map[string]string{"X-Client": "cfsync"})

	require.NoError(t, interceptor(context.Background(), req))
	assert.Equal(t, "cfsync", req.Headers.Get("X-Client"))
}

func TestLoggingInterceptors(t *testing.T) {
	t.Parallel()

	logger := &recordingLogger{}
	ctx := context.Background()
	req := &capi.Request{Method: http.MethodDelete, Path: "/v3/apps/app-1"}

	require.NoError(t, capi.LoggingInterceptor(logger)(ctx, req))
	require.NoError(t, capi.LoggingResponseInterceptor(logger)(ctx, req, &capi.Response{
		StatusCode: http.StatusUnauthorized,
		Error:      errRejected,
	}))

	assert.Equal(t, []string{"debug API Request", "debug API Response Error"}, logger.entries)
	assert.Equal(t, http.StatusUnauthorized, logger.fields[1]["status_code"])
	assert.Equal(t, "rejected", logger.fields[1]["error"])
	assert.Contains(t, logger.fields[1], "duration")
}
