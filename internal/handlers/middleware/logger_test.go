package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/deskled/internal/handlers/reqctx"
)

type loggerFunc func(string, ...any)

func (f loggerFunc) Info(msg string, v ...any) { f(msg, v...) }

func TestLoggerMiddleware(t *testing.T) {
	// Handler writes request id seen in context to response
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, err := w.Write([]byte(reqctx.RequestID(r.Context())))
		require.NoError(t, err, "should write response")
	})

	t.Run("log request fields", func(t *testing.T) {
		called := 0
		var msg string
		var args []any

		logger := loggerFunc(func(m string, v ...any) {
			called++
			msg = m
			args = v
		})

		srv := httptest.NewServer(LoggerMiddleware(logger)(h))
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/test")
		require.NoError(t, err, "should make request to test server")
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err, "should read response body")
		defer resp.Body.Close() // nolint:errcheck

		require.Equalf(t, http.StatusTeapot, resp.StatusCode, "should return status Teapot. Resp: %s", string(body))

		requestID := resp.Header.Get(RequestIDHeader)
		require.NoError(t, uuid.Validate(requestID), "generated request id should be uuid")
		require.Equal(t, requestID, string(body), "handler should see the same request id")

		require.Equal(t, 1, called, "logger should be called once")
		require.Equal(t, "got HTTP request", msg, "logger should log 'got HTTP request'")
		require.Len(t, args, 12, "logger should log 12 fields")
		require.Equal(t, "request_id", args[0])
		require.Equal(t, requestID, args[1])
		require.Equal(t, "method", args[2])
		require.Equal(t, "GET", args[3])
		require.Equal(t, "uri", args[4])
		require.Equal(t, "/test", args[5])
		require.Equal(t, "duration", args[6])
		require.NotEmpty(t, args[7], "duration should not be empty")
		require.Equal(t, "status", args[8])
		require.Equal(t, http.StatusTeapot, args[9])
		require.Equal(t, "size", args[10])
		require.Equal(t, len(requestID), args[11], "size should be length of written request id")
	})

	t.Run("keep incoming request id", func(t *testing.T) {
		srv := httptest.NewServer(LoggerMiddleware(loggerFunc(func(string, ...any) {}))(h))
		defer srv.Close()

		req, err := http.NewRequest(http.MethodGet, srv.URL+"/test", nil)
		require.NoError(t, err)
		req.Header.Set(RequestIDHeader, "from-proxy")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err, "should make request to test server")
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err, "should read response body")
		defer resp.Body.Close() // nolint:errcheck

		require.Equal(t, "from-proxy", resp.Header.Get(RequestIDHeader))
		require.Equal(t, "from-proxy", string(body))
	})
}
