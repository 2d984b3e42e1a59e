// Package testutil provides common testing utilities and helpers.
package testutil

import (
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Response is one canned reply of a mock server.
type Response struct {
	Body        string
	StatusCode  int
	ContentType string
}

// NewMockServer creates a test HTTP server with predefined response.
// It validates the request path and API key header, then returns the specified response.
func NewMockServer(t *testing.T, expectedPath, apiKey, responseBody string, statusCode int) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, expectedPath, r.URL.Path, "Request path should match expected")

		if apiKey != "" {
			assert.Equal(t, apiKey, r.Header.Get("X-Api-Key"), "X-Api-Key header should be set")
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_, err := w.Write([]byte(responseBody))
		assert.NoError(t, err, "Failed to write response body")
	}))
}

// Sequence is a mock server that replies with canned responses in order and
// counts the requests it receives. Once the responses run out, the last one
// is repeated.
type Sequence struct {
	*httptest.Server

	calls atomic.Int32
}

// Calls returns how many requests the server has answered.
func (s *Sequence) Calls() int {
	return int(s.calls.Load())
}

// NewMockServerSequence creates a test server that returns responses in sequence.
// Useful for testing retry logic.
func NewMockServerSequence(t *testing.T, responses ...Response) *Sequence {
	t.Helper()
	require.NotEmpty(t, responses, "at least one response is required")

	seq := &Sequence{}
	seq.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := int(seq.calls.Add(1))

		resp := responses[len(responses)-1]
		if n <= len(responses) {
			resp = responses[n-1]
		}

		contentType := resp.ContentType
		if contentType == "" {
			contentType = "application/json"
		}

		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(resp.StatusCode)
		_, _ = w.Write([]byte(resp.Body))
	}))
	t.Cleanup(seq.Close)

	return seq
}

// NewMockServerWithHandler creates a test HTTP server with custom handler.
// The server is closed when the test ends.
func NewMockServerWithHandler(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return server
}

// HostPort splits a test server URL into host and numeric port.
func HostPort(t *testing.T, rawURL string) (string, int) {
	t.Helper()

	parsed, err := url.Parse(rawURL)
	require.NoError(t, err)

	host, portText, err := net.SplitHostPort(parsed.Host)
	require.NoError(t, err)

	port, err := strconv.Atoi(portText)
	require.NoError(t, err)

	return host, port
}

// ClosedPort returns host and port of a listener that has been shut down, so
// connections to it are refused.
func ClosedPort(t *testing.T) (string, int) {
	t.Helper()

	server := httptest.NewServer(http.NotFoundHandler())
	host, port := HostPort(t, server.URL)
	server.Close()

	return host, port
}
