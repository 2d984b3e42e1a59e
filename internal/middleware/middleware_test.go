package middleware_test

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/lexfrei/go-arr/internal/middleware"
	"github.com/lexfrei/go-arr/observability"
)

func TestBasicAuth(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin" || pass != "secret" {
			t.Errorf("BasicAuth() = %q, %q, %v; want admin, secret, true", user, pass, ok)
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	transport := middleware.BasicAuth("admin", "secret")(http.DefaultTransport)

	req, _ := http.NewRequest(http.MethodPost, server.URL+"/transmission/rpc", nil)
	resp, err := transport.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip() error = %v", err)
	}
	defer resp.Body.Close()

	if req.Header.Get("Authorization") != "" {
		t.Error("original request was modified")
	}
}

func TestBasicAuthKeepsExplicitAuthorization(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer token" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer token")
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	transport := middleware.BasicAuth("admin", "secret")(http.DefaultTransport)

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	req.Header.Set("Authorization", "Bearer token")

	resp, err := transport.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip() error = %v", err)
	}
	resp.Body.Close()
}

func TestTLSConfig(t *testing.T) {
	t.Parallel()

	config := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	transport := middleware.TLSConfig(config)(http.DefaultTransport)

	httpTransport, ok := transport.(*http.Transport)
	if !ok {
		t.Fatal("Transport is not *http.Transport")
	}

	if httpTransport == http.DefaultTransport {
		t.Error("TLSConfig must not modify http.DefaultTransport")
	}

	if httpTransport.TLSClientConfig.MinVersion != tls.VersionTLS12 {
		t.Errorf("MinVersion = %d, want %d", httpTransport.TLSClientConfig.MinVersion, tls.VersionTLS12)
	}
}

func TestInsecureSkipVerifyAgainstSelfSigned(t *testing.T) {
	t.Parallel()

	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	transport := middleware.TLSConfig(middleware.InsecureSkipVerify())(http.DefaultTransport)

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	resp, err := transport.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip() error = %v", err)
	}
	resp.Body.Close()
}

type recordedRequest struct {
	method string
	path   string
	status int
}

type recordingMetrics struct {
	mu       sync.Mutex
	requests []recordedRequest
	errors   []string
}

func (m *recordingMetrics) RecordHTTPRequest(method, path string, statusCode int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, recordedRequest{method: method, path: path, status: statusCode})
}

func (m *recordingMetrics) RecordRetry(int, string)               {}
func (m *recordingMetrics) RecordRateLimit(string, time.Duration) {}

func (m *recordingMetrics) RecordError(_, errorType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, errorType)
}

func TestObservability(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	metrics := &recordingMetrics{}
	transport := middleware.Observability(observability.NoopLogger(), metrics)(http.DefaultTransport)

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/v3/movie/42?apikey=secret", nil)
	resp, err := transport.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip() error = %v", err)
	}
	resp.Body.Close()

	if len(metrics.requests) != 1 {
		t.Fatalf("recorded %d requests, want 1", len(metrics.requests))
	}

	want := recordedRequest{method: http.MethodGet, path: "/api/v3/movie/:id", status: http.StatusNotFound}
	if metrics.requests[0] != want {
		t.Errorf("recorded %+v, want %+v", metrics.requests[0], want)
	}
}

func TestObservabilityTransportError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	metrics := &recordingMetrics{}
	transport := middleware.Observability(nil, metrics)(http.DefaultTransport)

	req, _ := http.NewRequest(http.MethodGet, url, nil)
	if _, err := transport.RoundTrip(req); err == nil {
		t.Fatal("RoundTrip() error = nil, want connection error")
	}

	if len(metrics.errors) != 1 || metrics.errors[0] != "NetworkError" {
		t.Errorf("recorded errors = %v, want [NetworkError]", metrics.errors)
	}
}

type idleCounter struct {
	http.RoundTripper
	closed int
}

func (c *idleCounter) CloseIdleConnections() {
	c.closed++
}

func TestCloseIdleConnectionsForwarded(t *testing.T) {
	t.Parallel()

	inner := &idleCounter{RoundTripper: http.DefaultTransport}

	chain := middleware.Observability(nil, nil)(
		middleware.BasicAuth("u", "p")(
			middleware.SessionID("X-Transmission-Session-Id")(
				middleware.RateLimit(middleware.RateLimitConfig{})(inner),
			),
		),
	)

	client := &http.Client{Transport: chain}
	client.CloseIdleConnections()

	if inner.closed != 1 {
		t.Errorf("inner CloseIdleConnections called %d times, want 1", inner.closed)
	}
}
