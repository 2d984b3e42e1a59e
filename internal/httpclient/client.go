// Package httpclient provides the pooled HTTP session handle used by the arr client.
package httpclient

import (
	"net/http"
	"time"
)

// DefaultTimeout is applied when no timeout option is given.
const DefaultTimeout = 30 * time.Second

// Client is an HTTP client that supports middleware chaining.
// A Client owns one connection pool; it is shared by every request issued
// through it and must not be copied by callers.
type Client struct {
	base       *http.Client
	middleware []Middleware
}

// Middleware wraps an http.RoundTripper to add behavior.
// Middleware is applied in order: first middleware is outermost.
type Middleware func(http.RoundTripper) http.RoundTripper

// New creates a new HTTP client with the given options.
func New(opts ...Option) *Client {
	c := &Client{
		base: &http.Client{
			Timeout: DefaultTimeout,
		},
		middleware: []Middleware{},
	}

	for _, opt := range opts {
		opt(c)
	}

	// Build middleware chain
	if len(c.middleware) > 0 {
		transport := c.base.Transport
		if transport == nil {
			transport = http.DefaultTransport
		}

		// Apply middleware in reverse order so first middleware is outermost
		for i := len(c.middleware) - 1; i >= 0; i-- {
			transport = c.middleware[i](transport)
		}

		c.base.Transport = transport
	}

	return c
}

// Do executes an HTTP request using the configured middleware chain.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	//nolint:wrapcheck // Transport errors are classified by the caller
	return c.base.Do(req)
}

// HTTPClient returns the underlying http.Client.
// This is useful when the client needs to be passed to code that expects *http.Client.
func (c *Client) HTTPClient() *http.Client {
	return c.base
}

// Timeout returns the whole-request timeout of the session.
func (c *Client) Timeout() time.Duration {
	return c.base.Timeout
}

// WithTimeout returns a view of the client that enforces timeout instead of the
// session default. The view shares the connection pool and middleware chain;
// the receiver is not modified.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout <= 0 || timeout == c.base.Timeout {
		return c
	}

	base := *c.base
	base.Timeout = timeout

	return &Client{
		base:       &base,
		middleware: c.middleware,
	}
}

// CloseIdleConnections closes pooled connections that are not in use.
// Requests in flight keep their connections until they complete.
func (c *Client) CloseIdleConnections() {
	c.base.CloseIdleConnections()
}
