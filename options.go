package arr

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/lexfrei/go-arr/internal/httpclient"
	"github.com/lexfrei/go-arr/internal/retry"
	"github.com/lexfrei/go-arr/observability"
)

// Request describes one logical call.
type Request struct {
	// Method defaults to GET.
	Method string

	// Endpoint is relative to the profile's API version, e.g. "movie/lookup".
	// It may carry its own query string.
	Endpoint string

	// Query is appended to the endpoint's query string.
	Query url.Values

	// Body is JSON-encoded when non-nil.
	Body any

	// Options override the profile for this call only.
	Options CallOptions
}

// CallOptions override profile settings for a single call.
type CallOptions struct {
	// Timeout replaces the session timeout for every attempt of the call.
	Timeout time.Duration

	// MaxRetries replaces the profile's retry budget when non-nil.
	MaxRetries *int
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger observability.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder. Defaults to a no-op recorder.
func WithMetrics(metrics observability.MetricsRecorder) Option {
	return func(c *Client) {
		if metrics != nil {
			c.metrics = metrics
		}
	}
}

// WithTransport sets the base transport of every session. By default each
// session gets its own pooled transport. Profile.InsecureSkipVerify is not
// applied to a custom transport.
func WithTransport(transport http.RoundTripper) Option {
	return func(c *Client) {
		c.transport = transport
	}
}

// WithMiddleware appends transport middleware, applied inside the built-in
// logging, rate limiting and auth layers.
func WithMiddleware(middleware ...func(http.RoundTripper) http.RoundTripper) Option {
	return func(c *Client) {
		for _, mw := range middleware {
			c.middleware = append(c.middleware, httpclient.Middleware(mw))
		}
	}
}

func withSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		c.sleep = retry.Sleeper(sleep)
	}
}
