package arr

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/lexfrei/go-arr/internal/httpclient"
	"github.com/lexfrei/go-arr/internal/middleware"
	"github.com/lexfrei/go-arr/internal/ratelimit"
	"github.com/lexfrei/go-arr/internal/response"
	"github.com/lexfrei/go-arr/internal/retry"
	"github.com/lexfrei/go-arr/internal/session"
	"github.com/lexfrei/go-arr/observability"
)

// Client executes requests against one service. It owns a lazily created
// HTTP session shared by all calls and is safe for concurrent use.
type Client struct {
	profile    Profile
	sessions   *session.Manager
	limiter    *rate.Limiter
	writes     *rate.Limiter
	transport  http.RoundTripper
	middleware []httpclient.Middleware
	sleep      retry.Sleeper
	logger     observability.Logger
	metrics    observability.MetricsRecorder
}

// New creates a client for the service described by profile. The profile is
// validated and copied with defaults applied; no connection is opened until
// the first request.
func New(profile Profile, opts ...Option) (*Client, error) {
	if err := profile.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid profile")
	}

	c := &Client{
		profile: profile.withDefaults(),
		logger:  observability.NoopLogger(),
		metrics: observability.NoopMetricsRecorder(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.profile.Name != "" {
		c.logger = c.logger.With(observability.Field{Key: "service", Value: c.profile.Name})
	}

	c.limiter = ratelimit.NewRateLimiter(c.profile.RateLimitPerMinute)
	c.writes = ratelimit.NewRateLimiter(c.profile.WriteRateLimitPerMinute)
	c.sessions = session.New(c.newSession)

	return c, nil
}

// newSession builds a session handle. Middleware runs outermost first:
// observability, rate limiting, session-id negotiation, basic auth, caller
// middleware, TLS.
func (c *Client) newSession() *httpclient.Client {
	chain := []httpclient.Middleware{middleware.Observability(c.logger, c.metrics)}

	if c.limiter != nil || c.writes != nil {
		chain = append(chain, middleware.RateLimit(middleware.RateLimitConfig{
			Selector: middleware.ByMethod(c.limiter, c.writes),
			Logger:   c.logger,
			Metrics:  c.metrics,
		}))
	}

	if c.profile.SessionIDHeader != "" {
		chain = append(chain, middleware.SessionID(c.profile.SessionIDHeader))
	}

	if c.profile.Username != "" {
		chain = append(chain, middleware.BasicAuth(c.profile.Username, c.profile.Password))
	}

	chain = append(chain, c.middleware...)

	transport := c.transport
	if transport == nil {
		transport = httpclient.NewTransport()

		if c.profile.InsecureSkipVerify {
			chain = append(chain, middleware.TLSConfig(middleware.InsecureSkipVerify()))
		}
	}

	return httpclient.New(
		httpclient.WithTimeout(c.profile.Timeout),
		httpclient.WithTransport(transport),
		httpclient.WithMiddleware(chain...),
	)
}

// Profile returns a copy of the defaulted profile.
func (c *Client) Profile() Profile {
	return c.profile.clone()
}

// URL renders the request target for endpoint.
func (c *Client) URL(endpoint string) string {
	return BuildURL(c.profile, endpoint)
}

// Headers returns the headers sent with every request: the credential
// header when a credential is configured, plus JSON content negotiation.
func (c *Client) Headers() http.Header {
	headers := http.Header{}

	if c.profile.Credential != "" {
		headers.Set(c.profile.CredentialHeader, c.profile.Credential)
	}

	headers.Set("Content-Type", "application/json")
	headers.Set("Accept", "application/json")

	return headers
}

// HTTPClient returns the current session's http.Client for adapters that
// need raw responses. It creates the session if none is open.
func (c *Client) HTTPClient() *http.Client {
	return c.sessions.Acquire().HTTPClient()
}

// Close releases the session's pooled connections. The client stays usable:
// the next request opens a new session. Close is idempotent.
func (c *Client) Close() error {
	c.sessions.Close()

	return nil
}

// Fetch executes req and returns the decoded body, or nil when the call
// failed or returned no data.
func (c *Client) Fetch(ctx context.Context, req Request) json.RawMessage {
	res := c.Execute(ctx, req)
	if !res.OK() {
		return nil
	}

	return res.Data()
}

// FetchAs executes req on c and decodes the body into T. It returns nil when
// the call failed, returned no data, or the data does not decode into T.
func FetchAs[T any](ctx context.Context, c *Client, req Request) *T {
	data := c.Fetch(ctx, req)
	if data == nil {
		return nil
	}

	v, err := response.Decode[T](data)
	if err != nil {
		c.logger.Warn("failed to decode response",
			observability.Field{Key: "endpoint", Value: req.Endpoint},
			observability.Field{Key: "error", Value: err.Error()},
		)

		return nil
	}

	return v
}

// Execute performs one logical call: it builds the URL, sends the request
// on the shared session, retries retryable failures with exponential
// backoff and interprets the final response. It never panics or returns an
// error; every failure is reported through the Result.
func (c *Client) Execute(ctx context.Context, req Request) Result {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	logger := c.logger.With(
		observability.Field{Key: "request_id", Value: uuid.NewString()},
		observability.Field{Key: "method", Value: method},
		observability.Field{Key: "endpoint", Value: req.Endpoint},
	)

	body, err := encodeBody(req.Body)
	if err != nil {
		logger.Error("failed to encode request body", observability.Field{Key: "error", Value: err.Error()})
		c.metrics.RecordError("execute", KindUnexpected.String())

		return Result{message: "Unexpected error: " + err.Error(), kind: KindUnexpected}
	}

	target := c.target(req)
	headers := c.Headers()
	timeout := req.Options.Timeout

	logger.Info("api request", observability.Field{Key: "url", Value: redact(target)})

	engine := retry.NewEngine(
		retry.WithSleeper(c.sleep),
		retry.WithLogger(logger),
		retry.WithMetrics(c.metrics),
	)

	state := engine.Run(ctx, req.Endpoint, c.policy(req.Options), func(ctx context.Context, _ int) retry.Outcome {
		return c.attempt(ctx, method, target, headers, body, timeout)
	})

	return c.interpret(logger, state)
}

func (c *Client) policy(opts CallOptions) retry.Policy {
	retries := c.profile.retries()
	if opts.MaxRetries != nil {
		retries = max(*opts.MaxRetries, 0)
	}

	return retry.Policy{
		MaxRetries:        retries,
		BackoffBase:       c.profile.BackoffBase,
		RetryableStatuses: c.profile.RetryableStatuses,
	}
}

func (c *Client) target(req Request) string {
	target := c.URL(req.Endpoint)

	if len(req.Query) == 0 {
		return target
	}

	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}

	return target + sep + req.Query.Encode()
}

// attempt sends one request on the current session and reads the full body.
func (c *Client) attempt(
	ctx context.Context,
	method, target string,
	headers http.Header,
	body []byte,
	timeout time.Duration,
) retry.Outcome {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return retry.Outcome{Err: retry.MarkUnexpected(errors.Wrap(err, "failed to build request"))}
	}

	httpReq.Header = headers.Clone()

	resp, err := c.sessions.Acquire().WithTimeout(timeout).Do(httpReq)
	if err != nil {
		return retry.Outcome{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return retry.Outcome{Err: errors.Wrap(err, "failed to read response body")}
	}

	return retry.Outcome{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}
}

func (c *Client) interpret(logger observability.Logger, state retry.State) Result {
	last := state.Last

	if state.Kind == KindNone {
		data := response.ParseBody(last.Body)

		logger.Debug("api response",
			observability.Field{Key: "status", Value: last.StatusCode},
			observability.Field{Key: "attempts", Value: state.Attempts()},
			observability.Field{Key: "has_data", Value: data != nil},
		)

		return Result{
			ok:         true,
			data:       data,
			body:       last.Body,
			kind:       KindNone,
			statusCode: last.StatusCode,
			attempts:   state.Attempts(),
		}
	}

	message := failureMessage(state.Kind, last)

	logger.Error("api request failed",
		observability.Field{Key: "kind", Value: state.Kind.String()},
		observability.Field{Key: "status", Value: last.StatusCode},
		observability.Field{Key: "attempts", Value: state.Attempts()},
		observability.Field{Key: "message", Value: message},
	)
	c.metrics.RecordError("execute", state.Kind.String())

	return Result{
		message:    message,
		kind:       state.Kind,
		statusCode: last.StatusCode,
		attempts:   state.Attempts(),
	}
}

func failureMessage(kind retry.Kind, last retry.Outcome) string {
	if last.Err == nil {
		return response.ErrorMessage(last.StatusCode, last.Body)
	}

	switch kind {
	case KindTimeout:
		return "Connection error: timeout"
	case KindConnectivity:
		return "Connection error: " + last.Err.Error()
	default:
		return "Unexpected error: " + last.Err.Error()
	}
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}

	if raw, ok := body.(json.RawMessage); ok {
		return raw, nil
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode request body")
	}

	return data, nil
}

// redact drops the query string, which may carry credentials such as
// SABnzbd's apikey parameter.
func redact(target string) string {
	path, _, _ := strings.Cut(target, "?")

	return path
}
