package middleware

import (
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"

	"github.com/lexfrei/go-arr/observability"
)

// Budget names reported in logs and used by ByMethod.
const (
	BudgetDefault = "default"
	BudgetRead    = "read"
	BudgetWrite   = "write"
)

// RateLimiterSelector picks the limiter for a request and names its budget.
// A nil limiter lets the request through unthrottled.
type RateLimiterSelector func(*http.Request) (*rate.Limiter, string)

// ByMethod charges GET and HEAD requests to read and everything else
// (commands, queue edits, RPC calls) to write. A nil write limiter falls
// back to read.
func ByMethod(read, write *rate.Limiter) RateLimiterSelector {
	return func(req *http.Request) (*rate.Limiter, string) {
		if write == nil || req.Method == http.MethodGet || req.Method == http.MethodHead {
			return read, BudgetRead
		}

		return write, BudgetWrite
	}
}

// RateLimitConfig configures the rate limit middleware. Selector takes
// precedence over Limiter.
type RateLimitConfig struct {
	Limiter  *rate.Limiter
	Selector RateLimiterSelector
	Logger   observability.Logger
	Metrics  observability.MetricsRecorder
}

// RateLimit returns a middleware that holds each request until its budget
// has a token, or fails it when the request context ends first.
func RateLimit(cfg RateLimitConfig) func(http.RoundTripper) http.RoundTripper {
	selector := cfg.Selector
	if selector == nil {
		limiter := cfg.Limiter
		selector = func(*http.Request) (*rate.Limiter, string) { return limiter, BudgetDefault }
	}

	logger := cfg.Logger
	if logger == nil {
		logger = observability.NoopLogger()
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observability.NoopMetricsRecorder()
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return &rateLimitTransport{next: next, selector: selector, logger: logger, metrics: metrics}
	}
}

type rateLimitTransport struct {
	next     http.RoundTripper
	selector RateLimiterSelector
	logger   observability.Logger
	metrics  observability.MetricsRecorder
}

func (t *rateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	limiter, budget := t.selector(req)
	if limiter != nil {
		if err := t.wait(req, limiter, budget); err != nil {
			return nil, err
		}
	}

	//nolint:wrapcheck // Middleware passes through errors from next handler in chain
	return t.next.RoundTrip(req)
}

func (t *rateLimitTransport) CloseIdleConnections() {
	closeIdle(t.next)
}

func (t *rateLimitTransport) wait(req *http.Request, limiter *rate.Limiter, budget string) error {
	reservation := limiter.Reserve()
	if !reservation.OK() {
		return errors.Newf("rate limit reservation failed for %s budget", budget)
	}

	delay := reservation.Delay()
	if delay <= 0 {
		return nil
	}

	path := normalizePath(req.URL.Path)

	t.logger.Debug("rate limit delay",
		observability.Field{Key: "budget", Value: budget},
		observability.Field{Key: "delay", Value: delay},
		observability.Field{Key: "path", Value: path},
	)
	t.metrics.RecordRateLimit(path, delay)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-req.Context().Done():
		reservation.Cancel()

		return errors.Wrapf(req.Context().Err(), "context done during %s rate limit wait", budget)
	}
}
