// Package middleware provides the http.RoundTripper layers wrapped around
// every session transport.
package middleware

import (
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/lexfrei/go-arr/observability"
)

// Observability returns a middleware that logs and records metrics for every
// round trip, including each retry attempt.
func Observability(logger observability.Logger, metrics observability.MetricsRecorder) func(http.RoundTripper) http.RoundTripper {
	if logger == nil {
		logger = observability.NoopLogger()
	}
	if metrics == nil {
		metrics = observability.NoopMetricsRecorder()
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return &observabilityTransport{
			next:    next,
			logger:  logger,
			metrics: metrics,
		}
	}
}

type observabilityTransport struct {
	next    http.RoundTripper
	logger  observability.Logger
	metrics observability.MetricsRecorder
}

func (t *observabilityTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	// Path only: query strings may carry API keys (SABnzbd) or search terms.
	path := req.URL.Path

	t.logger.Debug("http request started",
		observability.Field{Key: "method", Value: req.Method},
		observability.Field{Key: "host", Value: req.URL.Host},
		observability.Field{Key: "path", Value: path},
	)

	resp, err := t.next.RoundTrip(req)

	duration := time.Since(start)

	if err != nil {
		t.logger.Error("http request failed",
			observability.Field{Key: "method", Value: req.Method},
			observability.Field{Key: "path", Value: path},
			observability.Field{Key: "duration", Value: duration},
			observability.Field{Key: "error", Value: err.Error()},
		)

		t.metrics.RecordError("http_request", "NetworkError")

		//nolint:wrapcheck // Observability middleware logs error but passes it through unchanged
		return nil, err
	}

	fields := []observability.Field{
		{Key: "method", Value: req.Method},
		{Key: "path", Value: path},
		{Key: "status", Value: resp.StatusCode},
		{Key: "duration", Value: duration},
	}

	if resp.StatusCode >= http.StatusBadRequest {
		t.logger.Warn("http request completed with error", fields...)
	} else {
		t.logger.Debug("http request completed", fields...)
	}

	t.metrics.RecordHTTPRequest(req.Method, normalizePath(path), resp.StatusCode, duration)

	return resp, nil
}

func (t *observabilityTransport) CloseIdleConnections() {
	closeIdle(t.next)
}

var (
	// idSegmentPattern matches a whole path segment that is a UUID or a
	// download hash (32 hex chars for NZB ids, 40 for torrent info hashes).
	idSegmentPattern = regexp.MustCompile(`^(?i:[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}|[0-9a-f]{32}|[0-9a-f]{40})$`)

	// normalizedPathCache caches normalized paths; clients hit a small set of endpoints.
	normalizedPathCache sync.Map
)

// normalizePath replaces dynamic path segments (numeric ids, UUIDs, download
// hashes) with :id to keep metric label cardinality bounded.
//
// Examples:
//   - /api/v3/movie/42 → /api/v3/movie/:id
//   - /api/v3/movie/lookup/tmdb/603 → /api/v3/movie/lookup/tmdb/:id
//   - /api/v1/artist/cc197bad-dc9c-440d-a5b5-d52ba2e14234 → /api/v1/artist/:id
func normalizePath(path string) string {
	if cached, ok := normalizedPathCache.Load(path); ok {
		//nolint:forcetypeassert // Cache only stores strings, type assertion is safe
		return cached.(string)
	}

	segments := strings.Split(path, "/")
	for i, segment := range segments {
		if isNumeric(segment) || idSegmentPattern.MatchString(segment) {
			segments[i] = ":id"
		}
	}

	normalized := strings.Join(segments, "/")
	normalizedPathCache.Store(path, normalized)

	return normalized
}

func isNumeric(segment string) bool {
	if segment == "" {
		return false
	}

	for _, r := range segment {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}
