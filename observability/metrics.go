package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRecorder is an interface for recording metrics.
// Implementations can use any metrics library (Prometheus, StatsD, etc.).
type MetricsRecorder interface {
	// RecordHTTPRequest records an HTTP round trip with method, path, status code, and duration.
	RecordHTTPRequest(method, path string, statusCode int, duration time.Duration)

	// RecordRetry records a retry attempt for an endpoint.
	RecordRetry(attempt int, endpoint string)

	// RecordRateLimit records a rate limit wait event.
	RecordRateLimit(endpoint string, wait time.Duration)

	// RecordError records an error occurrence.
	RecordError(operation, errorType string)
}

type noopMetricsRecorder struct{}

// NoopMetricsRecorder returns a metrics recorder that does nothing.
// This is the default recorder used when none is provided.
//
//nolint:ireturn // Factory function must return interface for dependency injection pattern
func NoopMetricsRecorder() MetricsRecorder {
	return &noopMetricsRecorder{}
}

func (m *noopMetricsRecorder) RecordHTTPRequest(string, string, int, time.Duration) {}
func (m *noopMetricsRecorder) RecordRetry(int, string)                              {}
func (m *noopMetricsRecorder) RecordRateLimit(string, time.Duration)                {}
func (m *noopMetricsRecorder) RecordError(string, string)                           {}

// PrometheusRecorder implements MetricsRecorder with Prometheus collectors.
// It is safe for concurrent use.
type PrometheusRecorder struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	retriesTotal    *prometheus.CounterVec
	rateLimitWait   *prometheus.HistogramVec
	errorsTotal     *prometheus.CounterVec
}

// NewPrometheusRecorder registers the arr client collectors on registerer.
// A nil registerer uses prometheus.DefaultRegisterer.
func NewPrometheusRecorder(registerer prometheus.Registerer) *PrometheusRecorder {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registerer)

	return &PrometheusRecorder{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arr_client_requests_total",
				Help: "Total number of HTTP round trips made",
			},
			[]string{"method", "path", "status_code"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "arr_client_request_duration_seconds",
				Help:    "Duration of HTTP round trips in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		retriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arr_client_retries_total",
				Help: "Total number of retry attempts",
			},
			[]string{"endpoint", "attempt"},
		),
		rateLimitWait: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "arr_client_rate_limit_wait_seconds",
				Help:    "Time spent waiting on the client-side rate limiter",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arr_client_errors_total",
				Help: "Total number of errors by operation and type",
			},
			[]string{"operation", "type"},
		),
	}
}

// RecordHTTPRequest implements MetricsRecorder.
func (p *PrometheusRecorder) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	p.requestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	p.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordRetry implements MetricsRecorder.
func (p *PrometheusRecorder) RecordRetry(attempt int, endpoint string) {
	p.retriesTotal.WithLabelValues(endpoint, strconv.Itoa(attempt)).Inc()
}

// RecordRateLimit implements MetricsRecorder.
func (p *PrometheusRecorder) RecordRateLimit(endpoint string, wait time.Duration) {
	p.rateLimitWait.WithLabelValues(endpoint).Observe(wait.Seconds())
}

// RecordError implements MetricsRecorder.
func (p *PrometheusRecorder) RecordError(operation, errorType string) {
	p.errorsTotal.WithLabelValues(operation, errorType).Inc()
}
