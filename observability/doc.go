// Package observability provides interfaces for logging and metrics collection
// in the go-arr client core.
//
// # Logger Interface
//
// The Logger interface supports structured logging with key-value pairs.
// NewSlogLogger adapts the standard library's structured logger:
//
//	client, err := arr.New(profile,
//		arr.WithLogger(observability.NewSlogLogger(slog.Default())),
//	)
//
// # MetricsRecorder Interface
//
// The MetricsRecorder interface tracks:
//   - HTTP round trip count, status codes, and duration
//   - Retry attempts for failed requests
//   - Rate limiting events and wait times
//   - Error occurrences by type
//
// NewPrometheusRecorder registers Prometheus collectors for all of the above:
//
//	client, err := arr.New(profile,
//		arr.WithMetrics(observability.NewPrometheusRecorder(prometheus.DefaultRegisterer)),
//	)
//
// # Default Behavior
//
// If no logger or metrics recorder is provided, the client uses no-op
// implementations that discard all events.
package observability
