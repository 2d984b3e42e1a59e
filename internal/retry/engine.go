package retry

import (
	"context"
	"time"

	"github.com/lexfrei/go-arr/observability"
)

// Attempt performs round trip number attempt (0-based) of a logical call.
type Attempt func(ctx context.Context, attempt int) Outcome

// Sleeper waits for d or until ctx is done, whichever comes first.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the default Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		//nolint:wrapcheck // Context error is inspected by the caller
		return ctx.Err()
	}
}

// State describes a logical call after the attempt loop has ended.
type State struct {
	// Attempt is the index of the last attempt made.
	Attempt int
	// Last is the outcome of the last attempt.
	Last Outcome
	// Kind classifies Last.
	Kind Kind
	// Remaining is the retry budget left when the loop ended.
	Remaining int
	// Waits lists the backoff waits that preceded attempts 2..n.
	Waits []time.Duration
}

// Attempts returns the number of round trips performed.
func (s State) Attempts() int {
	return s.Attempt + 1
}

// Engine runs attempt loops. An Engine is stateless between calls and safe
// for concurrent use.
type Engine struct {
	sleep   Sleeper
	logger  observability.Logger
	metrics observability.MetricsRecorder
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithSleeper replaces the wait implementation.
func WithSleeper(sleep Sleeper) EngineOption {
	return func(e *Engine) {
		if sleep != nil {
			e.sleep = sleep
		}
	}
}

// WithLogger sets the logger used for retry events.
func WithLogger(logger observability.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics sets the recorder used for retry events.
func WithMetrics(metrics observability.MetricsRecorder) EngineOption {
	return func(e *Engine) {
		if metrics != nil {
			e.metrics = metrics
		}
	}
}

// NewEngine creates an Engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		sleep:   Sleep,
		logger:  observability.NoopLogger(),
		metrics: observability.NoopMetricsRecorder(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Run executes up to policy.MaxRetries+1 attempts. It stops at the first
// success or terminal outcome, when the budget is spent, or when ctx is done.
// Between retryable attempts it waits policy.Backoff(i).
func (e *Engine) Run(ctx context.Context, endpoint string, policy Policy, attempt Attempt) State {
	state := State{Remaining: max(policy.MaxRetries, 0)}

	for i := 0; ; i++ {
		state.Attempt = i
		state.Last = attempt(ctx, i)
		state.Kind = policy.Classify(state.Last)

		if !state.Kind.Retryable() {
			return state
		}

		if ctx.Err() != nil {
			e.logger.Debug("caller context done, not retrying",
				observability.Field{Key: "endpoint", Value: endpoint},
				observability.Field{Key: "attempt", Value: i + 1},
			)

			return state
		}

		if state.Remaining == 0 {
			if policy.MaxRetries > 0 {
				e.logger.Warn("retries exhausted",
					observability.Field{Key: "endpoint", Value: endpoint},
					observability.Field{Key: "attempts", Value: i + 1},
					observability.Field{Key: "kind", Value: state.Kind.String()},
				)
			}

			return state
		}

		wait := policy.Backoff(i)

		e.logger.Warn("retrying request",
			observability.Field{Key: "attempt", Value: i + 1},
			observability.Field{Key: "max_retries", Value: policy.MaxRetries},
			observability.Field{Key: "endpoint", Value: endpoint},
			observability.Field{Key: "kind", Value: state.Kind.String()},
			observability.Field{Key: "status", Value: state.Last.StatusCode},
			observability.Field{Key: "wait", Value: wait},
		)

		e.metrics.RecordRetry(i+1, endpoint)

		if err := e.sleep(ctx, wait); err != nil {
			e.logger.Debug("context canceled during retry wait",
				observability.Field{Key: "endpoint", Value: endpoint},
				observability.Field{Key: "error", Value: err.Error()},
			)

			return state
		}

		state.Waits = append(state.Waits, wait)
		state.Remaining--
	}
}
