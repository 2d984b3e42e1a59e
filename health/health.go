// Package health runs liveness checks across several services at once and
// tracks which of them changed state between two rounds.
package health

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lexfrei/go-arr"
	"github.com/lexfrei/go-arr/observability"
)

const (
	// DefaultTimeout bounds a single check.
	DefaultTimeout = 10 * time.Second

	// DefaultConcurrency is the number of checks run at once.
	DefaultConcurrency = 4
)

// Checker reports the liveness of one service. *arr.Client implements it.
type Checker interface {
	CheckStatus(ctx context.Context) arr.Status
}

// Service is one enabled service to check.
type Service struct {
	Name    string
	Checker Checker
}

// Report is the result of checking one service.
type Report struct {
	Name      string
	Healthy   bool
	Version   string
	Message   string
	CheckedAt time.Time
}

// String renders the report as "<name>: <message>".
func (r Report) String() string {
	return r.Name + ": " + r.Message
}

// Config tunes CheckAll. Zero values select the defaults.
type Config struct {
	Timeout     time.Duration
	Concurrency int
	Logger      observability.Logger
}

// CheckAll checks every service concurrently and returns one report per
// service, in input order. A service without a checker is reported unhealthy.
func CheckAll(ctx context.Context, services []Service, cfg Config) []Report {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NoopLogger()
	}

	reports := make([]Report, len(services))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)

	for i, svc := range services {
		g.Go(func() error {
			reports[i] = check(gctx, svc, cfg.Timeout)

			if !reports[i].Healthy {
				cfg.Logger.Warn("service unhealthy",
					observability.Field{Key: "service", Value: svc.Name},
					observability.Field{Key: "message", Value: reports[i].Message},
				)
			}

			return nil
		})
	}

	_ = g.Wait()

	return reports
}

func check(ctx context.Context, svc Service, timeout time.Duration) Report {
	if svc.Checker == nil {
		return Report{Name: svc.Name, Message: "Error: not configured", CheckedAt: time.Now()}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	status := svc.Checker.CheckStatus(ctx)

	name := svc.Name
	if name == "" {
		name = status.Name
	}

	return Report{
		Name:      name,
		Healthy:   status.Healthy,
		Version:   status.Version,
		Message:   status.Message,
		CheckedAt: time.Now(),
	}
}

// AllHealthy reports whether every report is healthy. It is true for no reports.
func AllHealthy(reports []Report) bool {
	for _, r := range reports {
		if !r.Healthy {
			return false
		}
	}

	return true
}

// Changes lists services whose health changed between two rounds.
type Changes struct {
	// Failed became unhealthy, or appeared unhealthy.
	Failed []Report

	// Recovered were unhealthy in the previous round and are healthy now.
	Recovered []Report
}

// Empty reports whether nothing changed.
func (c Changes) Empty() bool {
	return len(c.Failed) == 0 && len(c.Recovered) == 0
}

// Diff compares the current round against the previous one by service name.
// An unhealthy service that stays unhealthy is not reported again.
func Diff(prev, cur []Report) Changes {
	before := make(map[string]bool, len(prev))
	for _, r := range prev {
		before[r.Name] = r.Healthy
	}

	var changes Changes

	for _, r := range cur {
		wasHealthy, seen := before[r.Name]

		switch {
		case !r.Healthy && (!seen || wasHealthy):
			changes.Failed = append(changes.Failed, r)
		case r.Healthy && seen && !wasHealthy:
			changes.Recovered = append(changes.Recovered, r)
		}
	}

	return changes
}
