// Package ratelimit builds the optional client-side limiter placed in front
// of a service.
package ratelimit

import "golang.org/x/time/rate"

// NewRateLimiter creates a token-bucket limiter allowing requestsPerMinute,
// replenished continuously at requestsPerMinute/60 per second with a burst of
// requestsPerMinute. A non-positive value disables limiting and returns nil.
func NewRateLimiter(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		return nil
	}

	return rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), requestsPerMinute)
}
