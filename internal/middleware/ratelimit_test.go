package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/lexfrei/go-arr/internal/middleware"
)

func newOKServer(t *testing.T) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	return server
}

func roundTripTook(t *testing.T, transport http.RoundTripper, method, target string) time.Duration {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), method, target, http.NoBody)
	require.NoError(t, err)

	start := time.Now()
	resp, err := transport.RoundTrip(req)
	took := time.Since(start)

	require.NoError(t, err)
	resp.Body.Close()

	return took
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	t.Run("single limiter", func(t *testing.T) {
		t.Parallel()

		server := newOKServer(t)
		transport := middleware.RateLimit(middleware.RateLimitConfig{
			Limiter: rate.NewLimiter(2, 2),
		})(http.DefaultTransport)

		for i := range 2 {
			took := roundTripTook(t, transport, http.MethodGet, server.URL)
			assert.Less(t, took, 100*time.Millisecond, "request %d should not wait", i+1)
		}

		took := roundTripTook(t, transport, http.MethodGet, server.URL)
		assert.GreaterOrEqual(t, took, 100*time.Millisecond, "third request should wait for a token")
	})

	t.Run("nil limiter", func(t *testing.T) {
		t.Parallel()

		server := newOKServer(t)
		transport := middleware.RateLimit(middleware.RateLimitConfig{})(http.DefaultTransport)

		for range 5 {
			assert.Less(t, roundTripTook(t, transport, http.MethodGet, server.URL), 50*time.Millisecond)
		}
	})

	t.Run("context done while waiting", func(t *testing.T) {
		t.Parallel()

		server := newOKServer(t)

		limiter := rate.NewLimiter(0.1, 1)
		limiter.Allow()

		transport := middleware.RateLimit(middleware.RateLimitConfig{Limiter: limiter})(http.DefaultTransport)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, http.NoBody)
		require.NoError(t, err)

		resp, err := transport.RoundTrip(req)
		if resp != nil {
			resp.Body.Close()
		}

		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestRateLimitByMethod(t *testing.T) {
	t.Parallel()

	server := newOKServer(t)

	// Status polls are cheap; commands trigger searches on indexers.
	read := rate.NewLimiter(100, 100)
	write := rate.NewLimiter(1, 1)

	transport := middleware.RateLimit(middleware.RateLimitConfig{
		Selector: middleware.ByMethod(read, write),
	})(http.DefaultTransport)

	assert.Less(t, roundTripTook(t, transport, http.MethodPost, server.URL+"/api/v3/command"), 50*time.Millisecond)

	for range 3 {
		assert.Less(t, roundTripTook(t, transport, http.MethodGet, server.URL+"/api/v3/system/status"), 50*time.Millisecond,
			"reads should not be held by the write budget")
	}

	assert.GreaterOrEqual(t, roundTripTook(t, transport, http.MethodPut, server.URL+"/api/v3/queue/1"), 500*time.Millisecond,
		"second write should wait for a token")
}

func TestByMethod(t *testing.T) {
	t.Parallel()

	read := rate.NewLimiter(1, 1)
	write := rate.NewLimiter(1, 1)

	tests := []struct {
		method      string
		write       *rate.Limiter
		wantLimiter *rate.Limiter
		wantBudget  string
	}{
		{method: http.MethodGet, write: write, wantLimiter: read, wantBudget: middleware.BudgetRead},
		{method: http.MethodHead, write: write, wantLimiter: read, wantBudget: middleware.BudgetRead},
		{method: http.MethodPost, write: write, wantLimiter: write, wantBudget: middleware.BudgetWrite},
		{method: http.MethodDelete, write: write, wantLimiter: write, wantBudget: middleware.BudgetWrite},
		{method: http.MethodPost, write: nil, wantLimiter: read, wantBudget: middleware.BudgetRead},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, "http://localhost/api/v3/command", http.NoBody)

		limiter, budget := middleware.ByMethod(read, tt.write)(req)
		assert.Same(t, tt.wantLimiter, limiter, tt.method)
		assert.Equal(t, tt.wantBudget, budget, tt.method)
	}
}
