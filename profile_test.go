package arr

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		profile Profile
		wantErr string
	}{
		{name: "minimal", profile: Profile{Host: "localhost"}},
		{name: "full", profile: Profile{Host: "10.0.0.5", Port: 8989, PathPrefix: "/sonarr", APIVersion: "api/v3", MaxRetries: Int(0)}},
		{name: "missing host", profile: Profile{}, wantErr: "host is required"},
		{name: "scheme in host", profile: Profile{Host: "http://localhost"}, wantErr: "must not include a scheme"},
		{name: "path in host", profile: Profile{Host: "localhost/radarr"}, wantErr: "must not include a path"},
		{name: "port too large", profile: Profile{Host: "localhost", Port: 70000}, wantErr: "out of range"},
		{name: "negative timeout", profile: Profile{Host: "localhost", Timeout: -time.Second}, wantErr: "timeout"},
		{name: "negative backoff", profile: Profile{Host: "localhost", BackoffBase: -time.Second}, wantErr: "backoff"},
		{name: "negative retries", profile: Profile{Host: "localhost", MaxRetries: Int(-1)}, wantErr: "max retries"},
		{name: "negative rate", profile: Profile{Host: "localhost", RateLimitPerMinute: -1}, wantErr: "rate limit"},
		{name: "password only", profile: Profile{Host: "localhost", Password: "secret"}, wantErr: "without username"},
		{name: "negative write rate", profile: Profile{Host: "localhost", WriteRateLimitPerMinute: -1}, wantErr: "write rate limit"},
		{name: "invalid status body", profile: Profile{Host: "localhost", StatusBody: []byte("{")}, wantErr: "status body"},
		{name: "bad status", profile: Profile{Host: "localhost", RetryableStatuses: []int{503, 42}}, wantErr: "not an HTTP status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.profile.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)

				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestProfileDefaults(t *testing.T) {
	t.Parallel()

	p := Profile{Host: "localhost"}.withDefaults()

	assert.Equal(t, DefaultCredentialHeader, p.CredentialHeader)
	assert.Equal(t, DefaultTimeout, p.Timeout)
	require.NotNil(t, p.MaxRetries)
	assert.Equal(t, DefaultMaxRetries, *p.MaxRetries)
	assert.Equal(t, DefaultBackoffBase, p.BackoffBase)
	assert.Equal(t, []int{500, 502, 503, 504}, p.RetryableStatuses)
	assert.Equal(t, DefaultStatusEndpoint, p.StatusEndpoint)
	assert.Equal(t, http.MethodGet, p.StatusMethod)
	assert.Equal(t, DefaultVersionPath, p.VersionPath)
}

func TestProfileDefaultsKeepExplicitZeroRetries(t *testing.T) {
	t.Parallel()

	p := Profile{Host: "localhost", MaxRetries: Int(0)}.withDefaults()

	assert.Equal(t, 0, p.retries())
}

func TestProfileDefaultsCopies(t *testing.T) {
	t.Parallel()

	statuses := []int{502}
	retries := 4
	original := Profile{Host: "localhost", RetryableStatuses: statuses, MaxRetries: &retries}

	client, err := New(original)
	require.NoError(t, err)

	statuses[0] = 418
	retries = 9

	got := client.Profile()
	assert.Equal(t, []int{502}, got.RetryableStatuses)
	assert.Equal(t, 4, *got.MaxRetries)

	got.RetryableStatuses[0] = 500
	assert.Equal(t, []int{502}, client.Profile().RetryableStatuses)
}

func TestNewRejectsInvalidProfile(t *testing.T) {
	t.Parallel()

	client, err := New(Profile{Host: "https://radarr.local"})
	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "invalid profile")
}
