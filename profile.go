package arr

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-arr/internal/retry"
)

const (
	// DefaultTimeout is the whole-request timeout of a session.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the number of retries after the first attempt.
	DefaultMaxRetries = 2

	// DefaultBackoffBase is the wait before the first retry; later waits double.
	DefaultBackoffBase = 1 * time.Second

	// DefaultCredentialHeader carries the API key of *arr services.
	DefaultCredentialHeader = "X-Api-Key"

	// DefaultStatusEndpoint is queried by CheckStatus.
	DefaultStatusEndpoint = "system/status"

	// DefaultVersionPath is the gjson path of the version in a status document.
	DefaultVersionPath = "version"
)

// DefaultRetryableStatuses returns the status codes retried by default:
// 500, 502, 503 and 504.
func DefaultRetryableStatuses() []int {
	return retry.DefaultRetryableStatuses()
}

// Profile describes where a service lives and how to talk to it. It is
// resolved by the caller's configuration layer; the client copies it at
// construction and never mutates it.
type Profile struct {
	// Name identifies the service in logs and health reports (e.g. "radarr").
	Name string

	// Host is a bare host name or IP address, without scheme or path.
	Host string

	// Port is the TCP port. Zero omits the port from URLs.
	Port int

	// PathPrefix is the reverse-proxy base path (e.g. "/radarr"). Leading and
	// trailing slashes are ignored.
	PathPrefix string

	// UseTLS selects https.
	UseTLS bool

	// InsecureSkipVerify disables certificate verification for self-signed setups.
	InsecureSkipVerify bool

	// Credential is the API key sent in CredentialHeader.
	Credential string

	// CredentialHeader defaults to X-Api-Key.
	CredentialHeader string

	// Username and Password enable HTTP basic auth (RPC download clients).
	Username string
	Password string

	// APIVersion is the version segment placed between PathPrefix and the
	// endpoint, e.g. "api/v3" for Radarr and Sonarr or "api/v1" for Lidarr.
	APIVersion string

	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration

	// MaxRetries defaults to DefaultMaxRetries when nil. Int(0) disables retries.
	MaxRetries *int

	// BackoffBase defaults to DefaultBackoffBase.
	BackoffBase time.Duration

	// RetryableStatuses defaults to DefaultRetryableStatuses.
	RetryableStatuses []int

	// StatusEndpoint defaults to DefaultStatusEndpoint.
	StatusEndpoint string

	// VersionPath is the gjson path of the version in the status document,
	// e.g. "arguments.version" for Transmission. Defaults to DefaultVersionPath.
	VersionPath string

	// SessionIDHeader enables session-id negotiation: a 409 response carrying
	// this header is replayed once with the header set, and the id is kept
	// for later requests. Transmission uses "X-Transmission-Session-Id".
	SessionIDHeader string

	// StatusMethod defaults to GET. RPC services such as Transmission need POST.
	StatusMethod string

	// StatusBody is sent with the status request when set, e.g.
	// {"method":"session-get"} for Transmission.
	StatusBody json.RawMessage

	// RateLimitPerMinute caps outgoing requests; zero means unlimited.
	RateLimitPerMinute int

	// WriteRateLimitPerMinute gives requests other than GET and HEAD their own
	// budget; zero charges them to RateLimitPerMinute.
	WriteRateLimitPerMinute int
}

// Int returns a pointer to v, for optional integer fields such as
// Profile.MaxRetries and CallOptions.MaxRetries.
func Int(v int) *int {
	return &v
}

// Validate reports the first configuration problem of the profile.
func (p Profile) Validate() error {
	switch {
	case p.Host == "":
		return errors.New("host is required")
	case strings.Contains(p.Host, "://"):
		return errors.Newf("host %q must not include a scheme; use UseTLS", p.Host)
	case strings.ContainsAny(p.Host, "/?#"):
		return errors.Newf("host %q must not include a path; use PathPrefix", p.Host)
	case p.Port < 0 || p.Port > 65535:
		return errors.Newf("port %d out of range", p.Port)
	case p.Timeout < 0:
		return errors.Newf("timeout %s must not be negative", p.Timeout)
	case p.BackoffBase < 0:
		return errors.Newf("backoff base %s must not be negative", p.BackoffBase)
	case p.MaxRetries != nil && *p.MaxRetries < 0:
		return errors.Newf("max retries %d must not be negative", *p.MaxRetries)
	case p.RateLimitPerMinute < 0:
		return errors.Newf("rate limit %d must not be negative", p.RateLimitPerMinute)
	case p.WriteRateLimitPerMinute < 0:
		return errors.Newf("write rate limit %d must not be negative", p.WriteRateLimitPerMinute)
	case len(p.StatusBody) > 0 && !json.Valid(p.StatusBody):
		return errors.New("status body is not valid JSON")
	case p.Username == "" && p.Password != "":
		return errors.New("password is set without username")
	}

	for _, code := range p.RetryableStatuses {
		if code < 100 || code > 599 {
			return errors.Newf("retryable status %d is not an HTTP status code", code)
		}
	}

	return nil
}

// withDefaults returns a deep copy of p with every unset field defaulted.
func (p Profile) withDefaults() Profile {
	out := p.clone()

	if out.CredentialHeader == "" {
		out.CredentialHeader = DefaultCredentialHeader
	}
	if out.Timeout == 0 {
		out.Timeout = DefaultTimeout
	}
	if out.MaxRetries == nil {
		out.MaxRetries = Int(DefaultMaxRetries)
	}
	if out.BackoffBase == 0 {
		out.BackoffBase = DefaultBackoffBase
	}
	if len(out.RetryableStatuses) == 0 {
		out.RetryableStatuses = DefaultRetryableStatuses()
	}
	if out.StatusEndpoint == "" {
		out.StatusEndpoint = DefaultStatusEndpoint
	}
	if out.StatusMethod == "" {
		out.StatusMethod = http.MethodGet
	}
	if out.VersionPath == "" {
		out.VersionPath = DefaultVersionPath
	}

	return out
}

func (p Profile) clone() Profile {
	out := p
	out.RetryableStatuses = slices.Clone(p.RetryableStatuses)
	out.StatusBody = slices.Clone(p.StatusBody)

	if p.MaxRetries != nil {
		out.MaxRetries = Int(*p.MaxRetries)
	}

	return out
}

// retries returns the defaulted retry budget.
func (p Profile) retries() int {
	if p.MaxRetries == nil {
		return DefaultMaxRetries
	}

	return *p.MaxRetries
}
