// Package retry classifies request outcomes and drives the attempt loop
// with exponential backoff.
package retry

import (
	"context"
	"crypto/tls"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
	"os"
	"slices"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-arr/internal/response"
)

// Kind classifies the outcome of a single attempt.
type Kind int

const (
	// KindNone means the attempt succeeded.
	KindNone Kind = iota
	// KindConnectivity covers DNS failures, refused and reset connections.
	KindConnectivity
	// KindTimeout covers deadline-exceeded conditions.
	KindTimeout
	// KindServer is a status code from the configured retryable set.
	KindServer
	// KindClient is any other status outside the success range.
	KindClient
	// KindUnexpected is a fault that is neither transport nor status related.
	KindUnexpected
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "Success"
	case KindConnectivity:
		return "ConnectivityError"
	case KindTimeout:
		return "TimeoutError"
	case KindServer:
		return "ServerError"
	case KindClient:
		return "ClientError"
	case KindUnexpected:
		return "UnexpectedError"
	default:
		return "Unknown"
	}
}

// Retryable reports whether another attempt may follow an outcome of this kind.
func (k Kind) Retryable() bool {
	return k == KindConnectivity || k == KindTimeout || k == KindServer
}

// Outcome is the result of one transport round trip. Err is set when the
// round trip did not produce a response.
type Outcome struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Err        error
}

// Policy holds the retry budget of one logical call.
type Policy struct {
	// MaxRetries is the number of attempts allowed after the first one.
	MaxRetries int

	// BackoffBase is the wait before the first retry; each later wait doubles.
	BackoffBase time.Duration

	// RetryableStatuses lists status codes treated as transient server errors.
	RetryableStatuses []int
}

// DefaultRetryableStatuses returns the server-error codes retried by default.
func DefaultRetryableStatuses() []int {
	return []int{
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
	}
}

// MaxBackoff is the longest wait Backoff returns.
const MaxBackoff = time.Duration(math.MaxInt64)

// Backoff returns the wait before retry number attempt+1: BackoffBase * 2^attempt,
// saturating at MaxBackoff.
func (p Policy) Backoff(attempt int) time.Duration {
	if p.BackoffBase <= 0 {
		return 0
	}

	attempt = max(attempt, 0)
	if attempt >= 63 || p.BackoffBase > MaxBackoff>>attempt {
		return MaxBackoff
	}

	return p.BackoffBase << attempt
}

// ShouldRetry returns true if the HTTP status code is in the retryable set.
func (p Policy) ShouldRetry(statusCode int) bool {
	return slices.Contains(p.RetryableStatuses, statusCode)
}

// Classify maps an attempt outcome to its Kind.
func (p Policy) Classify(outcome Outcome) Kind {
	if outcome.Err != nil {
		return ClassifyError(outcome.Err)
	}

	return p.ClassifyStatus(outcome.StatusCode)
}

// ClassifyStatus maps a response status code to its Kind.
func (p Policy) ClassifyStatus(statusCode int) Kind {
	switch {
	case response.IsSuccess(statusCode):
		return KindNone
	case p.ShouldRetry(statusCode):
		return KindServer
	default:
		return KindClient
	}
}

var errUnexpected = errors.New("unexpected failure")

// MarkUnexpected tags err so that ClassifyError treats it as KindUnexpected
// even when it wraps a transport error type.
func MarkUnexpected(err error) error {
	if err == nil {
		return nil
	}

	return errors.Mark(err, errUnexpected)
}

// ClassifyError maps a transport-level error to its Kind. The *url.Error
// added by http.Client is unwrapped first, so only network failures count as
// connectivity; faults raised by middleware are unexpected.
func ClassifyError(err error) Kind {
	if err == nil {
		return KindNone
	}

	if errors.Is(err, errUnexpected) {
		return KindUnexpected
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return KindTimeout
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return KindTimeout
		}

		err = urlErr.Err
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	if isConnectivity(err) {
		return KindConnectivity
	}

	return KindUnexpected
}

func isConnectivity(err error) bool {
	var (
		opErr   *net.OpError
		dnsErr  *net.DNSError
		certErr *tls.CertificateVerificationError
		errno   syscall.Errno
	)

	switch {
	case errors.As(err, &opErr),
		errors.As(err, &dnsErr),
		errors.As(err, &certErr),
		errors.As(err, &errno):
		return true
	}

	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, context.Canceled)
}
