package arr

import (
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-arr/internal/retry"
)

// ErrorKind classifies how a call ended.
type ErrorKind = retry.Kind

// Error kinds reported by Result.Kind.
const (
	KindNone         = retry.KindNone
	KindConnectivity = retry.KindConnectivity
	KindTimeout      = retry.KindTimeout
	KindServer       = retry.KindServer
	KindClient       = retry.KindClient
	KindUnexpected   = retry.KindUnexpected
)

// ErrRequestFailed marks every error returned by Result.Err.
var ErrRequestFailed = errors.New("request failed")

// Result is the outcome of Client.Execute. A successful result carries the
// decoded body, which may be absent for empty or non-JSON responses. A
// failed result carries a human-readable message and never data.
type Result struct {
	ok         bool
	data       json.RawMessage
	body       []byte
	message    string
	kind       ErrorKind
	statusCode int
	attempts   int
}

// Ok builds a successful result.
func Ok(data json.RawMessage) Result {
	return Result{ok: true, data: data, kind: KindNone}
}

// Failed builds a failed result with the given message.
func Failed(message string) Result {
	return Result{message: message, kind: KindUnexpected}
}

// OK reports whether the call succeeded.
func (r Result) OK() bool {
	return r.ok
}

// Data returns the decoded body of a successful call, or nil.
func (r Result) Data() json.RawMessage {
	return r.data
}

// Message returns the failure message, or "" on success.
func (r Result) Message() string {
	return r.message
}

// Unpack returns the (success, data, message) triple.
func (r Result) Unpack() (bool, json.RawMessage, string) {
	return r.ok, r.data, r.message
}

// Kind returns the classification of the final attempt.
func (r Result) Kind() ErrorKind {
	return r.kind
}

// StatusCode returns the HTTP status of the final attempt, or 0 when no
// response was received.
func (r Result) StatusCode() int {
	return r.statusCode
}

// Attempts returns how many attempts the call made.
func (r Result) Attempts() int {
	return r.attempts
}

// Err returns nil for a successful result. Otherwise it returns an error
// carrying the message, marked with ErrRequestFailed.
func (r Result) Err() error {
	if r.ok {
		return nil
	}

	err := errors.WithDetailf(errors.New(r.message), "kind=%s status=%d attempts=%d", r.kind, r.statusCode, r.attempts)

	return errors.Mark(err, ErrRequestFailed)
}
