package middleware

import (
	"io"
	"net/http"
	"sync"
)

// maxDrain bounds how much of a 409 body is read before it is discarded.
const maxDrain = 4 << 10

// SessionID returns a middleware for CSRF-style session negotiation as done by
// Transmission RPC. A 409 Conflict response carrying header hands out a new
// session id; the middleware stores it and replays the request once with the
// id set. Later requests send the stored id up front.
func SessionID(header string) func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		return &sessionIDTransport{next: next, header: http.CanonicalHeaderKey(header)}
	}
}

type sessionIDTransport struct {
	next   http.RoundTripper
	header string

	mu sync.RWMutex
	id string
}

func (t *sessionIDTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	sent := req.Header.Get(t.header)
	if sent == "" {
		if id := t.current(); id != "" {
			req = cloneRequest(req)
			req.Header.Set(t.header, id)
			sent = id
		}
	}

	resp, err := t.next.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusConflict {
		//nolint:wrapcheck // Middleware passes through errors from next handler in chain
		return resp, err
	}

	id := resp.Header.Get(t.header)
	if id == "" || id == sent {
		return resp, nil
	}

	t.store(id)

	replay, ok := rewind(req)
	if !ok {
		return resp, nil
	}

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))
	resp.Body.Close()

	replay.Header.Set(t.header, id)

	//nolint:wrapcheck // Middleware passes through errors from next handler in chain
	return t.next.RoundTrip(replay)
}

func (t *sessionIDTransport) CloseIdleConnections() {
	closeIdle(t.next)
}

func (t *sessionIDTransport) current() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.id
}

func (t *sessionIDTransport) store(id string) {
	t.mu.Lock()
	t.id = id
	t.mu.Unlock()
}

// rewind copies req with a fresh body. It fails when the body cannot be
// produced again.
func rewind(req *http.Request) (*http.Request, bool) {
	replay := cloneRequest(req)

	if req.Body == nil || req.Body == http.NoBody {
		return replay, true
	}

	if req.GetBody == nil {
		return nil, false
	}

	body, err := req.GetBody()
	if err != nil {
		return nil, false
	}

	replay.Body = body

	return replay, true
}
