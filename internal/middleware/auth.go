package middleware

import (
	"maps"
	"net/http"
)

// BasicAuth returns a middleware that adds HTTP basic credentials to every
// request that does not already carry an Authorization header. RPC-style
// download clients authenticate this way instead of with an API key header.
func BasicAuth(username, password string) func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		return &basicAuthTransport{
			next:     next,
			username: username,
			password: password,
		}
	}
}

type basicAuthTransport struct {
	next     http.RoundTripper
	username string
	password string
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Authorization") != "" {
		//nolint:wrapcheck // Middleware passes through errors from next handler in chain
		return t.next.RoundTrip(req)
	}

	// Clone request to avoid modifying original
	req = cloneRequest(req)
	req.SetBasicAuth(t.username, t.password)

	//nolint:wrapcheck // Middleware passes through errors from next handler in chain
	return t.next.RoundTrip(req)
}

func (t *basicAuthTransport) CloseIdleConnections() {
	closeIdle(t.next)
}

// cloneRequest creates a shallow copy of the request with a cloned header map.
func cloneRequest(req *http.Request) *http.Request {
	r := new(http.Request)
	*r = *req
	r.Header = make(http.Header, len(req.Header))
	maps.Copy(r.Header, req.Header)
	return r
}

type closeIdler interface {
	CloseIdleConnections()
}

// closeIdle forwards CloseIdleConnections down the chain so that closing a
// session reaches the pooled transport under the middleware.
func closeIdle(next http.RoundTripper) {
	if c, ok := next.(closeIdler); ok {
		c.CloseIdleConnections()
	}
}
