package arr

import (
	"net"
	"strconv"
	"strings"
)

// BuildURL renders the request target for endpoint:
//
//	scheme://host[:port]/<PathPrefix>/<APIVersion>/<endpoint>[?query]
//
// Empty parts are skipped and exactly one slash separates the rest, no
// matter how the prefix, version or endpoint are slashed. A query string on
// endpoint is kept verbatim.
func BuildURL(p Profile, endpoint string) string {
	path, query, _ := strings.Cut(endpoint, "?")

	var b strings.Builder

	if p.UseTLS {
		b.WriteString("https://")
	} else {
		b.WriteString("http://")
	}

	b.WriteString(hostPort(p.Host, p.Port))

	wrote := false

	for _, part := range []string{p.PathPrefix, p.APIVersion, path} {
		for segment := range strings.SplitSeq(part, "/") {
			if segment == "" {
				continue
			}

			b.WriteByte('/')
			b.WriteString(segment)

			wrote = true
		}
	}

	if !wrote {
		b.WriteByte('/')
	}

	if query != "" {
		b.WriteByte('?')
		b.WriteString(query)
	}

	return b.String()
}

func hostPort(host string, port int) string {
	bare := strings.Trim(host, "[]")

	if port == 0 {
		if strings.Contains(bare, ":") {
			return "[" + bare + "]"
		}

		return bare
	}

	return net.JoinHostPort(bare, strconv.Itoa(port))
}
