// Package response interprets raw HTTP outcomes: the success verdict, body
// parsing that tolerates non-JSON success bodies, and error message extraction.
package response

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/tidwall/gjson"
)

// IsSuccess reports whether statusCode is in the success range (2xx).
func IsSuccess(statusCode int) bool {
	return statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices
}

// ParseBody returns body as structured data, or nil when the body is empty or
// not valid JSON. Create-style endpoints may answer 201 with plain text.
func ParseBody(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || !gjson.ValidBytes(trimmed) {
		return nil
	}

	// Scalars such as "Created" or 42 carry no structure worth returning.
	if first := trimmed[0]; first != '{' && first != '[' {
		return nil
	}

	data := make(json.RawMessage, len(trimmed))
	copy(data, trimmed)

	return data
}

// errorKeys are tried in order on object-shaped error bodies.
var errorKeys = []string{"errorMessage", "message", "error", "detail", "title"}

// ErrorMessage extracts a human-readable message from a non-success body.
// JSON arrays yield the first entry's errorMessage; JSON objects yield the
// first populated key of errorKeys. Anything else is returned verbatim.
// An empty body yields "HTTP <code>: <status text>".
func ErrorMessage(statusCode int, body []byte) string {
	text := string(body)
	trimmed := strings.TrimSpace(text)

	if trimmed == "" {
		return statusLine(statusCode)
	}

	if !gjson.Valid(trimmed) {
		return text
	}

	parsed := gjson.Parse(trimmed)

	switch {
	case parsed.IsArray():
		for _, entry := range parsed.Array() {
			if msg := firstString(entry); msg != "" {
				return msg
			}
		}
	case parsed.IsObject():
		if msg := firstString(parsed); msg != "" {
			return msg
		}

		// {"errors": [...]} envelopes.
		if nested := parsed.Get("errors"); nested.IsArray() {
			for _, entry := range nested.Array() {
				if msg := firstString(entry); msg != "" {
					return msg
				}
			}
		}
	}

	return text
}

func firstString(entry gjson.Result) string {
	if entry.Type == gjson.String {
		return entry.String()
	}

	if !entry.IsObject() {
		return ""
	}

	for _, key := range errorKeys {
		if value := entry.Get(key); value.Type == gjson.String && value.String() != "" {
			return value.String()
		}
	}

	return ""
}

func statusLine(statusCode int) string {
	line := "HTTP " + strconv.Itoa(statusCode)
	if text := http.StatusText(statusCode); text != "" {
		line += ": " + text
	}

	return line
}

// DefaultVersionPath locates the version in *arr status documents.
const DefaultVersionPath = "version"

// maxPlainVersion bounds a plain-text version body.
const maxPlainVersion = 64

// Version extracts a service version from a successful status body. Object
// and array bodies are queried with the gjson path (DefaultVersionPath when
// empty). Any other body, such as SABnzbd's plain "4.1.0", is taken whole
// when it is a single short line. It returns "" when nothing matches.
func Version(body []byte, path string) string {
	if path == "" {
		path = DefaultVersionPath
	}

	if data := ParseBody(body); data != nil {
		return gjson.GetBytes(data, path).String()
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || len(trimmed) > maxPlainVersion || bytes.ContainsAny(trimmed, "\r\n<") {
		return ""
	}

	if gjson.ValidBytes(trimmed) {
		return gjson.ParseBytes(trimmed).String()
	}

	return string(trimmed)
}

// Decode unmarshals structured data into a new T.
func Decode[T any](data json.RawMessage) (*T, error) {
	if len(data) == 0 {
		return nil, errors.New("empty response from API")
	}

	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		return nil, errors.Wrap(err, "failed to decode response")
	}

	return out, nil
}
