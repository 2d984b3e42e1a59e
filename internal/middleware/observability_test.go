package middleware

import (
	"testing"
)

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "movie by id",
			input:    "/api/v3/movie/42",
			expected: "/api/v3/movie/:id",
		},
		{
			name:     "tmdb lookup",
			input:    "/api/v3/movie/lookup/tmdb/603",
			expected: "/api/v3/movie/lookup/tmdb/:id",
		},
		{
			name:     "path prefix kept",
			input:    "/radarr/api/v3/queue/1337/",
			expected: "/radarr/api/v3/queue/:id/",
		},
		{
			name:     "musicbrainz uuid",
			input:    "/api/v1/artist/cc197bad-dc9c-440d-a5b5-d52ba2e14234",
			expected: "/api/v1/artist/:id",
		},
		{
			name:     "torrent info hash",
			input:    "/transmission/torrent/0123456789abcdef0123456789abcdef01234567",
			expected: "/transmission/torrent/:id",
		},
		{
			name:     "version segment untouched",
			input:    "/api/v3/system/status",
			expected: "/api/v3/system/status",
		},
		{
			name:     "root",
			input:    "/",
			expected: "/",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			result := normalizePath(testCase.input)
			if result != testCase.expected {
				t.Errorf("normalizePath(%q) = %q, want %q", testCase.input, result, testCase.expected)
			}
		})
	}
}

// BenchmarkNormalizePath measures normalization with cache hits.
func BenchmarkNormalizePath(b *testing.B) {
	path := "/api/v3/movie/lookup/tmdb/603"

	b.ReportAllocs()
	for range b.N {
		_ = normalizePath(path)
	}
}
