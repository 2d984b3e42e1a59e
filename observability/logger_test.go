package observability_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexfrei/go-arr/observability"
)

func TestNoopLogger(t *testing.T) {
	t.Parallel()

	logger := observability.NoopLogger()

	// All methods should execute without panicking
	logger.Debug("test debug")
	logger.Info("test info")
	logger.Warn("test warn")
	logger.Error("test error")

	newLogger := logger.With(observability.Field{Key: "key", Value: "value"})
	require.NotNil(t, newLogger)

	newLogger.Info("test with logger")
}

func TestSlogLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})

	logger := observability.NewSlogLogger(slog.New(handler)).
		With(observability.Field{Key: "service", Value: "radarr"})

	logger.Warn("retrying request",
		observability.Field{Key: "attempt", Value: 1},
		observability.Field{Key: "endpoint", Value: "movie"},
	)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "retrying request", entry["msg"])
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "radarr", entry["service"])
	assert.Equal(t, "movie", entry["endpoint"])
	assert.InDelta(t, 1, entry["attempt"], 0)
}

func TestSlogLoggerNilFallsBackToDefault(t *testing.T) {
	t.Parallel()

	logger := observability.NewSlogLogger(nil)
	require.NotNil(t, logger)

	logger.Debug("discarded at default level")
}

// BenchmarkNoopLogger measures the overhead of noop logger calls.
func BenchmarkNoopLogger(b *testing.B) {
	logger := observability.NoopLogger()

	b.Run("Info", func(b *testing.B) {
		for range b.N {
			logger.Info("test message")
		}
	})

	b.Run("InfoWithFields", func(b *testing.B) {
		fields := []observability.Field{
			{Key: "key1", Value: "value1"},
			{Key: "key2", Value: 42},
		}

		for range b.N {
			logger.Info("test message", fields...)
		}
	})
}
