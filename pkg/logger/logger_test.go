package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNew_WritesToConfiguredOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Output: &buf})

	logger.Info().Str("symbol", "AAPL").Msg("test message")

	assert.Contains(t, buf.String(), "test message")
	assert.Contains(t, buf.String(), `"symbol":"AAPL"`)
}

func TestNew_AllLogLevels(t *testing.T) {
	testCases := []struct {
		level         string
		expectedLevel zerolog.Level
		name          string
	}{
		{"debug", zerolog.DebugLevel, "debug"},
		{"info", zerolog.InfoLevel, "info"},
		{"warn", zerolog.WarnLevel, "warn"},
		{"WARNING", zerolog.WarnLevel, "warning alias"},
		{"error", zerolog.ErrorLevel, "error"},
		{"unknown", zerolog.InfoLevel, "unknown defaults to info"},
		{"", zerolog.InfoLevel, "empty defaults to info"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			New(Config{Level: tc.level})
			assert.Equal(t, tc.expectedLevel, zerolog.GlobalLevel())
		})
	}
}

func TestNew_TimestampFormat(t *testing.T) {
	New(Config{Level: "info"})
	assert.Equal(t, "2006-01-02T15:04:05Z07:00", zerolog.TimeFieldFormat)
}

func TestNew_PrettyOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Pretty: true, Output: &buf})

	logger.Info().Msg("pretty message")

	output := buf.String()
	assert.Contains(t, output, "pretty message")
	assert.NotContains(t, output, `"message"`)
}

func TestNew_ErrorLevelFiltersLower(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "error", Output: &buf})

	logger.Info().Msg("should not appear")
	assert.NotContains(t, buf.String(), "should not appear")

	logger.Error().Msg("should appear")
	assert.Contains(t, buf.String(), "should appear")

	// Restore a permissive level for the other tests in the package
	New(Config{Level: "debug"})
}
