package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	log, err := New(&Config{Level: "info", Format: "json", Output: buf})
	require.NoError(t, err)

	log.Info().Str("table", "users").Int("rows", 10).Msg("table generated")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "table generated", entry["message"])
	assert.Equal(t, "users", entry["table"])
	assert.EqualValues(t, 10, entry["rows"])
	assert.NotEmpty(t, entry["time"])
}

func TestNewRespectsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	log, err := New(&Config{Level: "warn", Format: "json", Output: buf})
	require.NoError(t, err)

	log.Info().Msg("hidden")
	assert.Zero(t, buf.Len())
	log.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewConsoleOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	log, err := New(&Config{Level: "debug", Format: "console", Output: buf})
	require.NoError(t, err)

	log.Debug().Msg("order resolved")
	assert.Contains(t, buf.String(), "order resolved")
}

func TestNewRejectsUnknownSettings(t *testing.T) {
	_, err := New(&Config{Level: "loud"})
	assert.Error(t, err)
	_, err = New(&Config{Format: "xml"})
	assert.Error(t, err)

	_, err = New(nil)
	assert.NoError(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"":        zerolog.InfoLevel,
		"DEBUG":   zerolog.DebugLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"off":     zerolog.Disabled,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}
