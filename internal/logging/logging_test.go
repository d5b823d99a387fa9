package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWriterJSON(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	var buf bytes.Buffer
	logger := InitWriter(&buf, "order", Config{Level: "warn", Format: "json"})

	logger.Info().Msg("dropped")
	logger.Warn().Int64("book_id", 7).Msg("kept")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "order", line["service"])
	assert.Equal(t, "kept", line["message"])
	assert.EqualValues(t, 7, line["book_id"])
}

func TestInitWriterFallsBackToInfo(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	var buf bytes.Buffer
	logger := InitWriter(&buf, "user", Config{Level: "loud", Format: "console"})
	logger.Debug().Msg("hidden")
	assert.Zero(t, buf.Len())

	logger.Info().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}
