package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lorerag/internal/config"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(config.LoggingConfig{Level: "info", Format: "json"}, &buf)

	logger.Debug().Msg("hidden")
	logger.Info().Str("model", "hashing-v1-384").Int("chunks", 4).Msg("snapshot published")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "snapshot published", entry["message"])
	assert.Equal(t, "hashing-v1-384", entry["model"])
	assert.EqualValues(t, 4, entry["chunks"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	logger := New(config.LoggingConfig{Level: "debug", Format: "console"}, &buf)

	logger.Debug().Str("dir", "vectorstore").Msg("snapshot loaded")
	assert.Contains(t, buf.String(), "snapshot loaded")
	assert.Contains(t, buf.String(), "vectorstore")
}
