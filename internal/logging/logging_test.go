package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure_JSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Configure(Config{Level: "debug", Format: "json", Output: &buf}))

	l := WithComponent("session")
	l.Debug().Str("stage", "script").Msg("observed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "session", entry["component"])
	assert.Equal(t, "script", entry["stage"])
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "observed", entry["message"])
}

func TestConfigure_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Configure(Config{Level: "WARN", Format: "json", Output: &buf}))

	l := Base()
	l.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	l.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestConfigure_InvalidInput(t *testing.T) {
	assert.Error(t, Configure(Config{Level: "loud"}))
	assert.Error(t, Configure(Config{Format: "xml"}))
}

func TestConfigure_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "genreel.log")
	require.NoError(t, Configure(Config{Format: "json", File: path}))

	l := WithComponent("cli")
	l.Info().Msg("to file")
	require.NoError(t, Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")

	// restore a harmless default for other tests
	require.NoError(t, Configure(Config{Format: "json", Output: &bytes.Buffer{}}))
}
