package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("trace")
	require.NoError(t, err)
	assert.Less(t, lvl, slog.LevelDebug)

	lvl, err = ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestInitWritesToConsoleAndFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "out.log")
	closer, err := Init(Config{
		LogFilePath:  path,
		ConsoleLevel: slog.LevelWarn,
		FileLevel:    slog.LevelDebug,
		Console:      &console,
	})
	require.NoError(t, err)

	logger := slog.Default().With("component", "test")
	logger.Debug("debug line", "store", "s1")
	logger.Warn("warn line")
	require.NoError(t, closer.Close())

	assert.NotContains(t, console.String(), "debug line")
	assert.Contains(t, console.String(), "warn line")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "debug line", first["msg"])
	assert.Equal(t, "test", first["component"])
	assert.Equal(t, "s1", first["store"])
}
