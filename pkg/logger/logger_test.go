package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInit_InvalidLevel(t *testing.T) {
	assert.Error(t, Init("loud", "json", "stdout"))
}

func TestInit_FileSink(t *testing.T) {
	t.Cleanup(func() { Log = nil })

	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, Init("info", "json", path))

	Info("pipeline started", zap.String("collection", "docs"))
	require.NoError(t, GetLogger().Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"pipeline started"`)
	assert.Contains(t, string(data), `"collection":"docs"`)
}

func TestInit_LevelFilters(t *testing.T) {
	t.Cleanup(func() { Log = nil })

	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, Init("warn", "json", path))

	Info("below threshold")
	Warn("at threshold")
	require.NoError(t, GetLogger().Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "below threshold")
	assert.Contains(t, string(data), "at threshold")
}

func TestGetLogger_NopBeforeInit(t *testing.T) {
	Log = nil

	require.NotNil(t, GetLogger())
	Warn("dropped silently")
}
