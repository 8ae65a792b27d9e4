package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, "")

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 3, config.Engine.Concurrency)
	assert.Equal(t, 3, config.Engine.MaxAttempts)
	assert.Equal(t, 2*time.Second, config.Engine.BackoffBase)
	assert.Equal(t, 30*time.Second, config.Engine.BackoffCap)
	assert.Equal(t, 5*time.Minute, config.Engine.ItemTimeout)
	assert.Equal(t, 50, config.Engine.PlaylistLimit)
	assert.Equal(t, int64(500), config.Engine.MinFreeMB)
	assert.Equal(t, "yt-dlp", config.Backend.Binary)
	assert.True(t, config.History.Enabled)
}

func TestLoadConfig_FileOverrides(t *testing.T) {
	path := writeConfig(t, `
engine:
  concurrency: 5
  max_attempts: 2
  playlist_limit: 10
backend:
  binary: /usr/local/bin/yt-dlp
logging:
  level: debug
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 5, config.Engine.Concurrency)
	assert.Equal(t, 2, config.Engine.MaxAttempts)
	assert.Equal(t, 10, config.Engine.PlaylistLimit)
	assert.Equal(t, "/usr/local/bin/yt-dlp", config.Backend.Binary)
	assert.Equal(t, "debug", config.Logging.Level)

	// Unset keys keep their defaults.
	assert.Equal(t, 2*time.Second, config.Engine.BackoffBase)
}

func TestLoadConfig_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"concurrency too high", "engine:\n  concurrency: 11\n"},
		{"concurrency zero", "engine:\n  concurrency: 0\n"},
		{"bad port", "server:\n  port: 0\n"},
		{"zero attempts", "engine:\n  max_attempts: 0\n"},
		{"empty binary", "backend:\n  binary: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_ExpandsHome(t *testing.T) {
	path := writeConfig(t, "engine:\n  download_dir: $HOME/media\n")

	config, err := LoadConfig(path)
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "media"), config.Engine.DownloadDir)
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, "x"), expandPath("~/x"))
	assert.Equal(t, "/plain/path", expandPath("/plain/path"))
}
