package env_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OmGuptaIND/clipcam/config"
	"github.com/OmGuptaIND/clipcam/env"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := env.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 3000, cfg.HTTPPort)
	assert.Equal(t, config.HostNative, cfg.Host)
	assert.Equal(t, 10, cfg.CountdownSeconds)
	assert.Equal(t, time.Second, cfg.TickInterval)
	assert.Equal(t, "video/webm;codecs=h264", cfg.EncoderMimeType)
	assert.Equal(t, "video/mp4", cfg.OutputMimeType)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("HTTP_PORT=8080\nHOST=browser\nTICK_INTERVAL=500ms\n"), 0o644))

	t.Setenv("CLIPCAM_HTTP_PORT", "9090")
	t.Setenv("CLIPCAM_ENVIRONMENT", "production")

	cfg, err := env.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, config.HostBrowser, cfg.Host)
	assert.Equal(t, 500*time.Millisecond, cfg.TickInterval)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("CLIPCAM_HOST", "carrier-pigeon")

	_, err := env.Load("")
	assert.Error(t, err)
}
