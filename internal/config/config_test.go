package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("first run writes defaults", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "https://app.stridefit.com", cfg.AppURL)
		assert.Equal(t, "https://api.stridefit.com", cfg.AuthURL)
		assert.NotEmpty(t, cfg.ControlKey)

		configDir, err := os.UserConfigDir()
		require.NoError(t, err)
		_, err = os.Stat(filepath.Join(configDir, "stride", "config.json"))
		assert.NoError(t, err)
	})

	t.Run("existing file wins, empty fields backfilled", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", dir)

		appDir := filepath.Join(dir, "stride")
		require.NoError(t, os.MkdirAll(appDir, 0700))
		raw, _ := json.Marshal(Config{
			AppURL:     "https://staging.stridefit.com",
			MaxRetries: 5,
		})
		require.NoError(t, os.WriteFile(filepath.Join(appDir, "config.json"), raw, 0600))

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "https://staging.stridefit.com", cfg.AppURL)
		assert.Equal(t, "https://api.stridefit.com", cfg.AuthURL)
		assert.Equal(t, 5, cfg.MaxRetries)
	})

	t.Run("env overrides", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		t.Setenv("STRIDE_APP_URL", "http://127.0.0.1:3000")
		t.Setenv("STRIDE_THEME", "light")
		t.Setenv("STRIDE_MAX_RETRIES", "7")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "http://127.0.0.1:3000", cfg.AppURL)
		assert.Equal(t, "light", cfg.Theme)
		assert.Equal(t, 7, cfg.MaxRetries)
	})

	t.Run("control key is never written to the file", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())

		cfg, err := Load()
		require.NoError(t, err)
		require.NotEmpty(t, cfg.ControlKey)

		configDir, err := os.UserConfigDir()
		require.NoError(t, err)
		data, err := os.ReadFile(filepath.Join(configDir, "stride", "config.json"))
		require.NoError(t, err)
		assert.NotContains(t, string(data), cfg.ControlKey)
	})
}
