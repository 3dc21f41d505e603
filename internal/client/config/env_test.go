package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnv(t *testing.T) {
	t.Run("variables override", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv(EnvServerURL, "http://env.example/api")
		t.Setenv(EnvRefreshInterval, "750ms")

		cfg := &Config{}
		cfg.LoadDefaults()
		parseEnv(cfg)

		assert.Equal(t, "http://env.example/api", cfg.ServerURL)
		assert.Equal(t, 750*time.Millisecond, cfg.RefreshInterval)
		assert.Equal(t, "polls.db", cfg.DatabasePath)
	})

	t.Run("dotenv file is read but does not override the process env", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)
		writeTemp(t, dir, ".env", "POLLS_DB_PATH=dotenv.db\nPOLLS_LOG_LEVEL=debug\n")
		t.Setenv(EnvLogLevel, "error")
		t.Cleanup(func() { os.Unsetenv(EnvDatabasePath) })

		cfg := &Config{}
		cfg.LoadDefaults()
		parseEnv(cfg)

		assert.Equal(t, "dotenv.db", cfg.DatabasePath)
		assert.Equal(t, "error", cfg.LogLevel)
	})

	t.Run("bad duration panics", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv(EnvRefreshInterval, "soon")

		require.Panics(t, func() { parseEnv(&Config{}) })
	})
}
