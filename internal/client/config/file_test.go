package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, dir, name, body string) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func Test_parseFile_SourcesAndFormats(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	jsonPath := writeTemp(t, dir, "cfg.json", `{
		"server_url": "http://json.example/api",
		"refresh_interval": "5s",
		"countdown_tick": 500000000,
		"revalidate_on_start": true
	}`)
	yamlPath := writeTemp(t, dir, "cfg.yaml", "server_url: http://yaml.example/api\ndatabase_path: /tmp/polls.db\nrequest_timeout: 3s\nlog_level: debug\n")

	t.Run("json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", jsonPath}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseFile(cfg)

		assert.Equal(t, "http://json.example/api", cfg.ServerURL)
		assert.Equal(t, 5*time.Second, cfg.RefreshInterval)
		assert.Equal(t, 500*time.Millisecond, cfg.CountdownTick)
		assert.True(t, cfg.RevalidateOnStart)
		assert.Equal(t, "polls.db", cfg.DatabasePath, "absent keys keep their value")
	})

	t.Run("yaml", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", yamlPath}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseFile(cfg)

		assert.Equal(t, "http://yaml.example/api", cfg.ServerURL)
		assert.Equal(t, "/tmp/polls.db", cfg.DatabasePath)
		assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, 2*time.Second, cfg.RefreshInterval)
	})

	t.Run("no config flag → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{ServerURL: "http://defaults/api", RefreshInterval: 42 * time.Second}
		parseFile(cfg)

		assert.Equal(t, "http://defaults/api", cfg.ServerURL)
		assert.Equal(t, 42*time.Second, cfg.RefreshInterval)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := writeTemp(t, dir, "bad.json", `{ this is not valid json`)
		os.Args = []string{"testbin", "-config", bad}

		require.Panics(t, func() { parseFile(&Config{}) })
	})

	t.Run("missing file → panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", filepath.Join(dir, "nope.yml")}

		require.Panics(t, func() { parseFile(&Config{}) })
	})
}
