package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvServerURL       = "POLLS_SERVER_URL"
	EnvDatabasePath    = "POLLS_DB_PATH"
	EnvRefreshInterval = "POLLS_REFRESH_INTERVAL"
	EnvLogLevel        = "POLLS_LOG_LEVEL"
)

// parseEnv overlays Config with POLLS_* environment variables. A .env file
// in the working directory is loaded first; variables already set in the
// process environment win over it. POLLS_REFRESH_INTERVAL takes a Go
// duration ("2s", "500ms"). Panics on a malformed .env or duration.
func parseEnv(cfg *Config) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	if v, ok := os.LookupEnv(EnvServerURL); ok && v != "" {
		cfg.ServerURL = v
	}
	if v, ok := os.LookupEnv(EnvDatabasePath); ok && v != "" {
		cfg.DatabasePath = v
	}
	if v, ok := os.LookupEnv(EnvRefreshInterval); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(err)
		}
		cfg.RefreshInterval = d
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = v
	}
}
