package config

import "time"

// Config holds runtime settings for the polls client.
//
// Fields:
//   - ServerURL: base URL of the polls REST API, including the /api prefix.
//   - DatabasePath: SQLite file holding the persisted session.
//   - RequestTimeout: upper bound for a single API request.
//   - RefreshInterval: how often a watched poll is refetched.
//   - CountdownTick: how often countdowns are recomputed.
//   - RevalidateOnStart: check a restored token against the backend.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	ServerURL         string
	DatabasePath      string
	RequestTimeout    time.Duration
	RefreshInterval   time.Duration
	CountdownTick     time.Duration
	RevalidateOnStart bool
	LogLevel          string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://localhost:8080/api"
	c.DatabasePath = "polls.db"
	c.RequestTimeout = 10 * time.Second
	c.RefreshInterval = 2 * time.Second
	c.CountdownTick = time.Second
	c.RevalidateOnStart = false
	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the config file (if any), the environment and command-line flags. Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
