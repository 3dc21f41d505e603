// Package config loads runtime configuration for the polls client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected via flags: -c or -config. Files ending
//     in .yaml or .yml are YAML, anything else is JSON.
//  3. Environment variables, after loading a .env file if one exists.
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the polls API
//	-d string   path of the local session database
//	-r int      poll refresh interval (seconds)
//	-l string   log level
//
// Environment
//
//	POLLS_SERVER_URL, POLLS_DB_PATH, POLLS_REFRESH_INTERVAL (Go duration),
//	POLLS_LOG_LEVEL
//
// # File schema
//
// Intervals use timex.Duration, so values can be either strings like "2s"
// or integer nanoseconds:
//
//	{
//	  "server_url": "http://localhost:8080/api",
//	  "database_path": "polls.db",
//	  "request_timeout": "10s",
//	  "refresh_interval": "2s",
//	  "countdown_tick": "1s",
//	  "revalidate_on_start": true,
//	  "log_level": "info"
//	}
package config
