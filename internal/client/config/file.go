package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/segmentio/encoding/json"
	"gopkg.in/yaml.v3"

	"github.com/dmitrijs2005/electica/internal/flagx"
	"github.com/dmitrijs2005/electica/internal/timex"
)

// FileConfig is a DTO used exclusively for decoding config files. Absent
// keys leave the corresponding Config field untouched.
type FileConfig struct {
	ServerURL         *string         `json:"server_url" yaml:"server_url"`
	DatabasePath      *string         `json:"database_path" yaml:"database_path"`
	RequestTimeout    *timex.Duration `json:"request_timeout" yaml:"request_timeout"`
	RefreshInterval   *timex.Duration `json:"refresh_interval" yaml:"refresh_interval"`
	CountdownTick     *timex.Duration `json:"countdown_tick" yaml:"countdown_tick"`
	RevalidateOnStart *bool           `json:"revalidate_on_start" yaml:"revalidate_on_start"`
	LogLevel          *string         `json:"log_level" yaml:"log_level"`
}

// parseFile overlays Config with values from the file named by -c or
// -config. Files ending in .yaml or .yml are read as YAML, anything else as
// JSON. Panics on read or decode errors.
func parseFile(cfg *Config) {
	path := flagx.ConfigFileFlag(os.Args[1:])
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		panic(err)
	}

	fc.apply(cfg)
}

func (fc FileConfig) apply(cfg *Config) {
	if fc.ServerURL != nil {
		cfg.ServerURL = *fc.ServerURL
	}
	if fc.DatabasePath != nil {
		cfg.DatabasePath = *fc.DatabasePath
	}
	if fc.RequestTimeout != nil {
		cfg.RequestTimeout = time.Duration(fc.RequestTimeout.Duration)
	}
	if fc.RefreshInterval != nil {
		cfg.RefreshInterval = time.Duration(fc.RefreshInterval.Duration)
	}
	if fc.CountdownTick != nil {
		cfg.CountdownTick = time.Duration(fc.CountdownTick.Duration)
	}
	if fc.RevalidateOnStart != nil {
		cfg.RevalidateOnStart = *fc.RevalidateOnStart
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
}
