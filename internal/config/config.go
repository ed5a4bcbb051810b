// internal/config/config.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/ini.v1"
)

// FileName is the config file inside the .gyat directory.
const FileName = "config"

// DefaultDateFormat matches "Mon Jan 02 15:04:05 2006", the layout commits are written with.
const DefaultDateFormat = "Mon Jan 02 15:04:05 2006"

type Config struct {
	Core CoreSection `ini:"core"`
	Log  LogSection  `ini:"log"`
}

type CoreSection struct {
	LogLevel         string `ini:"log_level"`         // debug, info, warn, error
	CompressionLevel int    `ini:"compression_level"` // zstd level, 1-22
	TreeCacheSize    int    `ini:"tree_cache_size"`   // parsed trees kept in memory
	StatCache        bool   `ini:"stat_cache"`        // reuse hashes of unchanged files
}

type LogSection struct {
	DateFormat string `ini:"date_format"` // layout used by wood
}

func Default() *Config {
	return &Config{
		Core: CoreSection{
			LogLevel:         "warn",
			CompressionLevel: 3,
			TreeCacheSize:    256,
			StatCache:        true,
		},
		Log: LogSection{
			DateFormat: DefaultDateFormat,
		},
	}
}

// Load reads the config at path on top of the defaults. A missing file is not an error.
// GYAT_LOG_LEVEL overrides core.log_level.
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		file, err := ini.Load(path)
		if err != nil {
			return nil, fmt.Errorf("loading config %s: %w", path, err)
		}
		if err := file.MapTo(cfg); err != nil {
			return nil, fmt.Errorf("mapping config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("checking config %s: %w", path, err)
	}

	if level := os.Getenv("GYAT_LOG_LEVEL"); level != "" {
		cfg.Core.LogLevel = level
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Core.CompressionLevel < 1 || c.Core.CompressionLevel > 22 {
		return fmt.Errorf("core.compression_level must be between 1 and 22, got %d", c.Core.CompressionLevel)
	}
	if c.Core.TreeCacheSize <= 0 {
		return fmt.Errorf("core.tree_cache_size must be positive, got %d", c.Core.TreeCacheSize)
	}
	if c.Log.DateFormat == "" {
		c.Log.DateFormat = DefaultDateFormat
	}
	return nil
}

// Save writes cfg to path in INI form.
func Save(path string, cfg *Config) error {
	file := ini.Empty()
	if err := ini.ReflectFrom(file, cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := file.SaveTo(path); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}
