// Package config loads varscope settings from a YAML file.
//
// Precedence, lowest first: Default(), the config file, then CLI flags.
// Flag overrides are applied by the cli package after Load returns.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration.
type Config struct {
	MaxDepth int          `yaml:"max_depth"`
	Database string       `yaml:"database"`
	Cache    CacheConfig  `yaml:"cache"`
	Log      LogConfig    `yaml:"log"`
	Server   ServerConfig `yaml:"server"`
}

// CacheConfig sizes the resolution cache. Disabled turns caching off.
type CacheConfig struct {
	Disabled bool          `yaml:"disabled"`
	Shards   int           `yaml:"shards"`
	TTL      time.Duration `yaml:"ttl"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		MaxDepth: 10,
		Database: "varscope.db",
		Cache: CacheConfig{
			Shards: 16,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
}

// Load reads path over Default(). An empty path returns Default().
// Unknown keys are rejected so typos surface instead of being ignored.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []string
	if c.MaxDepth < 1 {
		errs = append(errs, fmt.Sprintf("max_depth must be >= 1, got %d", c.MaxDepth))
	}
	if c.Cache.Shards < 1 {
		errs = append(errs, fmt.Sprintf("cache.shards must be >= 1, got %d", c.Cache.Shards))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, "cache.ttl must not be negative")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("log.format must be text or json, got %q", c.Log.Format))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
