// Package config loads server settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"gonotes/internal/note"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config is the full server configuration.
type Config struct {
	Addr     string      `yaml:"addr"`
	Timezone string      `yaml:"timezone"`
	Log      LogConfig   `yaml:"log"`
	Store    StoreConfig `yaml:"store"`
	Seed     SeedConfig  `yaml:"seed"`
}

// LogConfig controls the default slog handler.
type LogConfig struct {
	Level string `yaml:"level"`
}

// StoreConfig selects the note backend and its Redis connection.
type StoreConfig struct {
	Backend     string `yaml:"backend"`
	RedisAddr   string `yaml:"redis_addr"`
	RedisPrefix string `yaml:"redis_prefix"`
}

// SeedConfig is the note a fresh store starts with.
type SeedConfig struct {
	Title   string `yaml:"title"`
	Content string `yaml:"content"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Addr:     ":3000",
		Timezone: "Local",
		Log:      LogConfig{Level: "info"},
		Store: StoreConfig{
			Backend:     BackendMemory,
			RedisAddr:   "localhost:6379",
			RedisPrefix: note.DefaultRedisPrefix,
		},
		Seed: SeedConfig{
			Title:   note.DefaultSeed.Title,
			Content: note.DefaultSeed.Content,
		},
	}
}

// Load reads path (if non-empty) over the defaults, then applies environment
// overrides. A missing file at the GONOTES_CONFIG location is an error; an
// empty path just skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("GONOTES_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Store.RedisAddr = v
	}
	if v := os.Getenv("GONOTES_STORE"); v != "" {
		c.Store.Backend = v
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr must not be empty")
	}
	switch c.Store.Backend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// Location resolves the display time zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// LogLevel parses Log.Level.
func (c Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.Log.Level))); err != nil {
		return level, fmt.Errorf("log level %q: %w", c.Log.Level, err)
	}
	return level, nil
}

// NoteSeed returns the seed note settings.
func (c Config) NoteSeed() note.Seed {
	return note.Seed{Title: c.Seed.Title, Content: c.Seed.Content}
}
