// Package config loads server configuration from a TOML file with
// environment variable overrides. A missing file is not an error; the
// defaults are a runnable configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server ServerConfig `toml:"server"`
	Engine EngineConfig `toml:"engine"`
	AI     AIConfig     `toml:"ai"`
	Store  StoreConfig  `toml:"store"`

	Path string `toml:"-"`
}

type ServerConfig struct {
	Addr              string `toml:"addr"`
	ShutdownTimeoutMS int    `toml:"shutdown_timeout_ms"`
}

type EngineConfig struct {
	MaxConcurrency int `toml:"max_concurrency"`
	FreeTierLimit  int `toml:"free_tier_limit"`
	RunTimeoutMS   int `toml:"run_timeout_ms"`
}

type AIConfig struct {
	Model string `toml:"model"`
}

type StoreConfig struct {
	QuotaDBPath string `toml:"quota_db_path"`
	RunsDBPath  string `toml:"runs_db_path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:              ":8080",
			ShutdownTimeoutMS: 10_000,
		},
		Engine: EngineConfig{
			MaxConcurrency: 4,
			FreeTierLimit:  10,
			RunTimeoutMS:   120_000,
		},
		AI: AIConfig{
			Model: "gemini-2.0-flash",
		},
		Store: StoreConfig{
			QuotaDBPath: filepath.Join("data", "quota.db"),
			RunsDBPath:  filepath.Join("data", "runs.db"),
		},
	}
}

// Load reads the TOML file at path over the defaults, then applies
// environment overrides. An empty path skips the file entirely; a named
// file that does not exist is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		bytes, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if _, err := toml.Decode(string(bytes), &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config file %s: %w", path, err)
		}
		cfg.Path = path
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv layers NODEFLOW_* environment variables over the file values.
func applyEnv(cfg *Config) {
	if v := os.Getenv("NODEFLOW_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v, ok := envInt("NODEFLOW_MAX_CONCURRENCY"); ok {
		cfg.Engine.MaxConcurrency = v
	}
	if v, ok := envInt("NODEFLOW_FREE_TIER_LIMIT"); ok {
		cfg.Engine.FreeTierLimit = v
	}
	if v, ok := envInt("NODEFLOW_RUN_TIMEOUT_MS"); ok {
		cfg.Engine.RunTimeoutMS = v
	}
	if v := os.Getenv("NODEFLOW_MODEL"); v != "" {
		cfg.AI.Model = v
	}
	if v := os.Getenv("NODEFLOW_QUOTA_DB"); v != "" {
		cfg.Store.QuotaDBPath = v
	}
	if v := os.Getenv("NODEFLOW_RUNS_DB"); v != "" {
		cfg.Store.RunsDBPath = v
	}
}

func envInt(name string) (int, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

// RunTimeout returns the per-run deadline as a duration.
func (c EngineConfig) RunTimeout() time.Duration {
	return time.Duration(c.RunTimeoutMS) * time.Millisecond
}

// ShutdownTimeout returns the graceful shutdown deadline as a duration.
func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}
