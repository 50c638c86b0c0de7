package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Engine.FreeTierLimit != 10 {
		t.Errorf("free tier limit = %d", cfg.Engine.FreeTierLimit)
	}
	if cfg.AI.Model != "gemini-2.0-flash" {
		t.Errorf("model = %q", cfg.AI.Model)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodeflow.toml")
	content := `
[server]
addr = ":9090"

[engine]
max_concurrency = 8
free_tier_limit = 3

[ai]
model = "gemini-2.5-pro"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Engine.MaxConcurrency != 8 || cfg.Engine.FreeTierLimit != 3 {
		t.Errorf("engine = %+v", cfg.Engine)
	}
	if cfg.AI.Model != "gemini-2.5-pro" {
		t.Errorf("model = %q", cfg.AI.Model)
	}
	// Untouched sections keep their defaults.
	if cfg.Store.RunsDBPath == "" {
		t.Error("runs db path lost its default")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodeflow.toml")
	if err := os.WriteFile(path, []byte("[server]\naddr = \":9090\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("NODEFLOW_ADDR", ":7070")
	t.Setenv("NODEFLOW_FREE_TIER_LIMIT", "5")
	t.Setenv("NODEFLOW_MODEL", "gemini-2.0-flash-lite")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("addr = %q, env must win over file", cfg.Server.Addr)
	}
	if cfg.Engine.FreeTierLimit != 5 {
		t.Errorf("free tier limit = %d", cfg.Engine.FreeTierLimit)
	}
	if cfg.AI.Model != "gemini-2.0-flash-lite" {
		t.Errorf("model = %q", cfg.AI.Model)
	}
}

func TestLoad_BadEnvIntIgnored(t *testing.T) {
	t.Setenv("NODEFLOW_MAX_CONCURRENCY", "not-a-number")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Engine.MaxConcurrency != 4 {
		t.Errorf("max concurrency = %d, want default", cfg.Engine.MaxConcurrency)
	}
}

func TestLoad_MissingNamedFileErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error for missing named file")
	}
}
