package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadReadsYAMLAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := []byte(`
server:
  port: "9090"
redis:
  addr: "localhost:6379"
  ttl: "1h"
game:
  maxPlayers: 20
  resultsDelay: "5s"
`)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("REDIS_ADDR", "cache:6380")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("expected port 9090, got %q", cfg.Server.Port)
	}
	if cfg.Redis.Addr != "cache:6380" {
		t.Fatalf("expected env override for redis addr, got %q", cfg.Redis.Addr)
	}
	if cfg.Game.MaxPlayers != 20 {
		t.Fatalf("expected maxPlayers 20, got %d", cfg.Game.MaxPlayers)
	}
	if d := TTLDuration(cfg.Game.ResultsDelay, time.Second); d != 5*time.Second {
		t.Fatalf("expected 5s results delay, got %v", d)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("expected missing file to be tolerated, got %v", err)
	}
	if cfg.Postgres.URL != "" && os.Getenv("POSTGRES_URL") == "" {
		t.Fatalf("expected empty postgres url, got %q", cfg.Postgres.URL)
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if d := TTLDuration("", time.Minute); d != time.Minute {
		t.Fatalf("expected fallback for empty, got %v", d)
	}
	if d := TTLDuration("nonsense", time.Minute); d != time.Minute {
		t.Fatalf("expected fallback for invalid, got %v", d)
	}
	if d := TTLDuration("90s", time.Minute); d != 90*time.Second {
		t.Fatalf("expected 90s, got %v", d)
	}
}
