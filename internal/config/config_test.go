package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
server:
  port: "9090"
  allowed_origins: ["https://quiz.example.com"]
redis:
  addr: localhost:6379
  ttl: 2h
game:
  pre_roll: 0s
  countdown: 5s
nats:
  url: nats://localhost:4222
  subject: quiz.events
log:
  level: debug
  pretty: true
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || len(cfg.Server.AllowedOrigins) != 1 {
		t.Fatalf("unexpected server section %+v", cfg.Server)
	}
	if cfg.NATS.Subject != "quiz.events" || !cfg.Log.Pretty || cfg.Log.Level != "debug" {
		t.Fatalf("unexpected nats/log sections %+v %+v", cfg.NATS, cfg.Log)
	}
	if got := TTLDuration(cfg.Game.Countdown, time.Second); got != 5*time.Second {
		t.Fatalf("expected 5s countdown, got %s", got)
	}
	if got := TTLDuration(cfg.Game.PreRoll, 3*time.Second); got != 0 {
		t.Fatalf("explicit zero pre-roll should be kept, got %s", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	cfg, err := Load("")
	if err != nil || cfg.Server.Port != "" {
		t.Fatalf("empty path should give zero config, got %+v %v", cfg, err)
	}
}

func TestTTLDuration(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %s", got)
	}
	if got := TTLDuration("garbage", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback on parse error, got %s", got)
	}
	if got := TTLDuration("90s", time.Minute); got != 90*time.Second {
		t.Fatalf("expected 90s, got %s", got)
	}
}
