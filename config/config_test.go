package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8080" || cfg.Server.GatewayID != "gw-1" {
		t.Fatalf("defaults off: %+v", cfg.Server)
	}
	if cfg.PresenceTTL() != 60*time.Second {
		t.Fatalf("PresenceTTL = %v, want 60s", cfg.PresenceTTL())
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := []byte(`
server:
  addr: ":9090"
  presence_ttl_sec: 30
auth:
  jwt_secret: "test-secret"
`)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("Addr = %q, want :9090", cfg.Server.Addr)
	}
	if cfg.PresenceTTL() != 30*time.Second {
		t.Fatalf("PresenceTTL = %v, want 30s", cfg.PresenceTTL())
	}
	if cfg.Auth.JwtSecret != "test-secret" {
		t.Fatalf("JwtSecret = %q", cfg.Auth.JwtSecret)
	}
	// untouched sections keep their defaults
	if cfg.Redis.Addr != "127.0.0.1:6379" {
		t.Fatalf("Redis.Addr = %q", cfg.Redis.Addr)
	}
}

func TestApplyOverlay(t *testing.T) {
	cfg := Default()
	overlay := map[string]any{
		"server": map[string]any{"addr": ":7070", "node_id": 3},
		"auth":   map[string]any{"jwt_secret": "overlaid"},
	}
	if err := ApplyOverlay(cfg, overlay); err != nil {
		t.Fatalf("ApplyOverlay: %v", err)
	}
	if cfg.Server.Addr != ":7070" || cfg.Server.NodeID != 3 {
		t.Fatalf("server overlay off: %+v", cfg.Server)
	}
	if cfg.Auth.JwtSecret != "overlaid" {
		t.Fatalf("JwtSecret = %q", cfg.Auth.JwtSecret)
	}
	if cfg.Server.GatewayID != "gw-1" {
		t.Fatalf("GatewayID lost its default: %q", cfg.Server.GatewayID)
	}
	if err := ApplyOverlay(cfg, nil); err != nil {
		t.Fatalf("empty overlay: %v", err)
	}
}
