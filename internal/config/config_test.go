package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ADMIN_API_KEY", "test-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("expected default max open conns 25, got %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Cache.TTL != 30*time.Second {
		t.Errorf("expected default cache TTL 30s, got %s", cfg.Cache.TTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ADMIN_API_KEY", "test-key")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("CACHE_REFRESH_INTERVAL", "5m")
	t.Setenv("SEED_FILE", "/etc/registration/seed.yaml")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Cache.RefreshInterval != 5*time.Minute {
		t.Errorf("expected refresh interval 5m, got %s", cfg.Cache.RefreshInterval)
	}
	if cfg.Seed.File != "/etc/registration/seed.yaml" {
		t.Errorf("unexpected seed file: %s", cfg.Seed.File)
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("ADMIN_API_KEY", "")
	if _, err := Load(); err == nil {
		t.Error("expected error when admin API key is missing")
	}

	t.Setenv("ADMIN_API_KEY", "test-key")
	t.Setenv("SERVER_PORT", "70000")
	if _, err := Load(); err == nil {
		t.Error("expected error for out-of-range port")
	}
}
