package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server.port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Queue.EnqueueTimeout != 5*time.Second {
		t.Errorf("queue.enqueue_timeout = %v, want 5s", cfg.Queue.EnqueueTimeout)
	}
	if cfg.Email.CompanyName != "Nossa Empresa" {
		t.Errorf("email.company_name = %q", cfg.Email.CompanyName)
	}
	if cfg.Workers.LogRetention != 90*24*time.Hour {
		t.Errorf("workers.log_retention = %v", cfg.Workers.LogRetention)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("server:\n  port: 9090\n  trusted_proxies:\n    - 10.0.0.0/8\ncache:\n  link_ttl: 30s\nflows:\n  jwt_secret: from-file\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	t.Setenv("FLOWS_JWT_SECRET", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("server.port = %d, want 9090", cfg.Server.Port)
	}
	if len(cfg.Server.TrustedProxies) != 1 || cfg.Server.TrustedProxies[0] != "10.0.0.0/8" {
		t.Errorf("server.trusted_proxies = %v", cfg.Server.TrustedProxies)
	}
	if cfg.Cache.LinkTTL != 30*time.Second {
		t.Errorf("cache.link_ttl = %v, want 30s", cfg.Cache.LinkTTL)
	}
	if cfg.Flows.JWTSecret != "from-env" {
		t.Errorf("flows.jwt_secret = %q, want env override", cfg.Flows.JWTSecret)
	}
	if cfg.Renderer.Timezone != "America/Sao_Paulo" {
		t.Errorf("Expected defaults for keys absent from the file, got %q", cfg.Renderer.Timezone)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected an error for a missing config file")
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv("PAYHOOK_CONFIG", "/etc/payhook.yaml")
	if got := ResolvePath(); got != "/etc/payhook.yaml" {
		t.Errorf("ResolvePath() = %q", got)
	}
}
