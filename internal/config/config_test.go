package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fullpos/poscloud/params"
)

func TestSanitizeDefaults(t *testing.T) {
	cfg := Config{JWT: JWTConfig{Secret: "s3cret"}, Override: OverrideConfig{APIKey: "  key  "}}
	if err := cfg.Sanitize(); err != nil {
		t.Fatalf("Sanitize failed: %v", err)
	}
	if cfg.ListenAddr != DefaultListenAddr {
		t.Fatalf("ListenAddr = %q, want %q", cfg.ListenAddr, DefaultListenAddr)
	}
	if cfg.JWT.AccessTokenTTL != params.AccessTokenExpiration {
		t.Fatalf("AccessTokenTTL = %v", cfg.JWT.AccessTokenTTL)
	}
	if cfg.Override.Issuer != params.OverrideIssuer {
		t.Fatalf("Issuer = %q", cfg.Override.Issuer)
	}
	if cfg.Override.APIKey != "key" {
		t.Fatalf("APIKey not trimmed: %q", cfg.Override.APIKey)
	}
}

func TestSanitizeRequiresJWTSecret(t *testing.T) {
	cfg := Config{}
	if err := cfg.Sanitize(); err == nil {
		t.Fatalf("expected error for missing jwt secret")
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
listenAddr: ":8080"
mysql:
  dsn: "user:pass@tcp(localhost:3306)/fullpos?parseTime=true"
  replicas:
    - "user:pass@tcp(replica:3306)/fullpos?parseTime=true"
jwt:
  secret: "abc"
  accessTokenTTL: 5m
override:
  apiKey: "terminal-key"
  verifyRateLimit: 10
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("ListenAddr = %q", cfg.ListenAddr)
	}
	if len(cfg.MySQL.Replicas) != 1 {
		t.Fatalf("expected one replica, got %v", cfg.MySQL.Replicas)
	}
	if cfg.JWT.AccessTokenTTL != 5*time.Minute {
		t.Fatalf("AccessTokenTTL = %v", cfg.JWT.AccessTokenTTL)
	}
	if cfg.Override.APIKey != "terminal-key" || cfg.Override.VerifyRateLimit != 10 {
		t.Fatalf("unexpected override config %+v", cfg.Override)
	}
}
