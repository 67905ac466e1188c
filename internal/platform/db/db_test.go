package db

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	write := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("write config: %v", err)
		}
		return path
	}

	t.Run("parses a full config", func(t *testing.T) {
		path := write(t, `
version: "1.0"
mode: dev
listen_addr: ":9000"
database:
  host: 127.0.0.1
  port: 3306
  user: hram
  password: secret
  dbname: hram
auth:
  enabled: true
  secret: "jwt-secret"
`)
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Mode != "dev" || cfg.ListenAddr != ":9000" {
			t.Fatalf("unexpected config: %+v", cfg)
		}
		if cfg.DB.Host != "127.0.0.1" || cfg.DB.Port != 3306 || cfg.DB.DBName != "hram" {
			t.Fatalf("unexpected db config: %+v", cfg.DB)
		}
		if !cfg.Auth.Enabled || cfg.Auth.Secret != "jwt-secret" {
			t.Fatalf("unexpected auth config: %+v", cfg.Auth)
		}
	})

	t.Run("defaults listen_addr", func(t *testing.T) {
		path := write(t, "mode: release\n")
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.ListenAddr != ":8443" {
			t.Fatalf("listen_addr = %q, want :8443", cfg.ListenAddr)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Fatal("expected an error")
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := write(t, "mode: [unclosed\n")
		if _, err := LoadConfig(path); err == nil {
			t.Fatal("expected an error")
		}
	})
}
