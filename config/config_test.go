package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Endpoint == "" {
		t.Error("default endpoint must be set")
	}
	if cfg.Commitment != "confirmed" {
		t.Errorf("default commitment %q, want confirmed", cfg.Commitment)
	}
	if cfg.RequestTimeout <= 0 {
		t.Error("default timeout must be positive")
	}
}

func TestLoadFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	if err := os.WriteFile(path, []byte("endpoint: http://localhost:8899\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Endpoint != "http://localhost:8899" {
		t.Errorf("endpoint %q", cfg.Endpoint)
	}
	if cfg.Commitment != "confirmed" {
		t.Error("commitment should fall back to default")
	}
	if cfg.RequestTimeout != Duration(30*time.Second) {
		t.Error("timeout should fall back to default")
	}
}

func TestLoadFullFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	body := "endpoint: http://localhost:8899\ncommitment: finalized\nrequest_timeout: 5s\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Commitment != "finalized" || cfg.LogLevel != "debug" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.RequestTimeout != Duration(5*time.Second) {
		t.Errorf("timeout %v, want 5s", cfg.RequestTimeout)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
