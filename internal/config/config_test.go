package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom("")
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Server.BindAddr != "0.0.0.0:8080" {
		t.Errorf("unexpected bind addr: %s", cfg.Server.BindAddr)
	}
	if cfg.Client.RetryAttempts != 3 {
		t.Errorf("unexpected retry attempts: %d", cfg.Client.RetryAttempts)
	}
	if cfg.Storage.MaxSizeMB != 5 {
		t.Errorf("unexpected max upload size: %d", cfg.Storage.MaxSizeMB)
	}
	if got := ParseDuration(cfg.Client.CacheTTL, 0); got != 5*time.Minute {
		t.Errorf("unexpected cache TTL: %v", got)
	}
}

func TestLoadFromFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"server":{"bindAddr":"127.0.0.1:9999"},"client":{"retryAttempts":5},"alerting":{"checkInterval":"30s"}}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Server.BindAddr != "127.0.0.1:9999" {
		t.Errorf("file override not applied: %s", cfg.Server.BindAddr)
	}
	if cfg.Client.RetryAttempts != 5 {
		t.Errorf("file override not applied: %d", cfg.Client.RetryAttempts)
	}
	if cfg.Alerting.CheckInterval != "30s" {
		t.Errorf("file override not applied: %s", cfg.Alerting.CheckInterval)
	}
	// untouched sections keep defaults
	if cfg.Database.Port != 5432 {
		t.Errorf("default lost after file load: %d", cfg.Database.Port)
	}
}

func TestLoadFromBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{not json`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("malformed config file must fail loading")
	}
	if _, err := LoadFrom(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("missing config file must fail loading")
	}
}

func TestParseDuration(t *testing.T) {
	if ParseDuration("", time.Second) != time.Second {
		t.Error("empty input should fall back")
	}
	if ParseDuration("bogus", time.Second) != time.Second {
		t.Error("invalid input should fall back")
	}
	if ParseDuration("250ms", time.Second) != 250*time.Millisecond {
		t.Error("valid input should parse")
	}
}
