package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pldmd.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[[devices]]
tid = 1
eid = 10
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Name != "pldmd" {
		t.Fatalf("unexpected name: %q", cfg.Name)
	}
	if cfg.DebugAddr != ":9200" {
		t.Fatalf("unexpected debug addr: %q", cfg.DebugAddr)
	}
	if cfg.Timeouts.RequestTimeout != 100*time.Millisecond {
		t.Fatalf("unexpected request timeout: %v", cfg.Timeouts.RequestTimeout)
	}
	if cfg.Timeouts.MaxRequestUpdateRetries != 5 {
		t.Fatalf("unexpected max retries: %d", cfg.Timeouts.MaxRequestUpdateRetries)
	}
	if len(cfg.Devices) != 1 || cfg.Devices[0].TID != 1 || cfg.Devices[0].EID != 10 {
		t.Fatalf("unexpected devices: %+v", cfg.Devices)
	}
}

func TestLoadConfigOverridesTimeouts(t *testing.T) {
	path := writeConfig(t, `
name = "lab-pldmd"

[timeouts]
request_timeout = "250ms"
max_request_update_retries = 2
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Name != "lab-pldmd" {
		t.Fatalf("unexpected name: %q", cfg.Name)
	}
	if cfg.Timeouts.RequestTimeout != 250*time.Millisecond {
		t.Fatalf("unexpected request timeout: %v", cfg.Timeouts.RequestTimeout)
	}
	if cfg.Timeouts.MaxRequestUpdateRetries != 2 {
		t.Fatalf("unexpected max retries: %d", cfg.Timeouts.MaxRequestUpdateRetries)
	}
}

func TestLoadConfigRejectsDuplicateTID(t *testing.T) {
	path := writeConfig(t, `
[[devices]]
tid = 1
eid = 10

[[devices]]
tid = 1
eid = 11
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected duplicate tid error")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected load error for missing file")
	}
}
