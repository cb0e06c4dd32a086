package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "collabboard.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvVar, "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8888 || cfg.PublishInterval != 50*time.Millisecond || cfg.ExportPadding != 20 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestLoadOverridesSomeKeys(t *testing.T) {
	path := writeConfig(t, "port: 9000\nwire_format: cbor\npublish_interval: 100ms\ntheme: dark\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9000 || cfg.WireFormat != "cbor" || cfg.Theme != "dark" {
		t.Errorf("expected overrides applied, got %+v", cfg)
	}
	if cfg.PublishInterval != 100*time.Millisecond {
		t.Errorf("expected 100ms, got %v", cfg.PublishInterval)
	}
	if cfg.CursorInterval != 16*time.Millisecond || cfg.Room != "main" {
		t.Errorf("expected untouched keys to keep defaults, got %+v", cfg)
	}
	if cfg.Addr() != ":9000" {
		t.Errorf("expected :9000, got %s", cfg.Addr())
	}
}

func TestLoadFromEnv(t *testing.T) {
	path := writeConfig(t, "room: design\n")
	t.Setenv(EnvVar, path)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Room != "design" {
		t.Errorf("expected room design, got %q", cfg.Room)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"port", "port: 70000\n", "port"},
		{"format", "wire_format: xml\n", "wire_format"},
		{"theme", "theme: sepia\n", "theme"},
		{"history", "history_limit: -1\n", "history_limit"},
		{"yaml", "port: [\n", "parsing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected missing file to fail")
	}
}
