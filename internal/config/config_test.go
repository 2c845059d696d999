package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeDefaults(t *testing.T) {
	var cfg Config
	cfg.Normalize()

	if cfg.Listen == "" {
		t.Error("Listen not defaulted")
	}
	if cfg.WeekStart != "sunday" {
		t.Errorf("WeekStart = %q, want sunday", cfg.WeekStart)
	}
	if cfg.MaxEvents.Day <= 0 || cfg.MaxEvents.Week <= 0 || cfg.MaxEvents.Month <= 0 {
		t.Errorf("MaxEvents not defaulted: %+v", cfg.MaxEvents)
	}

	cfg.WeekStart = "thursday"
	cfg.Normalize()
	if cfg.WeekStart != "sunday" {
		t.Errorf("unknown WeekStart should fall back to sunday, got %q", cfg.WeekStart)
	}
}

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("first-run load: %v", err)
	}
	if cfg.Listen != "127.0.0.1:8080" {
		t.Errorf("unexpected default listen: %q", cfg.Listen)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config file perms = %o, want 600", perm)
	}

	// Second load reads the file back.
	again, err := Load(path)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if again.Listen != cfg.Listen || again.Timezone != cfg.Timezone {
		t.Errorf("reloaded config differs: %+v vs %+v", again, cfg)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}
