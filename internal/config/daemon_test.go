package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hivemail/hivemail/internal/config"
)

func TestLoadHiveConfig_MissingFile(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := config.LoadHiveConfig(tmpDir)
	if err != nil {
		t.Fatalf("LoadHiveConfig failed: %v", err)
	}
	if cfg.Daemon.LocalOnly {
		t.Error("expected zero-value config when file is missing")
	}
}

func TestLoadHiveConfig_ExistingFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")
	if err := os.WriteFile(configPath, []byte(`{"daemon":{"local_only":true}}`), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.LoadHiveConfig(tmpDir)
	if err != nil {
		t.Fatalf("LoadHiveConfig failed: %v", err)
	}
	if !cfg.Daemon.LocalOnly {
		t.Error("expected local_only=true to round-trip")
	}
}

func TestLoadHiveConfig_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")
	if err := os.WriteFile(configPath, []byte(`not json`), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := config.LoadHiveConfig(tmpDir); err == nil {
		t.Fatal("expected an error for invalid JSON")
	}
}
