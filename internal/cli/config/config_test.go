package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server != "http://localhost:5080" {
		t.Errorf("Server = %q", cfg.Server)
	}
	if cfg.Output != "table" {
		t.Errorf("Output = %q", cfg.Output)
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()
	if !strings.HasSuffix(path, filepath.Join(".pairhub", "cli.yaml")) {
		t.Errorf("Path = %q", path)
	}
}

func TestLoad_NonExistentFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load should not error for nonexistent file: %v", err)
	}
	if cfg.Server != Default().Server {
		t.Error("Should return default config for nonexistent file")
	}
}

func TestLoad_PartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.yaml")
	if err := os.WriteFile(path, []byte("server: https://hub.example:5443\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server != "https://hub.example:5443" {
		t.Errorf("Server = %q", cfg.Server)
	}
	if cfg.Output != "table" {
		t.Errorf("Output should keep its default, got %q", cfg.Output)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "cli.yaml")
	cfg := &CLIConfig{Server: "http://10.0.0.5:5080", APIKey: "k", Output: "json"}

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("permissions = %o, want 600", perm)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if *loaded != *cfg {
		t.Errorf("loaded = %+v, want %+v", loaded, cfg)
	}
}
