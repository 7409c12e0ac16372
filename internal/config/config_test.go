package config

import (
	"os"
	"path/filepath"
	"testing"

	"medusa/internal/analyzer"
)

func TestLoadDefaultsWithNoOverrides(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.FunctionLengthThreshold != analyzer.DefaultFunctionLengthThreshold {
		t.Fatalf("expected default threshold %d, got %d", analyzer.DefaultFunctionLengthThreshold, cfg.FunctionLengthThreshold)
	}
}

func TestLoadAppliesFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "medusa.json")
	body := `{"default_arch_tag": "arm64", "function_length_threshold": 4}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write config fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DefaultArchTag != "arm64" || cfg.FunctionLengthThreshold != 4 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "medusa.json")
	body := `{"function_length_threshold": 4}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write config fixture: %v", err)
	}

	t.Setenv("MEDUSA_FUNCTION_LENGTH_THRESHOLD", "9")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.FunctionLengthThreshold != 9 {
		t.Fatalf("expected env to override file, got %d", cfg.FunctionLengthThreshold)
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Fatalf("expected an error for a missing config file")
	}
}
