package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.StoragePath == "" {
		t.Error("expected a non-empty default storage path")
	}
	if len(cfg.Runtimes) != 1 || cfg.Runtimes[0].Language != "python" {
		t.Errorf("expected one default python runtime, got %+v", cfg.Runtimes)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got: %v", err)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.StoragePath != DefaultConfig().StoragePath {
		t.Errorf("expected default storage path, got %s", cfg.StoragePath)
	}
}

func TestConfigSaveLoad(t *testing.T) {
	t.Setenv("GRADECORE_DB", "")
	t.Setenv("GRADECORE_LOG_LEVEL", "")

	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.StoragePath = "custom/path.db"
	cfg.Runtimes = append(cfg.Runtimes, RuntimeConfig{ID: "go-1.22", Language: "go", Image: "golang:1.22"})

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.StoragePath != "custom/path.db" {
		t.Errorf("expected storage_path=custom/path.db, got %s", loaded.StoragePath)
	}
	if len(loaded.Runtimes) != 2 {
		t.Errorf("expected 2 runtimes round-tripped, got %d", len(loaded.Runtimes))
	}
}

func TestConfigEnvOverrides(t *testing.T) {
	os.Setenv("GRADECORE_DB", "/tmp/env-override.db")
	defer os.Unsetenv("GRADECORE_DB")
	os.Setenv("GRADECORE_LOG_LEVEL", "debug")
	defer os.Unsetenv("GRADECORE_LOG_LEVEL")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	if cfg.StoragePath != "/tmp/env-override.db" {
		t.Errorf("expected env override storage path, got %s", cfg.StoragePath)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected env override log level, got %s", cfg.LogLevel)
	}
}

func TestConfigValidateRejectsEmptyStoragePath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StoragePath = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty storage path")
	}
}

func TestConfigValidateRejectsNoRuntimes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Runtimes = nil
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for no configured runtimes")
	}
}

func TestConfigValidateRejectsDuplicateRuntimeID(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Runtimes = append(cfg.Runtimes, cfg.Runtimes[0])
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for duplicate runtime id")
	}
}

func TestConfigValidateRejectsIncompleteRuntime(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Runtimes = []RuntimeConfig{{ID: "bad"}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for runtime missing language/image")
	}
}

func TestLimitsValidateRejectsInvertedBounds(t *testing.T) {
	l := DefaultLimits()
	l.MaxTimeoutS = l.MinTimeoutS - 1
	if err := l.Validate(); err == nil {
		t.Error("expected error for inverted timeout bounds")
	}
}

func TestLimitsClamp(t *testing.T) {
	l := DefaultLimits()
	timeoutS, memoryMB := l.Clamp(1000, 1)
	if timeoutS != l.MaxTimeoutS {
		t.Errorf("expected timeout clamped to max %d, got %d", l.MaxTimeoutS, timeoutS)
	}
	if memoryMB != l.MinMemoryMB {
		t.Errorf("expected memory clamped to min %d, got %d", l.MinMemoryMB, memoryMB)
	}
}
