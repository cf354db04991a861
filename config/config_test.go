package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "content.ini"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir(), "default")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.MaxRestartCount != 3 {
		t.Errorf("MaxRestartCount = %d, want 3", cfg.MaxRestartCount)
	}
	if cfg.Debug {
		t.Error("Debug should default to false")
	}
}

func TestLoadConfigValues(t *testing.T) {
	dir := writeConfig(t, `
Max_restart_count = 7
Suppress_worker_stdio = yes
Debug = true
Directory_logs = /tmp/content-logs
`)

	cfg, err := LoadConfig(dir, "default")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.MaxRestartCount != 7 {
		t.Errorf("MaxRestartCount = %d, want 7", cfg.MaxRestartCount)
	}
	if !cfg.SuppressWorkerStdio {
		t.Error("SuppressWorkerStdio should be true")
	}
	if !cfg.Debug {
		t.Error("Debug should be true")
	}
	if cfg.LogsPath != "/tmp/content-logs" {
		t.Errorf("LogsPath = %q", cfg.LogsPath)
	}
}

func TestLoadConfigProfile(t *testing.T) {
	dir := writeConfig(t, `
Max_restart_count = 2

[ci]
Max_restart_count = 9
`)

	cfg, err := LoadConfig(dir, "ci")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.MaxRestartCount != 9 {
		t.Errorf("profile section not applied: MaxRestartCount = %d, want 9", cfg.MaxRestartCount)
	}

	cfg, err = LoadConfig(dir, "default")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.MaxRestartCount != 2 {
		t.Errorf("default section not applied: MaxRestartCount = %d, want 2", cfg.MaxRestartCount)
	}
}

func TestValidateCreatesLogsDir(t *testing.T) {
	cfg := &Config{LogsPath: filepath.Join(t.TempDir(), "logs"), MaxRestartCount: 1}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if info, err := os.Stat(cfg.LogsPath); err != nil || !info.IsDir() {
		t.Error("Validate did not create the logs directory")
	}
}
