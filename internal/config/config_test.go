package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(databaseDSNEnv, "")
	t.Setenv(apiBaseURLEnv, "")
	t.Setenv(logLevelEnv, "")

	cfg := Load()

	if cfg.API.BaseURL != "https://disease.sh" {
		t.Fatalf("unexpected default base URL: %s", cfg.API.BaseURL)
	}
	if cfg.API.Timeout().Seconds() != 15 {
		t.Fatalf("unexpected default timeout: %s", cfg.API.Timeout())
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("unexpected default log level: %s", cfg.Logging.Level)
	}
}

func TestLoadAppliesFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("api:\n  baseUrl: https://mirror.example.org\n  maxRetries: 5\nlogging:\n  level: debug\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv(configPathEnv, path)
	t.Setenv(databaseDSNEnv, "postgres://etl:secret@db:5432/healthcare_db")
	t.Setenv(apiBaseURLEnv, "")
	t.Setenv(logLevelEnv, "")

	cfg := Load()

	if cfg.API.BaseURL != "https://mirror.example.org" {
		t.Fatalf("file override lost: %s", cfg.API.BaseURL)
	}
	if cfg.API.MaxRetries != 5 {
		t.Fatalf("file override lost: %d", cfg.API.MaxRetries)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("file override lost: %s", cfg.Logging.Level)
	}
	if cfg.Database.DSN != "postgres://etl:secret@db:5432/healthcare_db" {
		t.Fatalf("env override lost: %s", cfg.Database.DSN)
	}
}

func TestEnvOverridesBeatFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("api:\n  baseUrl: https://from-file.example.org\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv(configPathEnv, path)
	t.Setenv(apiBaseURLEnv, "https://from-env.example.org")

	cfg := Load()

	if cfg.API.BaseURL != "https://from-env.example.org" {
		t.Fatalf("env must win over file: %s", cfg.API.BaseURL)
	}
}
