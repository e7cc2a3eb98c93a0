package config

import (
	"os"
	"path/filepath"
	"testing"
)

// setupConfigTest creates config.yaml in a temp directory and changes to it.
// Cleanup restores the original working directory automatically.
func setupConfigTest(t *testing.T, yamlContent string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(originalDir) })

	return tmpDir
}

func TestLoad_Defaults(t *testing.T) {
	setupConfigTest(t, `env: local`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Pipeline.BatchSize != 50000 {
		t.Errorf("Pipeline.BatchSize = %d, want 50000", cfg.Pipeline.BatchSize)
	}
	if cfg.LLM.Backend != "openai" {
		t.Errorf("LLM.Backend = %q, want openai", cfg.LLM.Backend)
	}
	if cfg.Redis.TTLSecs != 3600 {
		t.Errorf("Redis.TTLSecs = %d, want 3600", cfg.Redis.TTLSecs)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	setupConfigTest(t, `
pipeline:
  batch_size: 1000
`)
	t.Setenv("PIPELINE_BATCH_SIZE", "7500")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Pipeline.BatchSize != 7500 {
		t.Errorf("Pipeline.BatchSize = %d, want 7500 (env override)", cfg.Pipeline.BatchSize)
	}
}

func TestLoad_SecretsFromEnvOnly(t *testing.T) {
	setupConfigTest(t, `env: local`)
	t.Setenv("GROQ_API_KEY", "secret-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LLM.APIKey != "secret-key" {
		t.Errorf("LLM.APIKey = %q, want secret-key", cfg.LLM.APIKey)
	}
}

func TestLoad_InvalidBackendRejected(t *testing.T) {
	setupConfigTest(t, `
llm:
  backend: carrier-pigeon
`)

	if _, err := Load(); err == nil {
		t.Fatal("Load() expected error for invalid llm.backend, got nil")
	}
}

func TestLedgerConfig_ConnectionString(t *testing.T) {
	cfg := LedgerConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "schemaintel",
		Password: "pw",
		Database: "schemaintel",
		SSLMode:  "disable",
	}
	want := "host=localhost port=5432 user=schemaintel password=pw dbname=schemaintel sslmode=disable"
	if got := cfg.ConnectionString(); got != want {
		t.Errorf("ConnectionString() = %q, want %q", got, want)
	}
}
