// Package config loads the engine's own ambient configuration (pipeline
// tuning, cache, graph store, LLM, tracker pricing) from config.yaml with
// environment-variable overrides. Per-client database configuration is
// handled separately by client.go since it is one small YAML document per
// client rather than a single process-wide file.
package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all process-wide configuration for the engine.
// Environment variables override YAML values for fields that support both.
// Secrets must only come from environment variables (yaml:"-" fields).
type Config struct {
	Env          string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	ArtifactsDir string `yaml:"artifacts_dir" env:"ARTIFACTS_DIR" env-default:"./artifacts"`

	Pipeline PipelineConfig `yaml:"pipeline"`
	LLM      LLMConfig      `yaml:"llm"`
	Redis    RedisConfig    `yaml:"redis"`
	Neo4j    Neo4jConfig    `yaml:"neo4j"`
	Tracker  TrackerConfig  `yaml:"tracker"`

	// Ledger is the engine's own bookkeeping database (pipeline_runs),
	// separate from any client's source database.
	Ledger LedgerConfig `yaml:"ledger"`
}

// PipelineConfig tunes the ingestion pipeline (C1-C7).
type PipelineConfig struct {
	BatchSize      int `yaml:"batch_size" env:"PIPELINE_BATCH_SIZE" env-default:"50000"`
	WorkerPoolSize int `yaml:"worker_pool_size" env:"PIPELINE_WORKER_POOL_SIZE" env-default:"0"` // 0 = runtime.NumCPU()
	DBTimeoutSecs  int `yaml:"db_timeout_secs" env:"PIPELINE_DB_TIMEOUT_SECS" env-default:"60"`
}

// LLMConfig configures the chat capability. API keys must come from the
// environment; GROQ_API_KEY/GROQ_MODEL are the names the spec recognises.
type LLMConfig struct {
	Backend         string `yaml:"backend" env:"LLM_BACKEND" env-default:"openai"` // "openai" or "anthropic"
	BaseURL         string `yaml:"base_url" env:"LLM_BASE_URL" env-default:"https://api.groq.com/openai/v1"`
	APIKey          string `yaml:"-" env:"GROQ_API_KEY"`
	AnthropicAPIKey string `yaml:"-" env:"ANTHROPIC_API_KEY"`
	DefaultModel    string `yaml:"default_model" env:"GROQ_MODEL" env-default:"llama-3.3-70b-versatile"`
	TimeoutSecs     int    `yaml:"timeout_secs" env:"LLM_TIMEOUT_SECS" env-default:"30"`
}

// RedisConfig configures the result cache backend (C11).
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	TTLSecs  int    `yaml:"ttl_secs" env:"REDIS_TTL" env-default:"3600"`
}

// Neo4jConfig configures the queryable graph store (C7/C8).
type Neo4jConfig struct {
	URI      string `yaml:"uri" env:"NEO4J_URI" env-default:"bolt://localhost:7687"`
	User     string `yaml:"-" env:"NEO4J_USER"`
	Password string `yaml:"-" env:"NEO4J_PASSWORD"`
}

// TrackerConfig configures the API-call cost tracker (C12).
type TrackerConfig struct {
	RecordsDir       string  `yaml:"records_dir" env:"TRACKER_RECORDS_DIR" env-default:"./artifacts/_tracker"`
	DefaultCostPer1K float64 `yaml:"default_cost_per_1k_tokens" env:"TRACKER_DEFAULT_COST_PER_1K" env-default:"0.001"`
}

// LedgerConfig configures the engine's own Postgres-backed run ledger.
type LedgerConfig struct {
	Host           string `yaml:"host" env:"LEDGER_PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"LEDGER_PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"LEDGER_PGUSER" env-default:"schemaintel"`
	Password       string `yaml:"-" env:"LEDGER_PGPASSWORD"`
	Database       string `yaml:"database" env:"LEDGER_PGDATABASE" env-default:"schemaintel"`
	SSLMode        string `yaml:"ssl_mode" env:"LEDGER_PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"LEDGER_MIGRATIONS_PATH" env-default:"./migrations"`
}

// ConnectionString returns a PostgreSQL connection string for the ledger
// database.
func (c LedgerConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Load reads configuration from config.yaml with environment variable
// overrides.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate enforces the config_missing fatal-at-startup policy for fields
// that have no safe default.
func (c *Config) validate() error {
	if c.LLM.Backend != "openai" && c.LLM.Backend != "anthropic" {
		return fmt.Errorf("llm.backend must be \"openai\" or \"anthropic\", got %q", c.LLM.Backend)
	}
	return nil
}
