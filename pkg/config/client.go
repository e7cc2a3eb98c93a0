package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/schema-intel/pkg/apperrors"
)

// ClientDatabase is the `database:` block of a per-client YAML config.
// Credentials are resolved from named environment variables, never stored
// inline, matching the reference implementation's env-backed property
// convention.
type ClientDatabase struct {
	Driver      string `yaml:"driver"` // "postgres" or "mssql"
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	UserEnv     string `yaml:"user_env"`
	PasswordEnv string `yaml:"password_env"`
	Name        string `yaml:"name"`
}

// User resolves the database user from the named environment variable.
// Missing env is a hard failure at first use, per the spec's config_missing
// policy, not at config-load time.
func (d ClientDatabase) User() (string, error) {
	return lookupEnv(d.UserEnv, "database.user_env")
}

// Password resolves the database password from the named environment
// variable.
func (d ClientDatabase) Password() (string, error) {
	return lookupEnv(d.PasswordEnv, "database.password_env")
}

func lookupEnv(name, field string) (string, error) {
	if name == "" {
		return "", apperrors.New(apperrors.KindConfigMissing, fmt.Sprintf("%s is not set in client config", field))
	}
	v, ok := os.LookupEnv(name)
	if !ok {
		return "", apperrors.New(apperrors.KindConfigMissing, fmt.Sprintf("environment variable %s (referenced by %s) is not set", name, field))
	}
	return v, nil
}

// ClientConfig is one client's YAML configuration document.
type ClientConfig struct {
	ClientID string          `yaml:"client_id"`
	Database ClientDatabase  `yaml:"database"`
}

// LoadClientConfig reads and parses a client config YAML file.
func LoadClientConfig(path string) (*ClientConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindConfigMissing, err, "read client config "+path)
	}
	var cfg ClientConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.KindConfigMissing, err, "parse client config "+path)
	}
	if cfg.ClientID == "" {
		return nil, apperrors.New(apperrors.KindConfigMissing, "client_id is required in "+path)
	}
	if cfg.Database.Driver == "" {
		return nil, apperrors.New(apperrors.KindConfigMissing, "database.driver is required in "+path)
	}
	return &cfg, nil
}
