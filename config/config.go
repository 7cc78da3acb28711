// Package config provides configuration loading and hot reload.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/okenlabs/docweave/core/schema"
)

// Config is the root configuration structure.
type Config struct {
	Databases map[string]DatabaseConfig `yaml:"databases"`
	Schemas   SchemaConfig              `yaml:"schemas"`
	Logging   LoggingConfig             `yaml:"logging"`
}

// DatabaseConfig configures one named document database connection.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "memory"
	Path   string `yaml:"path"`   // sqlite file path
	Name   string `yaml:"name"`
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
}

// Descriptor returns the connection descriptor schemas address this
// database by.
func (c DatabaseConfig) Descriptor() schema.DB {
	return schema.DB{Name: c.Name, Host: c.Host, Port: c.Port}
}

// SchemaConfig configures where record type declarations are loaded from.
type SchemaConfig struct {
	Dir string `yaml:"dir"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	DOCWEAVE_SCHEMA_DIR - Directory of record type declarations
//	DOCWEAVE_DB_DRIVER  - Default database driver: sqlite or memory
//	DOCWEAVE_DB_PATH    - SQLite database path (default: docweave.db)
//	DOCWEAVE_DB_HOST    - Default database host (default: localhost)
//	DOCWEAVE_DB_PORT    - Default database port (default: 27017)
//	DOCWEAVE_LOG_LEVEL  - Log level: debug, info, warn, error (default: info)
//	DOCWEAVE_LOG_FORMAT - Log format: json or console (default: json)
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback tries to load from file, falls back to environment
// variables when the file is absent.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// applyEnvOverrides applies DOCWEAVE_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DOCWEAVE_SCHEMA_DIR"); v != "" {
		cfg.Schemas.Dir = v
	}
	if v := os.Getenv("DOCWEAVE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DOCWEAVE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	def := cfg.Databases["default"]
	changed := false
	if v := os.Getenv("DOCWEAVE_DB_DRIVER"); v != "" {
		def.Driver = v
		changed = true
	}
	if v := os.Getenv("DOCWEAVE_DB_PATH"); v != "" {
		def.Path = v
		changed = true
	}
	if v := os.Getenv("DOCWEAVE_DB_HOST"); v != "" {
		def.Host = v
		changed = true
	}
	if v := os.Getenv("DOCWEAVE_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			def.Port = port
			changed = true
		}
	}
	if changed {
		if cfg.Databases == nil {
			cfg.Databases = make(map[string]DatabaseConfig)
		}
		cfg.Databases["default"] = def
	}
}

func setDefaults(cfg *Config) {
	if cfg.Databases == nil {
		cfg.Databases = make(map[string]DatabaseConfig)
	}
	if _, ok := cfg.Databases["default"]; !ok {
		cfg.Databases["default"] = DatabaseConfig{}
	}
	for name, db := range cfg.Databases {
		if db.Driver == "" {
			db.Driver = "sqlite"
		}
		if db.Path == "" && db.Driver == "sqlite" {
			db.Path = "docweave.db"
		}
		if db.Host == "" {
			db.Host = "localhost"
		}
		if db.Port == 0 {
			db.Port = 27017
		}
		cfg.Databases[name] = db
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validate(cfg *Config) error {
	for name, db := range cfg.Databases {
		switch db.Driver {
		case "sqlite", "memory":
		default:
			return fmt.Errorf("database %q: unknown driver %q", name, db.Driver)
		}
	}
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log format %q", cfg.Logging.Format)
	}
	return nil
}
