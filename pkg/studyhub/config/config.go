// Package config loads process configuration from defaults, an optional YAML
// file, an optional .env file and STUDYHUB_* environment variables, in that
// order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPath is the YAML file read when no path is given
	DefaultPath = "config.yaml"
	envPrefix   = "STUDYHUB_"
)

// Config holds all application configuration
type Config struct {
	Port      string         `yaml:"port"`
	SecretKey string         `yaml:"secret_key"`
	Database  DatabaseConfig `yaml:"database"`
	Log       LogConfig      `yaml:"log"`
}

// DatabaseConfig selects the store. A postgres:// URL or key=value DSN opens
// PostgreSQL; anything else is a SQLite path.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// LogConfig configures logrus and optional file rotation
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // text or json
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Default returns the built-in configuration. It has no secret key.
func Default() Config {
	return Config{
		Port:     "8080",
		Database: DatabaseConfig{DSN: "studyhub.db"},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load builds the configuration. A missing YAML or .env file is not an error;
// a malformed one is. path may be empty to use STUDYHUB_CONFIG or DefaultPath.
func Load(path string) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	if path == "" {
		path = getEnv("CONFIG", DefaultPath)
	}
	if err := cfg.loadFile(path); err != nil {
		return cfg, err
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.SecretKey = getEnv("SECRET_KEY", c.SecretKey)
	c.Database.DSN = getEnv("DATABASE_DSN", c.Database.DSN)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
	c.Log.File = getEnv("LOG_FILE", c.Log.File)
}

// Validate rejects configurations the server cannot start with
func (c Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.SecretKey) == "" {
		problems = append(problems, "secret_key is required (set "+envPrefix+"SECRET_KEY)")
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		problems = append(problems, "database.dsn is required")
	}
	if strings.TrimSpace(c.Port) == "" {
		problems = append(problems, "port is required")
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("log.format %q must be text or json", c.Log.Format))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Addr is the listen address for the HTTP server
func (c Config) Addr() string {
	return ":" + c.Port
}

// getEnv retrieves STUDYHUB_<key> or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(envPrefix + key); exists && value != "" {
		return value
	}
	return defaultValue
}
