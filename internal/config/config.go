package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the qfilter process configuration
type Config struct {
	SchemasDir string       `mapstructure:"schemas_dir"`
	MaxDepth   int          `mapstructure:"max_depth"`
	LogLevel   string       `mapstructure:"log_level"`
	Server     ServerConfig `mapstructure:"server"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Addr string `mapstructure:"addr"`

	// Database is the SQLite file queried by the records endpoint. Empty
	// disables the endpoint.
	Database string `mapstructure:"database"`
}

// Load loads the configuration from qfilter.yml or qfilter.yaml in dir.
// Environment variables prefixed with QFILTER_ override file values, with
// dots replaced by underscores (QFILTER_SERVER_ADDR).
func Load(dir string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("schemas_dir", "schemas")
	v.SetDefault("max_depth", 8)
	v.SetDefault("log_level", "info")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.database", "")

	v.SetConfigName("qfilter")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix("QFILTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// Level returns the slog level named by LogLevel.
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.MaxDepth < 1 {
		return fmt.Errorf("max_depth must be at least 1, got: %d", cfg.MaxDepth)
	}
	if strings.TrimSpace(cfg.SchemasDir) == "" {
		return fmt.Errorf("schemas_dir is required")
	}
	if cfg.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}
