/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config loads service configuration from an optional YAML file with
// environment variable overrides (prefix SNIPURL_).
package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/tomoncle/snipurl/database"
)

const envPrefix = "snipurl"

// ServerConfig tunes the HTTP listener.
type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	LogRequests bool   `yaml:"log_requests"`
}

// ShortenerConfig tunes short-code generation and the create dedupe policy.
type ShortenerConfig struct {
	CodeLength      int `yaml:"code_length"`
	MaxCodeAttempts int `yaml:"max_code_attempts"`
	// DedupeExistingURL controls what shortening an already-known url does:
	// true returns the existing mapping, false rejects it as a conflict.
	DedupeExistingURL bool `yaml:"dedupe_existing_url"`
}

// AnalyticsConfig configures the optional AMQP access-event publisher.
// An empty URL disables publishing entirely.
type AnalyticsConfig struct {
	AMQPURL string `yaml:"amqp_url"`
	Queue   string `yaml:"queue"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Config is the full service configuration.
type Config struct {
	Server           ServerConfig              `yaml:"server"`
	Database         database.ConnectionConfig `yaml:"database"`
	MigrateOnStartup bool                      `yaml:"migrate_on_startup"`
	Shortener        ShortenerConfig           `yaml:"shortener"`
	Analytics        AnalyticsConfig           `yaml:"analytics"`
	Log              LogConfig                 `yaml:"log"`
}

// Default returns the configuration used when no file and no env vars are set.
func Default() *Config {
	return &Config{
		Server:           ServerConfig{Host: "0.0.0.0", Port: 8080, LogRequests: true},
		Database:         *database.DefaultConnectionConfig(),
		MigrateOnStartup: true,
		Shortener: ShortenerConfig{
			CodeLength:        6,
			MaxCodeAttempts:   10,
			DedupeExistingURL: true,
		},
		Analytics: AnalyticsConfig{Queue: "shorturl.access"},
		Log:       LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration in three layers: defaults, then the YAML
// file at path (skipped when path is empty or the file does not exist), then
// SNIPURL_* environment variables, e.g. SNIPURL_SERVER_PORT or
// SNIPURL_DATABASE_DBNAME.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the invariants the rest of the service relies on.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d is out of range", c.Server.Port)
	}
	switch c.Database.Type {
	case "postgres", "postgresql", "mysql", "sqlite", "sqlite3":
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}
	if c.Shortener.CodeLength < 1 {
		return fmt.Errorf("shortener code length must be positive, got %d", c.Shortener.CodeLength)
	}
	if c.Shortener.MaxCodeAttempts < 1 {
		return fmt.Errorf("shortener max code attempts must be positive, got %d", c.Shortener.MaxCodeAttempts)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format: %s", c.Log.Format)
	}
	return nil
}
