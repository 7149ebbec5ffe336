// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds all server configuration.
type Config struct {
	Port         string
	FrontendURL  string
	DBPath       string
	AppNamespace string
	TokenSecret  string
	TokenTTL     time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		FrontendURL:  getEnv("FRONTEND_URL", ""),
		DBPath:       getEnv("DB_PATH", "./data/connector.db"),
		AppNamespace: getEnv("APP_NAMESPACE", "world-connector"),
		TokenSecret:  getEnv("TOKEN_SECRET", "world-connector-dev-secret"),
		TokenTTL:     getEnvDuration("TOKEN_TTL", 24*time.Hour),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.AppNamespace == "" {
		return fmt.Errorf("APP_NAMESPACE cannot be empty")
	}
	if len(c.TokenSecret) < 16 {
		return fmt.Errorf("TOKEN_SECRET must be at least 16 characters")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be > 0")
	}
	return nil
}

// ConnectorConfig holds the headless client configuration.
type ConnectorConfig struct {
	ServerURL           string
	BootstrapCredential string
}

// LoadConnector reads the headless client configuration from environment
// variables. An empty BOOTSTRAP_CREDENTIAL means anonymous sign-in.
func LoadConnector() (*ConnectorConfig, error) {
	cfg := &ConnectorConfig{
		ServerURL:           getEnv("SERVER_URL", "http://localhost:8080"),
		BootstrapCredential: getEnv("BOOTSTRAP_CREDENTIAL", ""),
	}

	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("invalid configuration: SERVER_URL cannot be empty")
	}
	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
