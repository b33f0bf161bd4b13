// Package config loads service configuration from an optional YAML file
// overlaid with environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the analytics services.
type Config struct {
	// HTTP API
	ListenAddr string `yaml:"listen_addr" validate:"required"`

	// Storage
	DatabasePath string `yaml:"database_path" validate:"required"`
	DatabaseURL  string `yaml:"database_url"` // optional reporting warehouse

	// Data and model directories
	DataDir  string `yaml:"data_dir" validate:"required"`
	ModelDir string `yaml:"model_dir" validate:"required"`

	// Simulator
	NATSURL         string        `yaml:"nats_url"`
	PublishInterval time.Duration `yaml:"publish_interval" validate:"min=1s"`
	MetricsAddr     string        `yaml:"metrics_addr"`
}

// Load reads configuration: .env file if present, then config file if
// CONFIG_FILE points at one, then environment variables on top.
func Load() (*Config, error) {
	// Missing .env is fine; containers pass real env vars instead.
	_ = godotenv.Load()

	cfg := &Config{
		ListenAddr:      getEnv("LISTEN_ADDR", ":8080"),
		DatabasePath:    getEnv("SQLITE_DATABASE", "data/transit.db"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		DataDir:         getEnv("DATA_DIR", "data/csv"),
		ModelDir:        getEnv("MODEL_DIR", "data/models"),
		NATSURL:         getEnv("NATS_URL", "nats://localhost:4222"),
		PublishInterval: time.Duration(getEnvInt("PUBLISH_INTERVAL", 30)) * time.Second,
		MetricsAddr:     getEnv("METRICS_ADDR", ":9090"),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
