// Package config loads tabq settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config represents the application configuration
type Config struct {
	// Storage
	DBPath string

	// Row limits
	QueryLimit       int
	PreviewLimit     int
	EditPreviewLimit int

	// Reading
	ReadWorkers int

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadConfig loads configuration from environment variables. Values from
// the .env files are used only for variables not already set; a missing
// file is not an error.
func LoadConfig(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	cfg := &Config{
		DBPath:           getEnv("TABQ_DB_PATH", "tabq.db"),
		QueryLimit:       getEnvAsInt("TABQ_QUERY_LIMIT", 1000),
		PreviewLimit:     getEnvAsInt("TABQ_PREVIEW_LIMIT", 100),
		EditPreviewLimit: getEnvAsInt("TABQ_EDIT_PREVIEW_LIMIT", 50),
		ReadWorkers:      getEnvAsInt("TABQ_READ_WORKERS", 4),
		LogLevel:         getEnv("TABQ_LOG_LEVEL", "warn"),
		LogFormat:        getEnv("TABQ_LOG_FORMAT", "console"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures all configuration values are usable
func (c *Config) Validate() error {
	if c.QueryLimit < 0 {
		return errors.New("query limit cannot be negative")
	}
	if c.PreviewLimit <= 0 {
		return errors.New("preview limit must be positive")
	}
	if c.EditPreviewLimit <= 0 {
		return errors.New("edit preview limit must be positive")
	}
	if c.ReadWorkers <= 0 {
		return errors.New("read workers must be positive")
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format %q (must be json or console)", c.LogFormat)
	}
	return nil
}

// NewLogger builds a logger writing to stderr at the configured level and
// encoding.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q", c.LogLevel)
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.Encoding = strings.ToLower(c.LogFormat)
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	if zc.Encoding == "console" {
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	return zc.Build()
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
