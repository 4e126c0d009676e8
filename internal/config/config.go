// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir          string // Base directory for the snapshot database (always absolute)
	LogLevel         string
	Port             int
	DevMode          bool
	CacheTTL         time.Duration // Uniform TTL for analysis cache entries
	BatchConcurrency int           // Max in-flight symbol analyses during a batch
	ClientTimeout    time.Duration // Upper bound for a single market-data call
	HistoryRange     string        // Market-data range used for analysis (e.g. "1y")
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("SIGNALFOLIO_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:          absDataDir,
		Port:             getEnvAsInt("PORT", 8090),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		CacheTTL:         time.Duration(getEnvAsInt("CACHE_TTL_SECONDS", 300)) * time.Second,
		BatchConcurrency: getEnvAsInt("BATCH_CONCURRENCY", 8),
		ClientTimeout:    time.Duration(getEnvAsInt("CLIENT_TIMEOUT_SECONDS", 30)) * time.Second,
		HistoryRange:     getEnv("HISTORY_RANGE", "1y"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present and sane
func (c *Config) Validate() error {
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache TTL must be positive, got %s", c.CacheTTL)
	}
	if c.BatchConcurrency <= 0 {
		return fmt.Errorf("batch concurrency must be positive, got %d", c.BatchConcurrency)
	}
	if c.ClientTimeout <= 0 {
		return fmt.Errorf("client timeout must be positive, got %s", c.ClientTimeout)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
