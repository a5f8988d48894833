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

// CacheBackend selects the cache store implementation.
type CacheBackend string

const (
	// BackendMemory - in-process map store, the default
	BackendMemory CacheBackend = "memory"
	// BackendRedis - shared Redis store for multi-instance deployments
	BackendRedis CacheBackend = "redis"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for the accounts database (always absolute)
	Port     int
	LogLevel string
	DevMode  bool

	// Upstream market-data provider (Finnhub-compatible REST API)
	ProviderBaseURL string
	ProviderAPIKey  string
	UpstreamTimeout time.Duration

	// Logo enrichment provider (optional; search works without it)
	LogoAPIKey string

	// Cache behaviour
	QuoteTTL        time.Duration
	SearchTTL       time.Duration
	CacheBackend    CacheBackend
	CleanupSchedule string // cron expression for the expired-entry sweep

	// Redis (only used when CacheBackend == BackendRedis)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Shared secret for privileged tier-change calls
	AdminKey string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("QUOTEGATE_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	backend := BackendMemory
	if getEnv("CACHE_BACKEND", "memory") == string(BackendRedis) {
		backend = BackendRedis
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("PORT", 8001),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DevMode:  getEnvAsBool("DEV_MODE", false),

		ProviderBaseURL: getEnv("PROVIDER_BASE_URL", "https://finnhub.io/api/v1"),
		ProviderAPIKey:  getEnv("PROVIDER_API_KEY", ""),
		UpstreamTimeout: time.Duration(getEnvAsInt("UPSTREAM_TIMEOUT_SECONDS", 10)) * time.Second,

		LogoAPIKey: getEnv("LOGO_API_KEY", ""),

		QuoteTTL:        time.Duration(getEnvAsInt("QUOTE_TTL_SECONDS", 10)) * time.Second,
		SearchTTL:       time.Duration(getEnvAsInt("SEARCH_TTL_SECONDS", 300)) * time.Second,
		CacheBackend:    backend,
		CleanupSchedule: getEnv("CACHE_CLEANUP_SCHEDULE", "@hourly"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		AdminKey: getEnv("ADMIN_KEY", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration invariants that must hold at startup.
// Missing credentials are NOT validation errors - the service starts and
// surfaces upstream failures per request instead (Warnings reports them).
func (c *Config) Validate() error {
	if c.QuoteTTL <= 0 {
		return fmt.Errorf("QUOTE_TTL_SECONDS must be positive, got %s", c.QuoteTTL)
	}
	if c.SearchTTL <= 0 {
		return fmt.Errorf("SEARCH_TTL_SECONDS must be positive, got %s", c.SearchTTL)
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT_SECONDS must be positive, got %s", c.UpstreamTimeout)
	}
	return nil
}

// Warnings returns startup warnings for missing optional configuration.
// These are logged loudly at startup rather than deferred silently to first use.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.ProviderAPIKey == "" {
		warnings = append(warnings, "PROVIDER_API_KEY is not set; upstream quote and search calls will fail")
	}
	if c.LogoAPIKey == "" {
		warnings = append(warnings, "LOGO_API_KEY is not set; search results will not carry logo URLs")
	}
	if c.AdminKey == "" {
		warnings = append(warnings, "ADMIN_KEY is not set; the tier-change endpoint is disabled")
	}
	return warnings
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
