/**
 * @description
 * Configuration loader for the Asinwatch backend.
 * Responsible for reading environment variables, setting defaults, and performing strict validation.
 *
 * @dependencies
 * - github.com/joho/godotenv: For loading .env files
 * - standard "os": For reading env vars
 *
 * @notes
 * - Fails fast if critical variables (DATABASE_URL) are missing.
 * - Rejects obvious placeholder credentials before any network call is made.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server ServerConfig
	DB     DBConfig
	Redis  RedisConfig
	Keepa  KeepaConfig
	Sync   SyncConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port string
	Env  string // "development" or "production"
}

// DBConfig holds PostgreSQL settings
type DBConfig struct {
	URL string
}

// RedisConfig holds Redis settings. URL may be empty; the cache is simply
// disabled then.
type RedisConfig struct {
	URL string
}

// KeepaConfig holds Keepa API settings
type KeepaConfig struct {
	APIKey string
	APIURL string
	Domain int // 1 = amazon.com (US)
}

// SyncConfig holds batch sync job settings
type SyncConfig struct {
	PlatformName      string
	Workers           int
	RequestsPerSecond float64
	MaxFailureDetails int
}

// placeholderCredentials are values people leave in .env templates.
// Matching is case-insensitive.
var placeholderCredentials = []string{
	"changeme",
	"your-api-key",
	"your_api_key",
	"your_keepa_api_key",
	"xxx",
}

// Load reads .env file and populates the Config struct
func Load() (*Config, error) {
	// Attempt to load .env, but don't crash if it fails (prod might inject env vars directly)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("GO_ENV", "development"),
		},
		DB: DBConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		Keepa: KeepaConfig{
			APIKey: sanitizeCredential(getEnv("KEEPA_API_KEY", "")),
			APIURL: getEnv("KEEPA_API_URL", "https://api.keepa.com"),
			Domain: getEnvAsInt("KEEPA_DOMAIN", 1),
		},
		Sync: SyncConfig{
			PlatformName:      getEnv("PLATFORM_NAME", "amazon_us"),
			Workers:           getEnvAsInt("SYNC_WORKERS", 4),
			RequestsPerSecond: getEnvAsFloat("SYNC_RPS", 1.0),
			MaxFailureDetails: getEnvAsInt("SYNC_MAX_FAILURE_DETAILS", 25),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks for required variables
func validate(cfg *Config) error {
	if cfg.DB.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if IsPlaceholder(cfg.Keepa.APIKey) {
		return fmt.Errorf("KEEPA_API_KEY looks like a placeholder value, refusing to start")
	}
	if cfg.Sync.Workers < 1 {
		cfg.Sync.Workers = 1
	}
	if cfg.Sync.RequestsPerSecond <= 0 {
		cfg.Sync.RequestsPerSecond = 1.0
	}
	if cfg.Sync.MaxFailureDetails < 1 {
		cfg.Sync.MaxFailureDetails = 25
	}
	return nil
}

// RequireKeepaKey enforces the credential rules the sync job needs.
// The API server can run without a Keepa key; the sync job cannot.
func (c *Config) RequireKeepaKey() error {
	if c.Keepa.APIKey == "" {
		return fmt.Errorf("KEEPA_API_KEY is required")
	}
	if IsPlaceholder(c.Keepa.APIKey) {
		return fmt.Errorf("KEEPA_API_KEY looks like a placeholder value, refusing to start")
	}
	return nil
}

// IsPlaceholder reports whether a credential is an obvious template value
func IsPlaceholder(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return false
	}
	for _, p := range placeholderCredentials {
		if v == p {
			return true
		}
	}
	return false
}

// Helper to get env var with default
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func sanitizeCredential(value string) string {
	trimmed := strings.TrimSpace(value)
	return strings.Trim(trimmed, "\"")
}

// Helper to get env var as int
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

// Helper to get env var as float
func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return fallback
}
