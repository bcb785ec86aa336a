package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the catalog harmonization service
type Config struct {
	// Server
	Port        string
	Environment string

	// Database
	DatabaseURL string

	// Redis (stats cache, optional)
	RedisURL string

	// NATS (audit events, optional)
	NATSURL string

	// Credential encryption key, 32 bytes hex-encoded
	EncryptionKey string

	// Sync Settings
	SyncPageSize    int
	SyncMaxRetries  int
	SyncRetryDelay  time.Duration
	SyncHTTPTimeout time.Duration

	// Rate Limiting
	DefaultRateLimit int // requests per second against remote platforms

	// Harmonization
	PreviewSampleSize int
}

// Load loads configuration from environment variables
func Load() *Config {
	databaseURL := getEnv("DATABASE_URL", "")
	if databaseURL == "" {
		dbHost := getEnv("DB_HOST", "localhost")
		dbPort := getEnv("DB_PORT", "5432")
		dbUser := getEnv("DB_USER", "postgres")
		dbPassword := getEnv("DB_PASSWORD", "postgres")
		dbName := getEnv("DB_NAME", "catalog_harmonization")
		dbSSLMode := getEnv("DB_SSLMODE", "disable")

		databaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			dbUser, dbPassword, dbHost, dbPort, dbName, dbSSLMode)
	}

	config := &Config{
		Port:        getEnv("PORT", "8000"),
		Environment: getEnv("ENVIRONMENT", "development"),
		DatabaseURL: databaseURL,

		RedisURL: getEnv("REDIS_URL", ""),
		NATSURL:  getEnv("NATS_URL", ""),

		EncryptionKey: getEnv("CREDENTIALS_ENCRYPTION_KEY", ""),

		// Sync Settings
		SyncPageSize:    getEnvAsInt("SYNC_PAGE_SIZE", 100),
		SyncMaxRetries:  getEnvAsInt("SYNC_MAX_RETRIES", 3),
		SyncRetryDelay:  getEnvAsDuration("SYNC_RETRY_DELAY", 2*time.Second),
		SyncHTTPTimeout: getEnvAsDuration("SYNC_HTTP_TIMEOUT", 30*time.Second),

		// Rate Limiting
		DefaultRateLimit: getEnvAsInt("DEFAULT_RATE_LIMIT", 5),

		// Harmonization
		PreviewSampleSize: getEnvAsInt("PREVIEW_SAMPLE_SIZE", 10),
	}

	// Validate required fields
	if config.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	if config.EncryptionKey == "" {
		log.Println("Warning: CREDENTIALS_ENCRYPTION_KEY not set, store credentials will be stored in plaintext")
	}

	return config
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}
