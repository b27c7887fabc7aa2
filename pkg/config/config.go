package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all engine configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string
	Currency string

	// Quote / nonce
	NonceTTL             time.Duration
	NonceGCInterval      time.Duration
	QuoteToleranceBP     int64  // relative tolerance in basis points of the quoted price
	QuoteToleranceAbsMin string // absolute tolerance floor, decimal string

	// Intents
	IntentTTL           time.Duration
	IntentSweepInterval time.Duration

	// Settlement workers
	SettlementMode     string // "demo" or "chain"
	WorkerCount        int
	WorkerPollInterval time.Duration
	AdapterTimeout     time.Duration
	StuckSubmittedAge  time.Duration

	// Rate limiting
	RateWalletPerSec  float64
	RateWalletBurst   int
	RateListingPerSec float64
	RateListingBurst  int

	// Events
	EventBufferSize int

	// Storage
	StorageMode  string // "postgres" or "memory"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),
		Currency: getEnvOrDefault("CURRENCY", "USDC"),

		// Quote defaults. The nonce TTL bounds quote staleness to one client
		// round trip; tolerance bounds drift inside that window.
		NonceTTL:             getDurationOrDefault("NONCE_TTL", 15*time.Second),
		NonceGCInterval:      getDurationOrDefault("NONCE_GC_INTERVAL", 60*time.Second),
		QuoteToleranceBP:     int64(getIntOrDefault("QUOTE_TOLERANCE_BP", 50)),
		QuoteToleranceAbsMin: getEnvOrDefault("QUOTE_TOLERANCE_ABS_MIN", "0.01"),

		// Intent defaults
		IntentTTL:           getDurationOrDefault("INTENT_TTL", 2*time.Minute),
		IntentSweepInterval: getDurationOrDefault("INTENT_SWEEP_INTERVAL", 30*time.Second),

		// Settlement defaults
		SettlementMode:     getEnvOrDefault("SETTLEMENT_MODE", "demo"),
		WorkerCount:        getIntOrDefault("WORKER_COUNT", 4),
		WorkerPollInterval: getDurationOrDefault("WORKER_POLL_INTERVAL", 250*time.Millisecond),
		AdapterTimeout:     getDurationOrDefault("ADAPTER_TIMEOUT", 30*time.Second),
		StuckSubmittedAge:  getDurationOrDefault("STUCK_SUBMITTED_AGE", 5*time.Minute),

		// Rate limit defaults
		RateWalletPerSec:  getFloat64OrDefault("RATE_WALLET_PER_SEC", 5.0),
		RateWalletBurst:   getIntOrDefault("RATE_WALLET_BURST", 10),
		RateListingPerSec: getFloat64OrDefault("RATE_LISTING_PER_SEC", 2.0),
		RateListingBurst:  getIntOrDefault("RATE_LISTING_BURST", 4),

		// Event defaults
		EventBufferSize: getIntOrDefault("EVENT_BUFFER_SIZE", 256),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "memory"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "auction"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "auction123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "auction_engine"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.NonceTTL <= 0 {
		return fmt.Errorf("NONCE_TTL must be positive, got %s", c.NonceTTL)
	}

	if c.IntentTTL <= 0 {
		return fmt.Errorf("INTENT_TTL must be positive, got %s", c.IntentTTL)
	}

	if c.QuoteToleranceBP < 0 || c.QuoteToleranceBP > 10_000 {
		return fmt.Errorf("QUOTE_TOLERANCE_BP must be between 0 and 10000, got %d", c.QuoteToleranceBP)
	}

	if c.WorkerCount < 1 {
		return fmt.Errorf("WORKER_COUNT must be at least 1, got %d", c.WorkerCount)
	}

	if c.SettlementMode != "demo" && c.SettlementMode != "chain" {
		return fmt.Errorf("SETTLEMENT_MODE must be 'demo' or 'chain', got %q", c.SettlementMode)
	}

	if c.StorageMode != "postgres" && c.StorageMode != "memory" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres' or 'memory', got %q", c.StorageMode)
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
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
