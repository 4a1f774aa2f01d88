// Package config provides application configuration through environment variables.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/allisson/go-env"
	validation "github.com/jellydator/validation"
	"github.com/joho/godotenv"

	customValidation "github.com/storesync/storesync/internal/validation"
)

// Storefront platforms supported by the dispatcher.
const (
	StorefrontWooCommerce = "woocommerce"
	StorefrontShopify     = "shopify"
)

// Config holds all application configuration.
type Config struct {
	// ServerEnabled indicates whether the operations HTTP API is started by the run command.
	ServerEnabled bool
	// ServerHost is the host address the operations API will bind to.
	ServerHost string
	// ServerPort is the port number the operations API will listen on.
	ServerPort int

	// DBDriver is the database driver to use ("sqlite", "mysql" or "postgres").
	DBDriver string
	// DBConnectionString is the connection string for the database.
	DBConnectionString string
	// DBMaxOpenConnections is the maximum number of open connections to the database.
	DBMaxOpenConnections int
	// DBMaxIdleConnections is the maximum number of idle connections in the database pool.
	DBMaxIdleConnections int
	// DBConnMaxLifetime is the maximum amount of time a connection may be reused.
	DBConnMaxLifetime time.Duration

	// LogLevel is the logging level (e.g., "debug", "info", "warn", "error").
	LogLevel string

	// PollInterval is the time between two reconciliation cycles.
	PollInterval time.Duration
	// InitialLookback is how far back the first poll reaches when no cursor is stored.
	InitialLookback time.Duration
	// WorkerPoolSize is the number of dispatcher workers.
	WorkerPoolSize int
	// WorkerQueueSize is the capacity of the dispatcher job queue.
	WorkerQueueSize int
	// RetryMaxAttempts is the retry ceiling after which an item is marked failed.
	RetryMaxAttempts int
	// RetryBaseDelay is the first per-job retry delay and the first pool pause on rate limits.
	RetryBaseDelay time.Duration
	// RetryMaxDelay caps both per-job retry delay and pool pauses.
	RetryMaxDelay time.Duration

	// MarketplaceBaseURL is the base URL of the marketplace read API.
	MarketplaceBaseURL string
	// MarketplaceToken is the bearer token for the marketplace read API.
	MarketplaceToken string
	// MarketplacePageSize is the number of entries requested per page (max 200).
	MarketplacePageSize int
	// MarketplaceRequestsPerSec is the marketplace call budget.
	MarketplaceRequestsPerSec float64
	// MarketplaceBurst is the marketplace burst size.
	MarketplaceBurst int
	// MarketplaceTimeout is the HTTP timeout for marketplace calls.
	MarketplaceTimeout time.Duration
	// MarketplaceDailyRequestLimit caps marketplace requests per UTC day (0 disables).
	MarketplaceDailyRequestLimit int

	// StorefrontPlatform selects the storefront adapter ("woocommerce" or "shopify").
	StorefrontPlatform string
	// StorefrontBaseURL is the shop URL (WooCommerce site URL or Shopify shop name).
	StorefrontBaseURL string
	// StorefrontKey is the consumer key (WooCommerce) or API key (Shopify).
	StorefrontKey string
	// StorefrontSecret is the consumer secret (WooCommerce) or API secret (Shopify).
	StorefrontSecret string
	// StorefrontToken is the Shopify admin access token.
	StorefrontToken string
	// StorefrontRequestsPerSec is the storefront call budget.
	StorefrontRequestsPerSec float64
	// StorefrontBurst is the storefront burst size.
	StorefrontBurst int
	// StorefrontTimeout is the HTTP timeout for storefront calls.
	StorefrontTimeout time.Duration

	// CategoryMapURL is the gocloud.dev/blob bucket URL holding the category mapping file.
	CategoryMapURL string
	// CategoryMapKey is the key of the category mapping file inside the bucket.
	CategoryMapKey string

	// RateLimitEnabled turns on per client IP rate limiting of the /v1 routes.
	RateLimitEnabled bool
	// RateLimitRequestsPerSec is the request budget of one client IP.
	RateLimitRequestsPerSec float64
	// RateLimitBurst is the burst size of one client IP.
	RateLimitBurst int

	// CORSEnabled indicates whether CORS is enabled.
	CORSEnabled bool
	// CORSAllowOrigins is a comma-separated list of allowed origins for CORS.
	CORSAllowOrigins string

	// MetricsEnabled indicates whether metrics collection is enabled.
	MetricsEnabled bool
	// MetricsNamespace is the namespace for the application metrics.
	MetricsNamespace string
	// MetricsPort is the port number for the metrics server.
	MetricsPort int
}

// Load loads configuration from environment variables and .env file.
func Load() *Config {
	// Try to load .env file recursively
	loadDotEnv()

	return &Config{
		// Server configuration
		ServerEnabled: env.GetBool("SERVER_ENABLED", true),
		ServerHost:    env.GetString("SERVER_HOST", "0.0.0.0"),
		ServerPort:    env.GetInt("SERVER_PORT", 8080),

		// Database configuration
		DBDriver: env.GetString("DB_DRIVER", "sqlite"),
		DBConnectionString: env.GetString(
			"DB_CONNECTION_STRING",
			"file:storesync.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite",
		),
		DBMaxOpenConnections: env.GetInt("DB_MAX_OPEN_CONNECTIONS", 25),
		DBMaxIdleConnections: env.GetInt("DB_MAX_IDLE_CONNECTIONS", 5),
		DBConnMaxLifetime:    env.GetDuration("DB_CONN_MAX_LIFETIME", 5, time.Minute),

		// Logging
		LogLevel: env.GetString("LOG_LEVEL", "info"),

		// Reconciliation
		PollInterval:     env.GetDuration("POLL_INTERVAL_SECONDS", 300, time.Second),
		InitialLookback:  env.GetDuration("INITIAL_LOOKBACK_DAYS", 30, 24*time.Hour),
		WorkerPoolSize:   env.GetInt("WORKER_POOL_SIZE", 4),
		WorkerQueueSize:  env.GetInt("WORKER_QUEUE_SIZE", 256),
		RetryMaxAttempts: env.GetInt("RETRY_MAX_ATTEMPTS", 5),
		RetryBaseDelay:   env.GetDuration("RETRY_BASE_DELAY_MS", 500, time.Millisecond),
		RetryMaxDelay:    env.GetDuration("RETRY_MAX_DELAY_SECONDS", 60, time.Second),

		// Marketplace
		MarketplaceBaseURL:           env.GetString("MARKETPLACE_BASE_URL", "http://localhost:9000"),
		MarketplaceToken:             env.GetString("MARKETPLACE_TOKEN", ""),
		MarketplacePageSize:          env.GetInt("MARKETPLACE_PAGE_SIZE", 100),
		MarketplaceRequestsPerSec:    env.GetFloat64("MARKETPLACE_REQUESTS_PER_SEC", 2.0),
		MarketplaceBurst:             env.GetInt("MARKETPLACE_BURST", 2),
		MarketplaceTimeout:           env.GetDuration("MARKETPLACE_TIMEOUT_SECONDS", 30, time.Second),
		MarketplaceDailyRequestLimit: env.GetInt("MARKETPLACE_DAILY_REQUEST_LIMIT", 5000),

		// Storefront
		StorefrontPlatform:       env.GetString("STOREFRONT_PLATFORM", StorefrontWooCommerce),
		StorefrontBaseURL:        env.GetString("STOREFRONT_BASE_URL", "http://localhost:8000"),
		StorefrontKey:            env.GetString("STOREFRONT_KEY", ""),
		StorefrontSecret:         env.GetString("STOREFRONT_SECRET", ""),
		StorefrontToken:          env.GetString("STOREFRONT_TOKEN", ""),
		StorefrontRequestsPerSec: env.GetFloat64("STOREFRONT_REQUESTS_PER_SEC", 2.0),
		StorefrontBurst:          env.GetInt("STOREFRONT_BURST", 4),
		StorefrontTimeout:        env.GetDuration("STOREFRONT_TIMEOUT_SECONDS", 60, time.Second),

		// Category mapping
		CategoryMapURL: env.GetString("CATEGORY_MAP_URL", "file:///etc/storesync"),
		CategoryMapKey: env.GetString("CATEGORY_MAP_KEY", "categories.yaml"),

		// Operations API rate limiting
		RateLimitEnabled:        env.GetBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequestsPerSec: env.GetFloat64("RATE_LIMIT_REQUESTS_PER_SEC", 10.0),
		RateLimitBurst:          env.GetInt("RATE_LIMIT_BURST", 20),

		// CORS
		CORSEnabled:      env.GetBool("CORS_ENABLED", false),
		CORSAllowOrigins: env.GetString("CORS_ALLOW_ORIGINS", ""),

		// Metrics
		MetricsEnabled:   env.GetBool("METRICS_ENABLED", true),
		MetricsNamespace: env.GetString("METRICS_NAMESPACE", "storesync"),
		MetricsPort:      env.GetInt("METRICS_PORT", 8081),
	}
}

// Validate checks the values the reconciliation engine cannot run without.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DBDriver, validation.Required, validation.In("sqlite", "mysql", "postgres")),
		validation.Field(&c.DBConnectionString, validation.Required),
		validation.Field(&c.PollInterval, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.WorkerPoolSize, validation.Required, validation.Min(1)),
		validation.Field(&c.WorkerQueueSize, validation.Required, validation.Min(1)),
		validation.Field(&c.RetryMaxAttempts, validation.Required, validation.Min(1)),
		validation.Field(&c.RetryBaseDelay, validation.Required),
		validation.Field(&c.RetryMaxDelay, validation.Required, validation.Min(c.RetryBaseDelay)),
		validation.Field(&c.MarketplaceBaseURL, validation.Required, customValidation.HTTPURL),
		validation.Field(&c.MarketplacePageSize, validation.Min(1), validation.Max(200)),
		validation.Field(&c.MarketplaceDailyRequestLimit, validation.Min(0)),
		validation.Field(&c.MarketplaceRequestsPerSec, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&c.StorefrontPlatform, validation.Required,
			validation.In(StorefrontWooCommerce, StorefrontShopify)),
		validation.Field(&c.StorefrontBaseURL, validation.Required),
		validation.Field(&c.StorefrontRequestsPerSec, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&c.CategoryMapURL, validation.Required),
		validation.Field(&c.CategoryMapKey, validation.Required),
	)
}

// GetGinMode returns the appropriate Gin mode based on log level.
func (c *Config) GetGinMode() string {
	switch c.LogLevel {
	case "debug":
		return "debug"
	case "info", "warn", "error":
		return "release"
	default:
		return "release"
	}
}

// loadDotEnv searches for a .env file recursively from the current directory
// up to the root directory and loads it if found.
func loadDotEnv() {
	// Get current working directory
	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	// Search for .env file recursively up the directory tree
	dir := cwd
	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			// .env file found, load it
			_ = godotenv.Load(envPath)
			return
		}

		// Move to parent directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root directory
			break
		}
		dir = parent
	}
}
