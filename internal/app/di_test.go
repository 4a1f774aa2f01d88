package app

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/storesync/storesync/internal/config"
	"github.com/storesync/storesync/internal/errors"
	"github.com/storesync/storesync/internal/metrics"
	"github.com/storesync/storesync/internal/testutil"
)

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		LogLevel:                     "error",
		DBDriver:                     "sqlite",
		DBConnectionString:           testutil.SQLiteDSN(filepath.Join(t.TempDir(), "app.db")),
		ServerHost:                   "localhost",
		ServerPort:                   8080,
		PollInterval:                 time.Minute,
		InitialLookback:              24 * time.Hour,
		WorkerPoolSize:               2,
		WorkerQueueSize:              8,
		RetryMaxAttempts:             3,
		RetryBaseDelay:               10 * time.Millisecond,
		RetryMaxDelay:                time.Second,
		MarketplaceBaseURL:           "http://marketplace.invalid",
		MarketplacePageSize:          100,
		MarketplaceRequestsPerSec:    5,
		MarketplaceBurst:             1,
		MarketplaceDailyRequestLimit: 5000,
		StorefrontPlatform:           config.StorefrontWooCommerce,
		StorefrontBaseURL:            "http://shop.invalid",
		StorefrontRequestsPerSec:     5,
		StorefrontBurst:              1,
		MetricsNamespace:             "storesync",
		MetricsPort:                  8081,
	}
}

func writeCategoryMap(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	content := `
categories:
  - storefront_id: 1
    storefront_name: Uncategorized
    fallback: true
    marketplace_ids: []
  - storefront_id: 5
    storefront_name: Toys
    marketplace_ids: ["MC-100"]
`
	if err := os.WriteFile(filepath.Join(dir, "categories.yaml"), []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write category map: %v", err)
	}
	return "file://" + filepath.ToSlash(dir)
}

// TestNewContainer verifies that a new container can be created with a valid configuration.
func TestNewContainer(t *testing.T) {
	cfg := sqliteConfig(t)

	container := NewContainer(cfg)

	if container == nil {
		t.Fatal("expected non-nil container")
	}

	if container.Config() != cfg {
		t.Error("container config does not match provided config")
	}
}

// TestContainerLogger verifies that the logger can be retrieved from the container.
func TestContainerLogger(t *testing.T) {
	container := NewContainer(&config.Config{LogLevel: "debug"})
	logger := container.Logger()

	if logger == nil {
		t.Fatal("expected non-nil logger")
	}

	if logger2 := container.Logger(); logger != logger2 {
		t.Error("expected same logger instance on multiple calls")
	}
}

// TestContainerLoggerDefaultLevel verifies that an unknown level still yields a logger.
func TestContainerLoggerDefaultLevel(t *testing.T) {
	container := NewContainer(&config.Config{LogLevel: "invalid"})

	if container.Logger() == nil {
		t.Fatal("expected non-nil logger")
	}
}

// TestContainerInitializationErrors verifies that initialization errors are stored and replayed.
func TestContainerInitializationErrors(t *testing.T) {
	container := NewContainer(&config.Config{DBDriver: "invalid_driver"})

	_, err := container.DB()
	if err == nil {
		t.Fatal("expected error when connecting with invalid config")
	}

	_, err2 := container.DB()
	if err2 == nil {
		t.Error("expected error on second call to DB()")
	}

	if _, err := container.ItemStore(); err == nil {
		t.Error("expected item store to fail without a database")
	}
}

// TestContainerLazyInitialization verifies that components are only initialized when accessed.
func TestContainerLazyInitialization(t *testing.T) {
	container := NewContainer(sqliteConfig(t))

	if container.logger != nil {
		t.Error("expected logger to be nil before first access")
	}
	if container.db != nil {
		t.Error("expected database to be nil before first access")
	}

	if container.Logger() == nil {
		t.Fatal("expected non-nil logger")
	}
	if container.logger == nil {
		t.Error("expected logger to be initialized after access")
	}
	if container.db != nil {
		t.Error("expected database to stay nil")
	}
}

// TestContainerShutdown verifies that the shutdown method can be called safely.
func TestContainerShutdown(t *testing.T) {
	container := NewContainer(&config.Config{LogLevel: "info"})

	if err := container.Shutdown(context.TODO()); err != nil {
		t.Errorf("unexpected error during shutdown: %v", err)
	}
}

func TestContainerItemComponents(t *testing.T) {
	container := NewContainer(sqliteConfig(t))
	defer func() { _ = container.Shutdown(context.Background()) }()

	store, err := container.ItemStore()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store == nil {
		t.Fatal("expected non-nil item store")
	}

	store2, err := container.ItemStore()
	if err != nil || store != store2 {
		t.Error("expected the same item store on multiple calls")
	}

	if _, err := container.ItemHandler(); err != nil {
		t.Errorf("unexpected error building item handler: %v", err)
	}

	if _, err := container.CursorRepository(); err != nil {
		t.Errorf("unexpected error building cursor repository: %v", err)
	}

	if _, err := container.BudgetRepository(); err != nil {
		t.Errorf("unexpected error building budget repository: %v", err)
	}
	if _, err := container.Ingestor(); err != nil {
		t.Errorf("unexpected error building ingestor: %v", err)
	}
}

func TestContainerUnsupportedDriver(t *testing.T) {
	cfg := sqliteConfig(t)
	container := NewContainer(cfg)
	defer func() { _ = container.Shutdown(context.Background()) }()

	// Open the sqlite connection, then ask for repositories of another driver.
	if _, err := container.DB(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg.DBDriver = "oracle"

	if _, err := container.ItemRepository(); err == nil {
		t.Error("expected unsupported driver error for item repository")
	}
	if _, err := container.CursorRepository(); err == nil {
		t.Error("expected unsupported driver error for cursor repository")
	}
	if _, err := container.BudgetRepository(); err == nil {
		t.Error("expected unsupported driver error for budget repository")
	}
}

func TestContainerMetricsDisabled(t *testing.T) {
	container := NewContainer(sqliteConfig(t))

	businessMetrics, err := container.BusinessMetrics()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := businessMetrics.(*metrics.NoOpBusinessMetrics); !ok {
		t.Errorf("expected no-op business metrics, got %T", businessMetrics)
	}

	metricsServer, err := container.MetricsServer()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if metricsServer != nil {
		t.Error("expected no metrics server when metrics are disabled")
	}
}

func TestContainerMetricsEnabled(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.MetricsEnabled = true
	container := NewContainer(cfg)
	defer func() { _ = container.Shutdown(context.Background()) }()

	provider, err := container.MetricsProvider()
	if err != nil || provider == nil {
		t.Fatalf("expected metrics provider, got %v (err %v)", provider, err)
	}

	metricsServer, err := container.MetricsServer()
	if err != nil || metricsServer == nil {
		t.Fatalf("expected metrics server, got %v (err %v)", metricsServer, err)
	}

	if _, err := container.ItemUseCase(); err != nil {
		t.Errorf("unexpected error building item use case: %v", err)
	}
}

func TestContainerStorefrontClient(t *testing.T) {
	t.Run("woocommerce", func(t *testing.T) {
		container := NewContainer(sqliteConfig(t))

		client, err := container.StorefrontClient()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client.Platform() != "woocommerce" {
			t.Errorf("expected woocommerce client, got %s", client.Platform())
		}
		if container.storefrontLimiter == nil {
			t.Error("expected the storefront limiter to be created")
		}
	})

	t.Run("shopify requires an access token", func(t *testing.T) {
		cfg := sqliteConfig(t)
		cfg.StorefrontPlatform = config.StorefrontShopify
		cfg.StorefrontBaseURL = "example-shop"
		container := NewContainer(cfg)

		if _, err := container.StorefrontClient(); err == nil {
			t.Error("expected error without a shopify access token")
		}
	})

	t.Run("shopify", func(t *testing.T) {
		cfg := sqliteConfig(t)
		cfg.StorefrontPlatform = config.StorefrontShopify
		cfg.StorefrontBaseURL = "example-shop"
		cfg.StorefrontToken = "shpat_test"
		container := NewContainer(cfg)

		client, err := container.StorefrontClient()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client.Platform() != "shopify" {
			t.Errorf("expected shopify client, got %s", client.Platform())
		}
	})

	t.Run("unknown platform", func(t *testing.T) {
		cfg := sqliteConfig(t)
		cfg.StorefrontPlatform = "magento"
		container := NewContainer(cfg)

		if _, err := container.StorefrontClient(); err == nil {
			t.Error("expected error for an unknown platform")
		}
	})
}

func TestContainerCategoryResolver(t *testing.T) {
	t.Run("missing mapping is a mapping error", func(t *testing.T) {
		cfg := sqliteConfig(t)
		cfg.CategoryMapURL = "file://" + filepath.ToSlash(t.TempDir())
		cfg.CategoryMapKey = "categories.yaml"
		container := NewContainer(cfg)

		_, err := container.CategoryResolver(context.Background())
		if !stderrors.Is(err, errors.ErrMapping) {
			t.Fatalf("expected mapping error, got %v", err)
		}

		if _, err := container.Engine(context.Background()); !stderrors.Is(err, errors.ErrMapping) {
			t.Errorf("expected engine to fail with the mapping error, got %v", err)
		}
	})

	t.Run("loads the mapping", func(t *testing.T) {
		cfg := sqliteConfig(t)
		cfg.CategoryMapURL = writeCategoryMap(t)
		cfg.CategoryMapKey = "categories.yaml"
		container := NewContainer(cfg)

		resolver, err := container.CategoryResolver(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := resolver.Resolve("MC-100"); got != 5 {
			t.Errorf("expected MC-100 to resolve to 5, got %d", got)
		}
		if got := resolver.Resolve("MC-999"); got != 1 {
			t.Errorf("expected fallback 1, got %d", got)
		}
	})
}

func TestContainerEngine(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.CategoryMapURL = writeCategoryMap(t)
	cfg.CategoryMapKey = "categories.yaml"
	container := NewContainer(cfg)
	defer func() { _ = container.Shutdown(context.Background()) }()

	engine, err := container.Engine(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if engine == nil {
		t.Fatal("expected non-nil engine")
	}

	engine2, err := container.Engine(context.Background())
	if err != nil || engine != engine2 {
		t.Error("expected the same engine on multiple calls")
	}

	if _, err := container.HTTPServer(); err != nil {
		t.Errorf("unexpected error building http server: %v", err)
	}
}
