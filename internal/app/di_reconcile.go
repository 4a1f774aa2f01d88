package app

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	categoryService "github.com/storesync/storesync/internal/category/service"
	"github.com/storesync/storesync/internal/config"
	"github.com/storesync/storesync/internal/database"
	marketplaceClient "github.com/storesync/storesync/internal/marketplace/client"
	marketplaceDomain "github.com/storesync/storesync/internal/marketplace/domain"
	reconcileRepository "github.com/storesync/storesync/internal/reconcile/repository"
	reconcileUsecase "github.com/storesync/storesync/internal/reconcile/usecase"
	storefrontDomain "github.com/storesync/storesync/internal/storefront/domain"
	"github.com/storesync/storesync/internal/storefront/shopify"
	"github.com/storesync/storesync/internal/storefront/woocommerce"
)

// CategoryResolver returns the resolver built from the category mapping file.
// A missing or malformed mapping is an errors.ErrMapping.
func (c *Container) CategoryResolver(ctx context.Context) (*categoryService.Resolver, error) {
	var err error
	c.categoryInit.Do(func() {
		c.categoryResolver, err = c.initCategoryResolver(ctx)
		if err != nil {
			c.initErrors["categoryResolver"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["categoryResolver"]; exists {
		return nil, storedErr
	}
	return c.categoryResolver, nil
}

// MarketplaceClient returns the marketplace read API client.
func (c *Container) MarketplaceClient() (marketplaceDomain.Client, error) {
	var err error
	c.marketplaceInit.Do(func() {
		c.marketplaceClient, err = c.initMarketplaceClient()
		if err != nil {
			c.initErrors["marketplaceClient"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["marketplaceClient"]; exists {
		return nil, storedErr
	}
	return c.marketplaceClient, nil
}

// StorefrontClient returns the storefront client of the configured platform.
func (c *Container) StorefrontClient() (storefrontDomain.Client, error) {
	var err error
	c.storefrontInit.Do(func() {
		c.storefrontClient, err = c.initStorefrontClient()
		if err != nil {
			c.initErrors["storefrontClient"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["storefrontClient"]; exists {
		return nil, storedErr
	}
	return c.storefrontClient, nil
}

// CursorRepository returns the sync cursor repository based on database driver.
func (c *Container) CursorRepository() (reconcileUsecase.CursorRepository, error) {
	var err error
	c.cursorInit.Do(func() {
		c.cursorRepository, err = c.initCursorRepository()
		if err != nil {
			c.initErrors["cursorRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["cursorRepository"]; exists {
		return nil, storedErr
	}
	return c.cursorRepository, nil
}

// BudgetRepository returns the request budget repository based on database driver.
func (c *Container) BudgetRepository() (reconcileUsecase.BudgetRepository, error) {
	var err error
	c.budgetInit.Do(func() {
		c.budgetRepository, err = c.initBudgetRepository()
		if err != nil {
			c.initErrors["budgetRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["budgetRepository"]; exists {
		return nil, storedErr
	}
	return c.budgetRepository, nil
}

// Ingestor returns the marketplace event ingestor.
func (c *Container) Ingestor() (*reconcileUsecase.Ingestor, error) {
	var err error
	c.ingestorInit.Do(func() {
		c.ingestor, err = c.initIngestor()
		if err != nil {
			c.initErrors["ingestor"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["ingestor"]; exists {
		return nil, storedErr
	}
	return c.ingestor, nil
}

// Planner returns the reconciliation planner.
func (c *Container) Planner(ctx context.Context) (*reconcileUsecase.Planner, error) {
	var err error
	c.plannerInit.Do(func() {
		c.planner, err = c.initPlanner(ctx)
		if err != nil {
			c.initErrors["planner"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["planner"]; exists {
		return nil, storedErr
	}
	return c.planner, nil
}

// Dispatcher returns the storefront job dispatcher.
func (c *Container) Dispatcher() (*reconcileUsecase.Dispatcher, error) {
	var err error
	c.dispatcherInit.Do(func() {
		c.dispatcher, err = c.initDispatcher()
		if err != nil {
			c.initErrors["dispatcher"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["dispatcher"]; exists {
		return nil, storedErr
	}
	return c.dispatcher, nil
}

// Recovery returns the startup recovery controller.
func (c *Container) Recovery() (*reconcileUsecase.Recovery, error) {
	var err error
	c.recoveryInit.Do(func() {
		c.recovery, err = c.initRecovery()
		if err != nil {
			c.initErrors["recovery"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["recovery"]; exists {
		return nil, storedErr
	}
	return c.recovery, nil
}

// Engine returns the reconciliation engine with every component wired in.
func (c *Container) Engine(ctx context.Context) (*reconcileUsecase.Engine, error) {
	var err error
	c.engineInit.Do(func() {
		c.engine, err = c.initEngine(ctx)
		if err != nil {
			c.initErrors["engine"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["engine"]; exists {
		return nil, storedErr
	}
	return c.engine, nil
}

func (c *Container) initCategoryResolver(ctx context.Context) (*categoryService.Resolver, error) {
	mapping, err := categoryService.Load(ctx, c.config.CategoryMapURL, c.config.CategoryMapKey)
	if err != nil {
		return nil, err
	}
	resolver, err := categoryService.NewResolver(mapping)
	if err != nil {
		return nil, err
	}
	c.Logger().Info("category mapping loaded",
		slog.Int("mapped", resolver.Mapped()),
		slog.Int64("fallback", resolver.Fallback()),
	)
	return resolver, nil
}

func (c *Container) initMarketplaceClient() (marketplaceDomain.Client, error) {
	client, err := marketplaceClient.New(marketplaceClient.Options{
		BaseURL:  c.config.MarketplaceBaseURL,
		Token:    c.config.MarketplaceToken,
		PageSize: c.config.MarketplacePageSize,
		Timeout:  c.config.MarketplaceTimeout,
		Limiter:  newLimiter(c.config.MarketplaceRequestsPerSec, c.config.MarketplaceBurst),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create marketplace client: %w", err)
	}
	return client, nil
}

// initStorefrontClient builds the adapter without a limiter: the dispatcher
// paces storefront calls with storefrontLimiter before every job.
func (c *Container) initStorefrontClient() (storefrontDomain.Client, error) {
	c.storefrontLimiter = newLimiter(c.config.StorefrontRequestsPerSec, c.config.StorefrontBurst)

	var (
		client storefrontDomain.Client
		err    error
	)
	switch c.config.StorefrontPlatform {
	case config.StorefrontWooCommerce:
		client, err = woocommerce.New(woocommerce.Options{
			BaseURL:        c.config.StorefrontBaseURL,
			ConsumerKey:    c.config.StorefrontKey,
			ConsumerSecret: c.config.StorefrontSecret,
			Timeout:        c.config.StorefrontTimeout,
		})
	case config.StorefrontShopify:
		client, err = shopify.New(shopify.Options{
			Shop:        c.config.StorefrontBaseURL,
			APIKey:      c.config.StorefrontKey,
			APISecret:   c.config.StorefrontSecret,
			AccessToken: c.config.StorefrontToken,
			Timeout:     c.config.StorefrontTimeout,
		})
	default:
		return nil, fmt.Errorf("unsupported storefront platform: %s", c.config.StorefrontPlatform)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create storefront client: %w", err)
	}
	return client, nil
}

func (c *Container) initCursorRepository() (reconcileUsecase.CursorRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for cursor repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverSQLite:
		return reconcileRepository.NewSQLiteCursorRepository(db), nil
	case database.DriverMySQL:
		return reconcileRepository.NewMySQLCursorRepository(db), nil
	case database.DriverPostgres:
		return reconcileRepository.NewPostgreSQLCursorRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initBudgetRepository() (reconcileUsecase.BudgetRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for budget repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverSQLite:
		return reconcileRepository.NewSQLiteBudgetRepository(db), nil
	case database.DriverMySQL:
		return reconcileRepository.NewMySQLBudgetRepository(db), nil
	case database.DriverPostgres:
		return reconcileRepository.NewPostgreSQLBudgetRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initIngestor() (*reconcileUsecase.Ingestor, error) {
	client, err := c.MarketplaceClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get marketplace client for ingestor: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for ingestor: %w", err)
	}

	var budget *reconcileUsecase.RequestBudget
	if c.config.MarketplaceDailyRequestLimit > 0 {
		budgets, err := c.BudgetRepository()
		if err != nil {
			return nil, fmt.Errorf("failed to get budget repository for ingestor: %w", err)
		}
		budget = reconcileUsecase.NewRequestBudget(budgets, c.config.MarketplaceDailyRequestLimit)
	}
	return reconcileUsecase.NewIngestor(client, budget, businessMetrics, c.Logger()), nil
}

func (c *Container) initPlanner(ctx context.Context) (*reconcileUsecase.Planner, error) {
	store, err := c.ItemStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get item store for planner: %w", err)
	}
	resolver, err := c.CategoryResolver(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get category resolver for planner: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for planner: %w", err)
	}
	return reconcileUsecase.NewPlanner(store, resolver, businessMetrics, c.Logger()), nil
}

func (c *Container) initDispatcher() (*reconcileUsecase.Dispatcher, error) {
	store, err := c.ItemStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get item store for dispatcher: %w", err)
	}
	client, err := c.StorefrontClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get storefront client for dispatcher: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for dispatcher: %w", err)
	}

	dispatcherConfig := reconcileUsecase.DispatcherConfig{
		Workers:     c.config.WorkerPoolSize,
		QueueSize:   c.config.WorkerQueueSize,
		MaxAttempts: c.config.RetryMaxAttempts,
		BaseDelay:   c.config.RetryBaseDelay,
		MaxDelay:    c.config.RetryMaxDelay,
	}

	return reconcileUsecase.NewDispatcher(
		dispatcherConfig,
		store,
		client,
		c.storefrontLimiter,
		businessMetrics,
		c.Logger(),
	), nil
}

func (c *Container) initRecovery() (*reconcileUsecase.Recovery, error) {
	store, err := c.ItemStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get item store for recovery: %w", err)
	}
	client, err := c.StorefrontClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get storefront client for recovery: %w", err)
	}
	dispatcher, err := c.Dispatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to get dispatcher for recovery: %w", err)
	}
	return reconcileUsecase.NewRecovery(store, client, dispatcher, c.Logger()), nil
}

func (c *Container) initEngine(ctx context.Context) (*reconcileUsecase.Engine, error) {
	ingestor, err := c.Ingestor()
	if err != nil {
		return nil, fmt.Errorf("failed to get ingestor for engine: %w", err)
	}
	planner, err := c.Planner(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get planner for engine: %w", err)
	}
	dispatcher, err := c.Dispatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to get dispatcher for engine: %w", err)
	}
	recovery, err := c.Recovery()
	if err != nil {
		return nil, fmt.Errorf("failed to get recovery for engine: %w", err)
	}
	store, err := c.ItemStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get item store for engine: %w", err)
	}
	cursors, err := c.CursorRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get cursor repository for engine: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for engine: %w", err)
	}

	engineConfig := reconcileUsecase.EngineConfig{
		PollInterval:    c.config.PollInterval,
		InitialLookback: c.config.InitialLookback,
	}

	return reconcileUsecase.NewEngine(
		engineConfig,
		ingestor,
		planner,
		dispatcher,
		recovery,
		store,
		cursors,
		businessMetrics,
		c.Logger(),
	), nil
}

// newLimiter returns a token bucket allowing perSecond calls with the given
// burst. A burst below one is raised to one so Wait can ever succeed.
func newLimiter(perSecond float64, burst int) *rate.Limiter {
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}
