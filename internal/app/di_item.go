package app

import (
	"fmt"

	"github.com/storesync/storesync/internal/database"
	itemHTTP "github.com/storesync/storesync/internal/item/http"
	itemRepository "github.com/storesync/storesync/internal/item/repository"
	itemUsecase "github.com/storesync/storesync/internal/item/usecase"
)

// ItemRepository returns the item repository based on database driver.
func (c *Container) ItemRepository() (itemUsecase.ItemRepository, error) {
	var err error
	c.itemRepositoryInit.Do(func() {
		c.itemRepository, err = c.initItemRepository()
		if err != nil {
			c.initErrors["itemRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["itemRepository"]; exists {
		return nil, storedErr
	}
	return c.itemRepository, nil
}

// ItemStore returns the transactional item store shared by the engine and the
// operator use cases.
func (c *Container) ItemStore() (itemUsecase.Store, error) {
	var err error
	c.itemStoreInit.Do(func() {
		c.itemStore, err = c.initItemStore()
		if err != nil {
			c.initErrors["itemStore"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["itemStore"]; exists {
		return nil, storedErr
	}
	return c.itemStore, nil
}

// ItemUseCase returns the operator item use case.
func (c *Container) ItemUseCase() (itemUsecase.ItemUseCase, error) {
	var err error
	c.itemUseCaseInit.Do(func() {
		c.itemUseCase, err = c.initItemUseCase()
		if err != nil {
			c.initErrors["itemUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["itemUseCase"]; exists {
		return nil, storedErr
	}
	return c.itemUseCase, nil
}

// ItemHandler returns the item HTTP handler.
func (c *Container) ItemHandler() (*itemHTTP.ItemHandler, error) {
	var err error
	c.itemHandlerInit.Do(func() {
		c.itemHandler, err = c.initItemHandler()
		if err != nil {
			c.initErrors["itemHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["itemHandler"]; exists {
		return nil, storedErr
	}
	return c.itemHandler, nil
}

func (c *Container) initItemRepository() (itemUsecase.ItemRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for item repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverSQLite:
		return itemRepository.NewSQLiteItemRepository(db), nil
	case database.DriverMySQL:
		return itemRepository.NewMySQLItemRepository(db), nil
	case database.DriverPostgres:
		return itemRepository.NewPostgreSQLItemRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initItemStore() (itemUsecase.Store, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for item store: %w", err)
	}

	repo, err := c.ItemRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get item repository for item store: %w", err)
	}

	return itemUsecase.NewStore(txManager, repo), nil
}

func (c *Container) initItemUseCase() (itemUsecase.ItemUseCase, error) {
	store, err := c.ItemStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get item store for item use case: %w", err)
	}

	baseUseCase := itemUsecase.NewItemUseCase(store)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for item use case: %w", err)
		}
		return itemUsecase.NewItemUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

func (c *Container) initItemHandler() (*itemHTTP.ItemHandler, error) {
	useCase, err := c.ItemUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get item use case for item handler: %w", err)
	}
	return itemHTTP.NewItemHandler(useCase, c.Logger()), nil
}
