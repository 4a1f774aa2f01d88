package usecase

import (
	"context"

	"github.com/storesync/storesync/internal/item/domain"
)

// maxListLimit bounds a single listing page.
const maxListLimit = 500

type itemUseCase struct {
	store Store
}

// NewItemUseCase creates the operator item use case.
func NewItemUseCase(store Store) ItemUseCase {
	return &itemUseCase{store: store}
}

// List returns a page of items. A zero limit defaults to 50.
func (u *itemUseCase) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Item, error) {
	if filter.LifecycleState != "" && !filter.LifecycleState.Valid() {
		return nil, domain.ErrInvalidListFilter
	}
	if filter.SyncState != "" && !filter.SyncState.Valid() {
		return nil, domain.ErrInvalidListFilter
	}
	if filter.Offset < 0 || filter.Limit < 0 {
		return nil, domain.ErrInvalidListFilter
	}
	if filter.Limit == 0 {
		filter.Limit = 50
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}

	return u.store.List(ctx, filter)
}

// Get returns one item.
func (u *itemUseCase) Get(ctx context.Context, marketplaceID string) (*domain.Item, error) {
	return u.store.Get(ctx, marketplaceID)
}

// Retry requeues a failed item.
func (u *itemUseCase) Retry(ctx context.Context, marketplaceID string) (*domain.Item, error) {
	return u.store.Mutate(ctx, marketplaceID, func(item *domain.Item) error {
		if item.SyncState != domain.SyncStateFailed {
			return domain.ErrItemNotFailed
		}
		item.Requeue()
		return nil
	})
}
