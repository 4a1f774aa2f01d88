// Package usecase defines the item store used by the reconciliation engine and the
// operator use cases exposed over HTTP and the CLI.
package usecase

import (
	"context"

	"github.com/storesync/storesync/internal/item/domain"
)

// ItemRepository defines the interface for item persistence operations.
type ItemRepository interface {
	Get(ctx context.Context, marketplaceID string) (*domain.Item, error)
	// GetForUpdate must be called inside a transaction.
	GetForUpdate(ctx context.Context, marketplaceID string) (*domain.Item, error)
	Save(ctx context.Context, item *domain.Item) error
	ReplaceMetadata(ctx context.Context, marketplaceID string, metadata domain.Metadata) error
	List(ctx context.Context, filter domain.ListFilter) ([]*domain.Item, error)
}

// MutateFunc changes an item in place. Returning ErrUnchanged skips the write.
type MutateFunc func(item *domain.Item) error

// Store is the durable keyed record of every known item. Every write is atomic
// for a single item.
type Store interface {
	// Get returns domain.ErrItemNotFound when no item is stored under the id.
	Get(ctx context.Context, marketplaceID string) (*domain.Item, error)
	// Upsert writes the item row and its metadata in one transaction.
	Upsert(ctx context.Context, item *domain.Item) error
	// Mutate runs fn on the locked current state of the item and writes the result.
	Mutate(ctx context.Context, marketplaceID string, fn MutateFunc) (*domain.Item, error)
	// List returns a finite snapshot of the items matching filter.
	List(ctx context.Context, filter domain.ListFilter) ([]*domain.Item, error)
}

// ItemUseCase defines the operator facing item operations.
type ItemUseCase interface {
	List(ctx context.Context, filter domain.ListFilter) ([]*domain.Item, error)
	Get(ctx context.Context, marketplaceID string) (*domain.Item, error)
	// Retry moves a failed item back to pending. The engine's resume sweep picks it up.
	Retry(ctx context.Context, marketplaceID string) (*domain.Item, error)
}
