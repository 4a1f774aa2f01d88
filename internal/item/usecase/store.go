package usecase

import (
	"context"
	"errors"
	"maps"
	"time"

	"github.com/storesync/storesync/internal/database"
	apperrors "github.com/storesync/storesync/internal/errors"
	"github.com/storesync/storesync/internal/item/domain"
)

// ErrUnchanged is returned by a MutateFunc that decided nothing needs to be written.
var ErrUnchanged = errors.New("item unchanged")

type itemStore struct {
	txManager database.TxManager
	repo      ItemRepository
	now       func() time.Time
}

// NewStore creates a Store backed by repo.
func NewStore(txManager database.TxManager, repo ItemRepository) Store {
	return &itemStore{
		txManager: txManager,
		repo:      repo,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// Get returns the item stored under marketplaceID.
func (s *itemStore) Get(ctx context.Context, marketplaceID string) (*domain.Item, error) {
	item, err := s.repo.Get(ctx, marketplaceID)
	if err != nil {
		return nil, storageError(err, "failed to get item")
	}
	return item, nil
}

// Upsert writes the full item.
func (s *itemStore) Upsert(ctx context.Context, item *domain.Item) error {
	now := s.now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	err := s.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Save(ctx, item); err != nil {
			return err
		}
		return s.repo.ReplaceMetadata(ctx, item.MarketplaceID, item.Metadata)
	})
	return storageError(err, "failed to upsert item")
}

// Mutate applies fn to the locked item and persists it. Metadata rows are only
// rewritten when the content hash or the specifics changed.
func (s *itemStore) Mutate(ctx context.Context, marketplaceID string, fn MutateFunc) (*domain.Item, error) {
	var (
		result *domain.Item
		fnErr  error
	)

	err := s.txManager.WithTx(ctx, func(ctx context.Context) error {
		item, err := s.repo.GetForUpdate(ctx, marketplaceID)
		if err != nil {
			return err
		}

		previousHash := item.ContentHash
		previousSpecifics := item.Metadata.Specifics
		if err := fn(item); err != nil {
			if errors.Is(err, ErrUnchanged) {
				result = item
				return nil
			}
			fnErr = err
			return err
		}

		item.UpdatedAt = s.now()
		if err := s.repo.Save(ctx, item); err != nil {
			return err
		}
		if item.ContentHash != previousHash || !maps.Equal(item.Metadata.Specifics, previousSpecifics) {
			if err := s.repo.ReplaceMetadata(ctx, item.MarketplaceID, item.Metadata); err != nil {
				return err
			}
		}

		result = item
		return nil
	})
	if err != nil {
		if fnErr != nil && errors.Is(err, fnErr) {
			return nil, err
		}
		return nil, storageError(err, "failed to mutate item")
	}

	return result, nil
}

// List returns a snapshot of matching items.
func (s *itemStore) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Item, error) {
	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, storageError(err, "failed to list items")
	}
	return items, nil
}

// storageError classifies persistence failures as ErrStorage, leaving not found
// untouched.
func storageError(err error, message string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrItemNotFound) || errors.Is(err, apperrors.ErrStorage) {
		return err
	}
	return apperrors.Storage(err, message)
}
