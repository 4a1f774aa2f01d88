package dto

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/storesync/storesync/internal/item/domain"
)

func TestMapItemToResponse(t *testing.T) {
	storefrontID := int64(42)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	item := &domain.Item{
		MarketplaceID:         "MP-1",
		StorefrontID:          &storefrontID,
		CategoryMarketplaceID: "MC-100",
		LifecycleState:        domain.LifecycleSynced,
		SyncState:             domain.SyncStateDone,
		Operation:             domain.OperationCreate,
		Metadata: domain.Metadata{
			Title:    "Tin robot",
			Price:    decimal.RequireFromString("30.5"),
			Currency: "USD",
			Quantity: 1,
		},
		FirstSyncedAt: &now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	response := MapItemToResponse(item)

	assert.Equal(t, "MP-1", response.MarketplaceID)
	assert.Equal(t, &storefrontID, response.StorefrontID)
	assert.Equal(t, "synced", response.LifecycleState)
	assert.Equal(t, "done", response.SyncState)
	assert.Equal(t, "create", response.Operation)
	assert.Equal(t, "30.50", response.Price)
	assert.Equal(t, "Tin robot", response.Title)
	assert.Nil(t, response.LastError)
}

func TestMapItemsToListResponse(t *testing.T) {
	assert.NotNil(t, MapItemsToListResponse(nil).Data)
	assert.Len(t, MapItemsToListResponse([]*domain.Item{{MarketplaceID: "a"}, {MarketplaceID: "b"}}).Data, 2)
}
