package dto

import (
	"time"

	"github.com/storesync/storesync/internal/item/domain"
)

// ItemResponse represents an item in API responses.
type ItemResponse struct {
	MarketplaceID         string     `json:"marketplace_id"`
	StorefrontID          *int64     `json:"storefront_id"`
	CategoryMarketplaceID string     `json:"category_marketplace_id"`
	CategoryStorefrontID  *int64     `json:"category_storefront_id"`
	LifecycleState        string     `json:"lifecycle_state"`
	SyncState             string     `json:"sync_state"`
	Operation             string     `json:"operation,omitempty"`
	AttemptCount          int        `json:"attempt_count"`
	LastError             *string    `json:"last_error"`
	Title                 string     `json:"title"`
	SKU                   string     `json:"sku"`
	Price                 string     `json:"price"`
	Currency              string     `json:"currency"`
	Quantity              int        `json:"quantity"`
	ContentHash           string     `json:"content_hash"`
	SyncedHash            string     `json:"synced_hash"`
	FirstSyncedAt         *time.Time `json:"first_synced_at"`
	SoldAt                *time.Time `json:"sold_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// MapItemToResponse converts a domain item into an API response.
func MapItemToResponse(item *domain.Item) ItemResponse {
	return ItemResponse{
		MarketplaceID:         item.MarketplaceID,
		StorefrontID:          item.StorefrontID,
		CategoryMarketplaceID: item.CategoryMarketplaceID,
		CategoryStorefrontID:  item.CategoryStorefrontID,
		LifecycleState:        string(item.LifecycleState),
		SyncState:             string(item.SyncState),
		Operation:             string(item.Operation),
		AttemptCount:          item.AttemptCount,
		LastError:             item.LastError,
		Title:                 item.Metadata.Title,
		SKU:                   item.Metadata.SKU,
		Price:                 item.Metadata.Price.StringFixed(2),
		Currency:              item.Metadata.Currency,
		Quantity:              item.Metadata.Quantity,
		ContentHash:           item.ContentHash,
		SyncedHash:            item.SyncedHash,
		FirstSyncedAt:         item.FirstSyncedAt,
		SoldAt:                item.SoldAt,
		CreatedAt:             item.CreatedAt,
		UpdatedAt:             item.UpdatedAt,
	}
}

// ListItemsResponse represents a page of items.
type ListItemsResponse struct {
	Data []ItemResponse `json:"data"`
}

// MapItemsToListResponse converts domain items to a list response.
func MapItemsToListResponse(items []*domain.Item) ListItemsResponse {
	data := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		data = append(data, MapItemToResponse(item))
	}
	return ListItemsResponse{Data: data}
}
