// Package domain defines the storefront write API the dispatcher drives and the
// product payload derived from an item.
package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	itemDomain "github.com/storesync/storesync/internal/item/domain"
)

// referenceNamespace scopes client references to this service.
var referenceNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://storesync/marketplace-item"))

// ClientReference returns the stable reference stored on the storefront product
// of a marketplace item. The same marketplace id always yields the same reference.
func ClientReference(marketplaceID string) string {
	return uuid.NewSHA1(referenceNamespace, []byte(marketplaceID)).String()
}

// Product is the storefront representation of an item.
type Product struct {
	Reference            string
	Title                string
	Description          string
	SKU                  string
	Price                decimal.Decimal
	Currency             string
	Quantity             int
	CategoryID           int64
	ConditionName        string
	ConditionDescription string
	PictureURLs          []string
	// ReplaceImages asks the storefront to upload PictureURLs. When false the
	// product keeps the images it already has.
	ReplaceImages bool
}

// ProductFromItem builds the product payload for an item. Item specifics are
// never part of it.
func ProductFromItem(item *itemDomain.Item) Product {
	m := item.Metadata
	product := Product{
		Reference:            ClientReference(item.MarketplaceID),
		Title:                m.Title,
		Description:          m.Description,
		SKU:                  m.SKU,
		Price:                m.Price,
		Currency:             m.Currency,
		Quantity:             m.Quantity,
		ConditionName:        m.ConditionName,
		ConditionDescription: m.ConditionDescription,
		PictureURLs:          m.PictureURLs,
		ReplaceImages:        true,
	}
	if item.CategoryStorefrontID != nil {
		product.CategoryID = *item.CategoryStorefrontID
	}
	return product
}

// UpdateFromItem builds the payload of an update. Images are only uploaded
// again when the picture URLs differ from the ones last pushed, since
// storefronts store every uploaded image as new media.
func UpdateFromItem(item *itemDomain.Item) (Product, error) {
	product := ProductFromItem(item)
	picturesHash, err := item.Metadata.PicturesHash()
	if err != nil {
		return Product{}, err
	}
	product.ReplaceImages = picturesHash != item.SyncedPicturesHash
	return product, nil
}

// Client is the storefront write API. Errors are classified with the remote
// error taxonomy of internal/errors.
type Client interface {
	// Platform names the storefront for rate limiting, logs and metrics.
	Platform() string
	// CreateProduct creates a product and returns its storefront id.
	CreateProduct(ctx context.Context, product Product) (int64, error)
	// UpdateProduct overwrites the product content. It is idempotent.
	UpdateProduct(ctx context.Context, id int64, product Product) error
	// MarkSold takes the product off sale. It is idempotent.
	MarkSold(ctx context.Context, id int64) error
	// FindByReference looks a product up by its client reference.
	FindByReference(ctx context.Context, reference string) (id int64, found bool, err error)
}
