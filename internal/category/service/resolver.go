package service

import (
	"github.com/storesync/storesync/internal/category/domain"
)

// Resolver maps marketplace category ids to storefront category ids. It is
// read-only after construction and safe for concurrent use.
type Resolver struct {
	index    map[string]int64
	names    map[int64]string
	fallback int64
}

// NewResolver indexes a mapping. The mapping is validated first.
func NewResolver(mapping *domain.Mapping) (*Resolver, error) {
	if err := mapping.Validate(); err != nil {
		return nil, err
	}

	r := &Resolver{
		index: make(map[string]int64),
		names: make(map[int64]string, len(mapping.Categories)),
	}
	for _, entry := range mapping.Categories {
		r.names[entry.StorefrontID] = entry.StorefrontName
		if entry.Fallback {
			r.fallback = entry.StorefrontID
		}
		for _, id := range entry.MarketplaceIDs {
			r.index[id] = entry.StorefrontID
		}
	}

	return r, nil
}

// Resolve returns the storefront category for a marketplace category, or the
// fallback when none is mapped.
func (r *Resolver) Resolve(marketplaceCategoryID string) int64 {
	if id, ok := r.index[marketplaceCategoryID]; ok {
		return id
	}
	return r.fallback
}

// Fallback returns the fallback storefront category id.
func (r *Resolver) Fallback() int64 {
	return r.fallback
}

// Name returns the storefront category name.
func (r *Resolver) Name(storefrontID int64) string {
	return r.names[storefrontID]
}

// Mapped returns the number of marketplace categories with an explicit mapping.
func (r *Resolver) Mapped() int {
	return len(r.index)
}
