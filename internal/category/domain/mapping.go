// Package domain defines the category mapping table that translates marketplace
// categories into storefront categories.
package domain

import (
	"fmt"

	validation "github.com/jellydator/validation"

	"github.com/storesync/storesync/internal/errors"
	customValidation "github.com/storesync/storesync/internal/validation"
)

// Entry is one storefront category and the marketplace categories that map to it.
type Entry struct {
	StorefrontID   int64    `yaml:"storefront_id"   json:"storefront_id"`
	StorefrontName string   `yaml:"storefront_name" json:"storefront_name"`
	MarketplaceIDs []string `yaml:"marketplace_ids" json:"marketplace_ids"`
	// Fallback marks the bucket for marketplace categories no entry lists.
	Fallback bool `yaml:"fallback" json:"fallback"`
}

// Validate checks a single entry.
func (e Entry) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.StorefrontID, validation.Required, validation.Min(int64(1))),
		validation.Field(&e.StorefrontName, validation.Required, customValidation.NotBlank),
		validation.Field(&e.MarketplaceIDs,
			validation.Each(validation.Required, customValidation.NoWhitespace),
		),
	)
}

// Mapping is the full category table.
type Mapping struct {
	Categories []Entry `yaml:"categories" json:"categories"`
}

// Validate checks every entry, that exactly one entry is the fallback and that no
// storefront or marketplace id is listed twice. Failures wrap ErrMapping.
func (m Mapping) Validate() error {
	if err := validation.ValidateStruct(&m,
		validation.Field(&m.Categories, validation.Required),
	); err != nil {
		return errors.Wrap(errors.ErrMapping, err.Error())
	}

	fallbacks := 0
	storefrontIDs := make(map[int64]bool, len(m.Categories))
	marketplaceIDs := make(map[string]int64)

	for i, entry := range m.Categories {
		if err := entry.Validate(); err != nil {
			return errors.Wrapf(errors.ErrMapping, "categories[%d]: %v", i, err)
		}
		if entry.Fallback {
			fallbacks++
		}
		if storefrontIDs[entry.StorefrontID] {
			return errors.Wrapf(errors.ErrMapping, "storefront category %d listed twice", entry.StorefrontID)
		}
		storefrontIDs[entry.StorefrontID] = true

		for _, id := range entry.MarketplaceIDs {
			if other, ok := marketplaceIDs[id]; ok {
				return errors.Wrapf(errors.ErrMapping,
					"marketplace category %q mapped to both %d and %d", id, other, entry.StorefrontID)
			}
			marketplaceIDs[id] = entry.StorefrontID
		}
	}

	if fallbacks != 1 {
		return errors.Wrap(errors.ErrMapping, fmt.Sprintf("expected exactly one fallback category, found %d", fallbacks))
	}

	return nil
}
