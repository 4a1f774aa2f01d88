package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/storesync/storesync/internal/errors"
)

func validMapping() Mapping {
	return Mapping{Categories: []Entry{
		{StorefrontID: 1, StorefrontName: "Uncategorized", Fallback: true},
		{StorefrontID: 5, StorefrontName: "Toys", MarketplaceIDs: []string{"MC-100"}},
	}}
}

func TestMapping_Validate(t *testing.T) {
	assert.NoError(t, validMapping().Validate())

	tests := []struct {
		name   string
		mutate func(m *Mapping)
	}{
		{"empty table", func(m *Mapping) { m.Categories = nil }},
		{"no fallback", func(m *Mapping) { m.Categories[0].Fallback = false }},
		{"two fallbacks", func(m *Mapping) { m.Categories[1].Fallback = true }},
		{"missing storefront id", func(m *Mapping) { m.Categories[1].StorefrontID = 0 }},
		{"blank name", func(m *Mapping) { m.Categories[1].StorefrontName = "  " }},
		{"duplicate storefront id", func(m *Mapping) { m.Categories[1].StorefrontID = 1 }},
		{"empty marketplace id", func(m *Mapping) { m.Categories[1].MarketplaceIDs = []string{""} }},
		{"marketplace id mapped twice", func(m *Mapping) {
			m.Categories = append(m.Categories, Entry{
				StorefrontID: 9, StorefrontName: "Games", MarketplaceIDs: []string{"MC-100"},
			})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validMapping()
			tt.mutate(&m)
			err := m.Validate()
			assert.ErrorIs(t, err, errors.ErrMapping)
		})
	}
}
