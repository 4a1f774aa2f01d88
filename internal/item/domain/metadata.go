package domain

import (
	"encoding/hex"
	"encoding/json"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/blake2b"
)

// Metadata is the listing content. Everything but Specifics is pushed to the
// storefront; specifics are kept locally and never uploaded.
type Metadata struct {
	Title                string            `json:"title"`
	Description          string            `json:"description"`
	SKU                  string            `json:"sku"`
	Price                decimal.Decimal   `json:"price"`
	Currency             string            `json:"currency"`
	Quantity             int               `json:"quantity"`
	ConditionName        string            `json:"condition_name"`
	ConditionDescription string            `json:"condition_description"`
	PictureURLs          []string          `json:"picture_urls"`
	Specifics            map[string]string `json:"specifics"`
}

// pushedContent is the part of Metadata that reaches the storefront.
type pushedContent struct {
	Title                string   `json:"title"`
	Description          string   `json:"description"`
	SKU                  string   `json:"sku"`
	Price                string   `json:"price"`
	Currency             string   `json:"currency"`
	Quantity             int      `json:"quantity"`
	ConditionName        string   `json:"condition_name"`
	ConditionDescription string   `json:"condition_description"`
	PictureURLs          []string `json:"picture_urls"`
}

// Hash returns the hex encoded BLAKE2b-256 digest of the pushed content.
// Specifics are excluded: a change there produces no storefront update.
func (m Metadata) Hash() (string, error) {
	pictures := m.PictureURLs
	if pictures == nil {
		pictures = []string{}
	}
	return digest(pushedContent{
		Title:                m.Title,
		Description:          m.Description,
		SKU:                  m.SKU,
		Price:                m.Price.Truncate(4).String(),
		Currency:             m.Currency,
		Quantity:             m.Quantity,
		ConditionName:        m.ConditionName,
		ConditionDescription: m.ConditionDescription,
		PictureURLs:          pictures,
	})
}

// PicturesHash digests the ordered picture URLs alone. Updates re-upload
// images only when it differs from the one last pushed.
func (m Metadata) PicturesHash() (string, error) {
	pictures := m.PictureURLs
	if pictures == nil {
		pictures = []string{}
	}
	return digest(pictures)
}

func digest(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
