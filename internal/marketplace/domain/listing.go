// Package domain defines marketplace listings and the events the ingestor derives
// from them.
package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ListingStatus is the marketplace status of a listing.
type ListingStatus string

const (
	ListingActive    ListingStatus = "active"
	ListingCompleted ListingStatus = "completed"
	ListingEnded     ListingStatus = "ended"
)

// Listing is a seller listing as returned by the marketplace read API.
type Listing struct {
	ItemID               string            `json:"item_id"`
	CategoryID           string            `json:"category_id"`
	CategoryName         string            `json:"category_name"`
	Status               ListingStatus     `json:"status"`
	Quantity             int               `json:"quantity"`
	QuantitySold         int               `json:"quantity_sold"`
	Title                string            `json:"title"`
	Description          string            `json:"description"`
	SKU                  string            `json:"sku"`
	Price                decimal.Decimal   `json:"price"`
	Currency             string            `json:"currency"`
	ConditionName        string            `json:"condition_name"`
	ConditionDescription string            `json:"condition_description"`
	PictureURLs          []string          `json:"picture_urls"`
	Specifics            map[string]string `json:"specifics"`
	StartTime            time.Time         `json:"start_time"`
	EndTime              time.Time         `json:"end_time"`
}

// Available returns the quantity still for sale.
func (l Listing) Available() int {
	if n := l.Quantity - l.QuantitySold; n > 0 {
		return n
	}
	return 0
}

// Page is one page of a paginated listing query.
type Page struct {
	Listings   []Listing `json:"listings"`
	PageNumber int       `json:"page"`
	TotalPages int       `json:"total_pages"`
}

// Last reports whether no further page exists.
func (p Page) Last() bool {
	return p.PageNumber >= p.TotalPages || len(p.Listings) == 0
}

// Client is the marketplace read API. Pages are numbered from 1.
type Client interface {
	// ListSellerItems returns listings started since the given time.
	ListSellerItems(ctx context.Context, since time.Time, page int) (Page, error)
	// ListSellerEvents returns listings modified since the given time, including
	// sales and endings.
	ListSellerEvents(ctx context.Context, since time.Time, page int) (Page, error)
}
