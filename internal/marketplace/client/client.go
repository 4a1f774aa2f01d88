// Package client implements the marketplace read API over HTTP JSON.
//
// Endpoints, relative to the base URL:
//
//	GET /v1/seller/items?since=RFC3339&page=N&per_page=M
//	GET /v1/seller/events?since=RFC3339&page=N&per_page=M
//
// Both answer {"listings": [...], "page": N, "total_pages": T}.
package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/storesync/storesync/internal/httpclient"
	"github.com/storesync/storesync/internal/marketplace/domain"
)

// Page size bounds accepted by the marketplace.
const (
	DefaultPageSize = 100
	MaxPageSize     = 200
)

// Options configures the marketplace client.
type Options struct {
	BaseURL  string
	Token    string
	PageSize int
	Timeout  time.Duration
	Limiter  *rate.Limiter
	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client
}

type marketplaceClient struct {
	http     *httpclient.Client
	pageSize int
}

// New creates a marketplace client.
func New(opts Options) (domain.Client, error) {
	token := opts.Token
	c, err := httpclient.New(httpclient.Options{
		Platform:   "marketplace",
		BaseURL:    opts.BaseURL,
		Timeout:    opts.Timeout,
		Limiter:    opts.Limiter,
		HTTPClient: opts.HTTPClient,
		Decorate: func(req *http.Request) {
			if token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}
		},
	})
	if err != nil {
		return nil, err
	}
	return &marketplaceClient{http: c, pageSize: ClampPageSize(opts.PageSize)}, nil
}

// ClampPageSize returns DefaultPageSize for non-positive sizes and caps the
// rest at MaxPageSize.
func ClampPageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

func (c *marketplaceClient) ListSellerItems(ctx context.Context, since time.Time, page int) (domain.Page, error) {
	return c.list(ctx, "/v1/seller/items", since, page)
}

func (c *marketplaceClient) ListSellerEvents(ctx context.Context, since time.Time, page int) (domain.Page, error) {
	return c.list(ctx, "/v1/seller/events", since, page)
}

func (c *marketplaceClient) list(ctx context.Context, path string, since time.Time, page int) (domain.Page, error) {
	if page < 1 {
		page = 1
	}
	query := url.Values{}
	query.Set("since", since.UTC().Format(time.RFC3339))
	query.Set("page", strconv.Itoa(page))
	query.Set("per_page", strconv.Itoa(c.pageSize))

	var result domain.Page
	if err := c.http.Do(ctx, http.MethodGet, path+"?"+query.Encode(), nil, &result); err != nil {
		return domain.Page{}, err
	}
	if result.PageNumber == 0 {
		result.PageNumber = page
	}
	return result, nil
}
