// Package woocommerce implements the storefront client against the WooCommerce
// REST API (wc/v3). Products carry the client reference as their slug, which
// the API can filter on.
package woocommerce

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/storesync/storesync/internal/errors"
	"github.com/storesync/storesync/internal/httpclient"
	"github.com/storesync/storesync/internal/storefront/domain"
)

// Platform is the platform name used for rate limits and logs.
const Platform = "woocommerce"

const productsPath = "/wp-json/wc/v3/products"

// Options configures the WooCommerce client.
type Options struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	Timeout        time.Duration
	// Limiter is waited on before every call. The dispatcher also holds the
	// same limiter, so leave it nil when the dispatcher paces calls.
	Limiter    *rate.Limiter
	HTTPClient *http.Client
}

type wooClient struct {
	http *httpclient.Client
}

// New creates a WooCommerce storefront client.
func New(opts Options) (domain.Client, error) {
	key, secret := opts.ConsumerKey, opts.ConsumerSecret
	c, err := httpclient.New(httpclient.Options{
		Platform:   Platform,
		BaseURL:    opts.BaseURL,
		Timeout:    opts.Timeout,
		Limiter:    opts.Limiter,
		HTTPClient: opts.HTTPClient,
		Decorate: func(req *http.Request) {
			if key != "" {
				req.SetBasicAuth(key, secret)
			}
		},
	})
	if err != nil {
		return nil, err
	}
	return &wooClient{http: c}, nil
}

type category struct {
	ID int64 `json:"id"`
}

type image struct {
	Src string `json:"src"`
}

type metaData struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type productPayload struct {
	Name             string     `json:"name,omitempty"`
	Slug             string     `json:"slug,omitempty"`
	Type             string     `json:"type,omitempty"`
	Status           string     `json:"status,omitempty"`
	Description      string     `json:"description,omitempty"`
	ShortDescription string     `json:"short_description,omitempty"`
	SKU              string     `json:"sku,omitempty"`
	RegularPrice     string     `json:"regular_price,omitempty"`
	ManageStock      bool       `json:"manage_stock"`
	StockQuantity    *int       `json:"stock_quantity,omitempty"`
	StockStatus      string     `json:"stock_status,omitempty"`
	Categories       []category `json:"categories,omitempty"`
	Images           *[]image   `json:"images,omitempty"`
	MetaData         []metaData `json:"meta_data,omitempty"`
}

type productResponse struct {
	ID   int64  `json:"id"`
	Slug string `json:"slug"`
}

func (c *wooClient) Platform() string {
	return Platform
}

func (c *wooClient) CreateProduct(ctx context.Context, product domain.Product) (int64, error) {
	payload := toPayload(product)
	payload.Slug = product.Reference
	payload.Type = "simple"
	payload.Status = "publish"

	var created productResponse
	if err := c.http.Do(ctx, http.MethodPost, productsPath, payload, &created); err != nil {
		return 0, err
	}
	if created.ID == 0 {
		return 0, apperrors.Wrapf(apperrors.ErrTransientRemote, "%s: create returned no product id", Platform)
	}
	return created.ID, nil
}

func (c *wooClient) UpdateProduct(ctx context.Context, id int64, product domain.Product) error {
	return c.http.Do(ctx, http.MethodPut, fmt.Sprintf("%s/%d", productsPath, id), toPayload(product), nil)
}

func (c *wooClient) MarkSold(ctx context.Context, id int64) error {
	zero := 0
	payload := productPayload{
		ManageStock:   true,
		StockQuantity: &zero,
		StockStatus:   "outofstock",
	}
	return c.http.Do(ctx, http.MethodPut, fmt.Sprintf("%s/%d", productsPath, id), payload, nil)
}

func (c *wooClient) FindByReference(ctx context.Context, reference string) (int64, bool, error) {
	query := url.Values{}
	query.Set("slug", reference)
	query.Set("status", "any")

	var products []productResponse
	if err := c.http.Do(ctx, http.MethodGet, productsPath+"?"+query.Encode(), nil, &products); err != nil {
		return 0, false, err
	}
	for _, p := range products {
		if strings.EqualFold(p.Slug, reference) {
			return p.ID, true, nil
		}
	}
	return 0, false, nil
}

func toPayload(product domain.Product) productPayload {
	quantity := product.Quantity
	payload := productPayload{
		Name:             product.Title,
		Description:      product.Description,
		ShortDescription: conditionSummary(product),
		SKU:              product.SKU,
		RegularPrice:     product.Price.StringFixed(2),
		ManageStock:      true,
		StockQuantity:    &quantity,
		MetaData:         []metaData{{Key: "_storesync_reference", Value: product.Reference}},
	}
	if product.CategoryID > 0 {
		payload.Categories = []category{{ID: product.CategoryID}}
	}
	if product.ReplaceImages {
		images := make([]image, 0, len(product.PictureURLs))
		for _, src := range product.PictureURLs {
			images = append(images, image{Src: src})
		}
		payload.Images = &images
	}
	return payload
}

func conditionSummary(product domain.Product) string {
	switch {
	case product.ConditionName != "" && product.ConditionDescription != "":
		return product.ConditionName + ": " + product.ConditionDescription
	default:
		return product.ConditionName + product.ConditionDescription
	}
}
