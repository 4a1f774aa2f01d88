// Package shopify implements the storefront client on top of the Shopify Admin
// REST API through go-shopify. The client reference is stored as the product
// handle.
package shopify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"golang.org/x/time/rate"

	apperrors "github.com/storesync/storesync/internal/errors"
	"github.com/storesync/storesync/internal/storefront/domain"
)

// Platform is the platform name used for rate limits and logs.
const Platform = "shopify"

// Options configures the Shopify client.
type Options struct {
	// Shop is the shop name or its myshopify.com domain.
	Shop        string
	APIKey      string
	APISecret   string
	AccessToken string
	// APIVersion pins the Admin API version. Empty uses the library default.
	APIVersion string
	Timeout    time.Duration
	Limiter    *rate.Limiter
	HTTPClient *http.Client
}

type shopifyClient struct {
	client  *goshopify.Client
	limiter *rate.Limiter
}

// New creates a Shopify storefront client.
func New(opts Options) (domain.Client, error) {
	shop := strings.TrimSpace(opts.Shop)
	if shop == "" {
		return nil, fmt.Errorf("%s: shop is required", Platform)
	}
	if opts.AccessToken == "" {
		return nil, fmt.Errorf("%s: access token is required", Platform)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	clientOpts := []goshopify.Option{goshopify.WithHTTPClient(httpClient)}
	if opts.APIVersion != "" {
		clientOpts = append(clientOpts, goshopify.WithVersion(opts.APIVersion))
	}

	app := goshopify.App{ApiKey: opts.APIKey, ApiSecret: opts.APISecret}
	client, err := goshopify.NewClient(app, shop, opts.AccessToken, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("%s: create client: %w", Platform, err)
	}

	return &shopifyClient{client: client, limiter: opts.Limiter}, nil
}

func (c *shopifyClient) Platform() string {
	return Platform
}

func (c *shopifyClient) CreateProduct(ctx context.Context, product domain.Product) (int64, error) {
	if err := c.wait(ctx); err != nil {
		return 0, err
	}

	payload := toShopifyProduct(product)
	payload.Handle = product.Reference

	created, err := c.client.Product.Create(ctx, payload)
	if err != nil {
		return 0, classify(ctx, err)
	}
	if created == nil || created.Id == 0 {
		return 0, apperrors.Wrapf(apperrors.ErrTransientRemote, "%s: create returned no product id", Platform)
	}
	return int64(created.Id), nil
}

func (c *shopifyClient) UpdateProduct(ctx context.Context, id int64, product domain.Product) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	payload := toShopifyProduct(product)
	payload.Id = uint64(id)

	if _, err := c.client.Product.Update(ctx, payload); err != nil {
		return classify(ctx, err)
	}
	return nil
}

// MarkSold archives the product. Archived products stay in the admin but are
// no longer sold.
func (c *shopifyClient) MarkSold(ctx context.Context, id int64) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	payload := goshopify.Product{
		Id:     uint64(id),
		Status: goshopify.ProductStatusArchived,
	}
	if _, err := c.client.Product.Update(ctx, payload); err != nil {
		return classify(ctx, err)
	}
	return nil
}

func (c *shopifyClient) FindByReference(ctx context.Context, reference string) (int64, bool, error) {
	if err := c.wait(ctx); err != nil {
		return 0, false, err
	}

	products, err := c.client.Product.List(ctx, goshopify.ProductListOptions{Handle: reference})
	if err != nil {
		return 0, false, classify(ctx, err)
	}
	for _, p := range products {
		if strings.EqualFold(p.Handle, reference) {
			return int64(p.Id), true, nil
		}
	}
	return 0, false, nil
}

func (c *shopifyClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func toShopifyProduct(product domain.Product) goshopify.Product {
	price := product.Price
	variant := goshopify.Variant{
		Sku:                 product.SKU,
		Price:               &price,
		InventoryQuantity:   product.Quantity,
		InventoryManagement: "shopify",
		RequireShipping:     true,
	}

	var images []goshopify.Image
	if product.ReplaceImages {
		for _, src := range product.PictureURLs {
			images = append(images, goshopify.Image{Src: src})
		}
	}

	body := product.Description
	if product.ConditionName != "" || product.ConditionDescription != "" {
		body += "<p>" + strings.TrimSpace(product.ConditionName+" "+product.ConditionDescription) + "</p>"
	}

	return goshopify.Product{
		Title:    product.Title,
		BodyHTML: body,
		Status:   goshopify.ProductStatusActive,
		Variants: []goshopify.Variant{variant},
		Images:   images,
	}
}

// classify maps go-shopify errors into the remote error taxonomy.
func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var rateErr goshopify.RateLimitError
	if errors.As(err, &rateErr) {
		return &apperrors.RateLimitError{Platform: Platform, RetryAfter: time.Duration(rateErr.RetryAfter) * time.Second}
	}
	var rateErrPtr *goshopify.RateLimitError
	if errors.As(err, &rateErrPtr) {
		return &apperrors.RateLimitError{Platform: Platform, RetryAfter: time.Duration(rateErrPtr.RetryAfter) * time.Second}
	}

	status := 0
	var respErr goshopify.ResponseError
	var respErrPtr *goshopify.ResponseError
	switch {
	case errors.As(err, &respErr):
		status = respErr.Status
	case errors.As(err, &respErrPtr):
		status = respErrPtr.Status
	}

	switch {
	case status == http.StatusTooManyRequests:
		return &apperrors.RateLimitError{Platform: Platform}
	case status >= 400 && status < 500 && status != http.StatusRequestTimeout:
		return apperrors.Wrapf(apperrors.ErrPermanentRemote, "%s: http %d: %v", Platform, status, err)
	default:
		return apperrors.Wrapf(apperrors.ErrTransientRemote, "%s: %v", Platform, err)
	}
}
