// Package httpclient performs JSON calls against the marketplace and storefront
// REST APIs and classifies failures into the remote error taxonomy.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/storesync/storesync/internal/errors"
)

// maxErrorBody bounds how much of an error response ends up in last_error.
const maxErrorBody = 512

// Client is a JSON client for one remote platform.
type Client struct {
	platform   string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	decorate   func(req *http.Request)
}

// Options configures a Client.
type Options struct {
	// Platform names the remote side in errors and logs.
	Platform string
	BaseURL  string
	Timeout  time.Duration
	// Limiter, when set, is waited on before every request.
	Limiter *rate.Limiter
	// Decorate adds credentials or headers to every request.
	Decorate func(req *http.Request)
	// HTTPClient overrides the default client built from Timeout.
	HTTPClient *http.Client
}

// New creates a Client.
func New(opts Options) (*Client, error) {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("%s: base url is required", opts.Platform)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		platform:   opts.Platform,
		baseURL:    strings.TrimRight(base, "/"),
		httpClient: httpClient,
		limiter:    opts.Limiter,
		decorate:   opts.Decorate,
	}, nil
}

// Platform returns the platform name.
func (c *Client) Platform() string {
	return c.platform
}

// Do sends a request with an optional JSON body and decodes a 2xx JSON response
// into out (when out is not nil). Non-2xx responses and transport failures are
// returned as classified remote errors.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apperrors.Wrapf(apperrors.ErrPermanentRemote, "%s: encode request: %v", c.platform, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperrors.Wrapf(apperrors.ErrPermanentRemote, "%s: build request: %v", c.platform, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.decorate != nil {
		c.decorate(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return apperrors.Wrapf(apperrors.ErrTransientRemote, "%s %s %s: %v", c.platform, method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.Wrapf(apperrors.ErrTransientRemote, "%s %s %s: read body: %v", c.platform, method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Classify(c.platform, resp.StatusCode, resp.Header.Get("Retry-After"), data)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperrors.Wrapf(apperrors.ErrTransientRemote, "%s %s %s: decode response: %v", c.platform, method, path, err)
	}
	return nil
}

// Classify maps an HTTP status into the remote error taxonomy: 429 is a rate
// limit, 408 and 5xx are transient, any other 4xx is permanent.
func Classify(platform string, status int, retryAfter string, body []byte) error {
	detail := strings.TrimSpace(string(body))
	if len(detail) > maxErrorBody {
		detail = detail[:maxErrorBody]
	}

	switch {
	case status == http.StatusTooManyRequests:
		return &apperrors.RateLimitError{Platform: platform, RetryAfter: ParseRetryAfter(retryAfter)}
	case status == http.StatusRequestTimeout || status >= 500:
		return apperrors.Wrapf(apperrors.ErrTransientRemote, "%s: http %d: %s", platform, status, detail)
	default:
		return apperrors.Wrapf(apperrors.ErrPermanentRemote, "%s: http %d: %s", platform, status, detail)
	}
}

// ParseRetryAfter reads a Retry-After header given in seconds. Missing or
// unparsable values yield zero.
func ParseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.ParseFloat(value, 64); err == nil && seconds > 0 {
		return time.Duration(seconds * float64(time.Second))
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
