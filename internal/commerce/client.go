// Package commerce prices programs through the ecommerce basket calculation API.
package commerce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/prospectus/catalog-source/internal/domain"
	domainerrors "github.com/prospectus/catalog-source/internal/errors"
	"github.com/prospectus/catalog-source/internal/fetch"
	"github.com/prospectus/catalog-source/internal/logger"
	"github.com/prospectus/catalog-source/internal/ratelimit"
)

// cacheStatusHeader is set by the ecommerce cache in front of the development stack.
const cacheStatusHeader = "X-Cache-Status"

// Basket is a calculated basket. Totals are nil when the upstream returned a non-number.
type Basket struct {
	Total             *float64
	TotalExclDiscount *float64
	Currency          string
}

// Numeric reports whether both totals are numbers.
func (b *Basket) Numeric() bool {
	return b.Total != nil && b.TotalExclDiscount != nil
}

// ClientOptions configures a Client.
type ClientOptions struct {
	CalculateURL string
	Fetcher      *fetch.Client
	Limiter      *ratelimit.Limiter
	Header       http.Header
	// Development relaxes the limiter once the upstream reports cache hits.
	Development bool
	Logger      *logger.Logger
}

// Client calls the basket calculation endpoint.
type Client struct {
	calculateURL string
	fetcher      *fetch.Client
	limiter      *ratelimit.Limiter
	header       http.Header
	development  bool
	logger       *logger.Logger
}

// NewClient creates a basket client.
func NewClient(opts ClientOptions) *Client {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = ratelimit.NewLimiter(ratelimit.DefaultSettings[ratelimit.Ecommerce])
	}
	return &Client{
		calculateURL: opts.CalculateURL,
		fetcher:      opts.Fetcher,
		limiter:      limiter,
		header:       opts.Header,
		development:  opts.Development,
		logger:       log.Component("commerce"),
	}
}

// CalculateURL returns the anonymous basket calculation URL for skus in bundle.
func (c *Client) CalculateURL(skus []string, bundle string) string {
	q := url.Values{}
	q.Set("is_anonymous", "true")
	q["sku"] = append([]string(nil), skus...)
	q.Set("bundle", bundle)
	sep := "?"
	if strings.Contains(c.calculateURL, "?") {
		sep = "&"
	}
	return c.calculateURL + sep + q.Encode()
}

// Calculate prices skus as one bundle.
func (c *Client) Calculate(ctx context.Context, skus []string, bundle string) (*Basket, error) {
	u := c.CalculateURL(skus, bundle)
	resp, err := ratelimit.Schedule(ctx, c.limiter, func(ctx context.Context) (*fetch.Response, error) {
		return c.fetcher.Get(ctx, u, c.header)
	})
	if err != nil {
		return nil, err
	}

	if c.development && resp.Header.Get(cacheStatusHeader) == "HIT" {
		if s := c.limiter.Settings(); s.MaxConcurrent != 0 || s.MinTime != 0 {
			c.logger.Info("ecommerce responses are cached, lifting throttle")
			c.limiter.UpdateSettings(ratelimit.Settings{})
		}
	}

	var raw domain.RawBasket
	if err := json.Unmarshal(resp.Body, &raw); err != nil {
		return nil, domainerrors.Wrapf(err, domainerrors.CodeFetchFailed, "decode basket %s", u)
	}
	return &Basket{
		Total:             number(raw.TotalInclTax),
		TotalExclDiscount: number(raw.TotalInclTaxExclDiscounts),
		Currency:          raw.Currency,
	}, nil
}

// number decodes a JSON number, returning nil for strings, null or absent values.
func number(raw json.RawMessage) *float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil
	}
	return &f
}
