// Package prices reads USD index prices from the price service.
package prices

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/swap-quoter/internal/apperror"
	"github.com/fd1az/swap-quoter/internal/asset"
	"github.com/fd1az/swap-quoter/internal/cache"
	"github.com/fd1az/swap-quoter/internal/circuitbreaker"
	"github.com/fd1az/swap-quoter/internal/httpclient"
	"github.com/fd1az/swap-quoter/internal/logger"
)

const (
	pricesEndpoint = "/v1/prices"
	defaultTTL     = 10 * time.Second
	defaultTimeout = 3 * time.Second
)

// Config holds the price client settings.
type Config struct {
	BaseURL string
	TTL     time.Duration
	Timeout time.Duration
	// RoundTripper overrides the transport, for tests.
	RoundTripper http.RoundTripper
}

// priceResponse is one entry of GET /v1/prices.
type priceResponse struct {
	USD       decimal.Decimal `json:"usd"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Client caches prices per asset for TTL. Concurrent misses for one asset
// share a single upstream request.
type Client struct {
	http   *httpclient.Client
	cb     *circuitbreaker.CircuitBreaker[asset.USDPrice]
	prices *cache.Cache[asset.InternalAsset, asset.USDPrice]
	assets *asset.Registry
	logger logger.LoggerInterface
}

// NewClient creates a Client.
func NewClient(cfg Config, assets *asset.Registry, log logger.LoggerInterface) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("prices: base url is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	opts := []httpclient.Option{
		httpclient.WithProviderName("prices"),
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithTimeout(cfg.Timeout),
	}
	if cfg.RoundTripper != nil {
		opts = append(opts, httpclient.WithRoundTripper(cfg.RoundTripper))
	}
	hc, err := httpclient.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("prices: http client: %w", err)
	}

	c := &Client{
		http:   hc,
		cb:     circuitbreaker.New[asset.USDPrice](circuitbreaker.DefaultConfig("prices")),
		assets: assets,
		logger: log,
	}
	c.prices = cache.NewCache(cfg.TTL, c.fetch)
	return c, nil
}

// USDPrice returns the cached price of a.
func (c *Client) USDPrice(ctx context.Context, a *asset.Asset) (asset.USDPrice, error) {
	return c.prices.Get(ctx, a.ID())
}

// Close stops the eviction timers.
func (c *Client) Close() {
	c.prices.Close()
}

func (c *Client) fetch(ctx context.Context, id asset.InternalAsset) (asset.USDPrice, error) {
	a, ok := c.assets.Get(id)
	if !ok {
		return asset.USDPrice{}, apperror.Validation(apperror.CodeInvalidAsset, string(id))
	}

	return c.cb.Execute(func() (asset.USDPrice, error) {
		ca := a.ChainAsset()
		query := url.Values{"chain": {string(ca.Chain)}, "asset": {ca.Asset}}

		var resp priceResponse
		if err := c.http.GetJSON(ctx, pricesEndpoint, query, &resp); err != nil {
			return asset.USDPrice{}, apperror.External(apperror.CodePriceUnavailable, string(id), err)
		}
		if !resp.USD.IsPositive() {
			return asset.USDPrice{}, apperror.New(apperror.CodePriceUnavailable,
				apperror.WithContext(fmt.Sprintf("non-positive price %s for %s", resp.USD, id)))
		}
		if resp.UpdatedAt.IsZero() {
			resp.UpdatedAt = time.Now()
		}

		c.logger.Debug(ctx, "fetched index price", "asset", id, "usd", resp.USD.String())
		return asset.NewUSDPrice(a, resp.USD, resp.UpdatedAt), nil
	})
}
