package pricefeed

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

const coingeckoAPIURL = "https://api.coingecko.com/api/v3/simple/price"

// CoinGeckoClient fetches USD prices from the CoinGecko simple price API.
type CoinGeckoClient struct {
	*restClient
}

// NewCoinGeckoClient creates a new CoinGecko price feed client.
func NewCoinGeckoClient(opts ...Option) *CoinGeckoClient {
	return &CoinGeckoClient{restClient: newRESTClient("coingecko", coingeckoAPIURL, opts)}
}

// Price implements Source.
func (c *CoinGeckoClient) Price(ctx context.Context, asset string) (float64, error) {
	id, ok := coingeckoIDs[strings.ToUpper(asset)]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownAsset, asset)
	}
	return c.GetPrice(ctx, id)
}

// GetPrice fetches the USD price of a CoinGecko coin id (e.g., "bitcoin").
func (c *CoinGeckoClient) GetPrice(ctx context.Context, id string) (float64, error) {
	if price, ok := c.cached(id); ok {
		return price, nil
	}

	q := url.Values{}
	q.Set("ids", id)
	q.Set("vs_currencies", "usd")

	var result map[string]map[string]float64
	if err := c.getJSON(ctx, c.baseURL+"?"+q.Encode(), &result); err != nil {
		return 0, err
	}

	price, ok := result[id]["usd"]
	if !ok {
		return 0, fmt.Errorf("%w: coingecko has no usd price for %s", ErrNoPrice, id)
	}

	c.store(id, price)
	return price, nil
}
