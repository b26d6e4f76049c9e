package pricefeed

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const binanceAPIURL = "https://api.binance.com/api/v3/ticker/price"

// BinanceClient fetches spot prices from the Binance REST API.
type BinanceClient struct {
	*restClient
}

// NewBinanceClient creates a new Binance price feed client.
func NewBinanceClient(opts ...Option) *BinanceClient {
	return &BinanceClient{restClient: newRESTClient("binance", binanceAPIURL, opts)}
}

// Price implements Source using the asset's USDT pair.
func (c *BinanceClient) Price(ctx context.Context, asset string) (float64, error) {
	return c.GetPrice(ctx, binanceSymbol(asset))
}

// GetPrice fetches the current price for a symbol (e.g., "BTCUSDT").
func (c *BinanceClient) GetPrice(ctx context.Context, symbol string) (float64, error) {
	symbol = strings.ToUpper(symbol)

	if price, ok := c.cached(symbol); ok {
		return price, nil
	}

	var result struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := c.getJSON(ctx, c.baseURL+"?symbol="+url.QueryEscape(symbol), &result); err != nil {
		return 0, err
	}

	price, err := strconv.ParseFloat(result.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse price: %w", err)
	}

	c.store(symbol, price)
	return price, nil
}
