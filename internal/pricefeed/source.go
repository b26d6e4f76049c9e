// Package pricefeed reports USD prices of the traded assets from public
// exchanges and aggregators.
package pricefeed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

var (
	ErrUnknownAsset = errors.New("unknown asset")
	ErrNoPrice      = errors.New("no price available")
)

// Source reports the USD price of an asset symbol such as "BTC".
type Source interface {
	Price(ctx context.Context, asset string) (float64, error)
}

// coingeckoIDs maps asset symbols to CoinGecko coin ids.
var coingeckoIDs = map[string]string{
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"SOL":  "solana",
	"USDC": "usd-coin",
	"USDT": "tether",
	"FUEL": "fuel-network",
}

// binanceSymbol is the USDT ticker Binance lists the asset under.
func binanceSymbol(asset string) string {
	return strings.ToUpper(asset) + "USDT"
}

// New returns the REST source named by PRICE_SOURCE.
func New(name string) (Source, error) {
	switch strings.ToLower(name) {
	case "", "coingecko":
		return NewCoinGeckoClient(), nil
	case "binance":
		return NewBinanceClient(), nil
	default:
		return nil, fmt.Errorf("unknown price source %q", name)
	}
}

// Fallback asks each source in turn and returns the first price.
type Fallback struct {
	sources []Source
	logger  *zap.Logger
}

// NewFallback chains sources in order of preference.
func NewFallback(logger *zap.Logger, sources ...Source) *Fallback {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fallback{sources: sources, logger: logger}
}

// Price implements Source.
func (f *Fallback) Price(ctx context.Context, asset string) (float64, error) {
	var errs []error
	for i, s := range f.sources {
		price, err := s.Price(ctx, asset)
		if err == nil {
			return price, nil
		}
		f.logger.Debug("price source failed, trying next",
			zap.Int("source", i),
			zap.String("asset", asset),
			zap.Error(err))
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return 0, ErrNoPrice
	}
	return 0, errors.Join(errs...)
}
