package strategy

import (
	"errors"
	"math"
	"math/big"

	"github.com/dantezy/spark-market-scripts/internal/market"
)

const (
	defaultBand      = 0.015  // ±1.5% around the reference price
	defaultLevels    = 5      // price levels inside the band
	defaultSpread    = 0.0001 // 0.01%, split between buy and sell
	defaultBudgetUSD = 100.0  // total value of all orders
	defaultMinAmount = 0.00001
)

// BandConfig sizes the market maker's quotes.
type BandConfig struct {
	Band      float64
	Levels    int
	Spread    float64
	BudgetUSD float64
	// orders smaller than this (in base units) are not placed
	MinAmount float64
}

// DefaultBandConfig is a five level ±1.5% band worth $100.
func DefaultBandConfig() BandConfig {
	return BandConfig{
		Band:      defaultBand,
		Levels:    defaultLevels,
		Spread:    defaultSpread,
		BudgetUSD: defaultBudgetUSD,
		MinAmount: defaultMinAmount,
	}
}

// OrderSizeUSD is the value of each single order.
func (c BandConfig) OrderSizeUSD() float64 {
	return c.BudgetUSD / float64(c.Levels*2)
}

// BandLadder is the set of quotes for one market maker iteration.
type BandLadder struct {
	Low, High float64
	// Low and High in price units, for comparing with stored orders
	LowPrice, HighPrice *big.Int
	Quotes              []Quote
	Required            market.Balance
}

// Band spreads cfg.Levels buy and sell quotes evenly across ref ± cfg.Band.
// Each level sells and buys OrderSizeUSD worth of base, half a spread above
// and below the level price.
func Band(ref float64, cfg BandConfig, s Scale) (BandLadder, error) {
	if !(ref > 0) || math.IsInf(ref, 0) {
		return BandLadder{}, errors.New("reference price must be positive and finite")
	}
	if cfg.Levels < 2 {
		return BandLadder{}, errors.New("band needs at least two levels")
	}

	lo := ref * (1 - cfg.Band)
	hi := ref * (1 + cfg.Band)
	step := (hi - lo) / float64(cfg.Levels-1)
	half := cfg.Spread / 2
	size := cfg.OrderSizeUSD()

	ladder := BandLadder{
		Low:       lo,
		High:      hi,
		LowPrice:  s.Price(lo),
		HighPrice: s.Price(hi),
	}

	for i := 0; i < cfg.Levels; i++ {
		level := lo + float64(i)*step
		sellPrice := level * (1 + half)
		buyPrice := level * (1 - half)

		if amount := size / sellPrice; amount >= cfg.MinAmount {
			ladder.Quotes = append(ladder.Quotes, Quote{Side: market.Sell, Amount: s.Base(amount), Price: s.Price(sellPrice)})
		}
		if amount := size / buyPrice; amount >= cfg.MinAmount {
			ladder.Quotes = append(ladder.Quotes, Quote{Side: market.Buy, Amount: s.Base(amount), Price: s.Price(buyPrice)})
		}
	}

	ladder.Required = s.Required(ladder.Quotes)
	return ladder, nil
}
