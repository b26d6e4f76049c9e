package strategy

import (
	"math/big"
	"math/rand"

	"github.com/dantezy/spark-market-scripts/internal/market"
)

// SweepConfig drives the random strategy: one buy and one sell at every price
// from From to To, with random amounts counted in AmountUnit steps.
type SweepConfig struct {
	From, To, Step float64
	BuyMin         int64 // inclusive
	BuyMax         int64 // exclusive
	SellMin        int64
	SellMax        int64
	AmountUnit     float64 // base asset per amount step
}

// DefaultSweepConfig sweeps 46000..72000 in 1000 steps with amounts of
// 0.01 to 0.49 (buy) and 0.03 to 0.29 (sell) base.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		From:       46000,
		To:         72000,
		Step:       1000,
		BuyMin:     1,
		BuyMax:     50,
		SellMin:    3,
		SellMax:    30,
		AmountUnit: 0.01,
	}
}

// RandomSweep generates the random strategy's orders, a buy then a sell per price.
func RandomSweep(rng *rand.Rand, cfg SweepConfig, s Scale) []Quote {
	if cfg.Step <= 0 {
		return nil
	}
	unit := s.Base(cfg.AmountUnit)

	var quotes []Quote
	for price := cfg.From; price <= cfg.To; price += cfg.Step {
		p := s.Price(price)
		buy := new(big.Int).Mul(unit, big.NewInt(between(rng, cfg.BuyMin, cfg.BuyMax)))
		sell := new(big.Int).Mul(unit, big.NewInt(between(rng, cfg.SellMin, cfg.SellMax)))
		quotes = append(quotes,
			Quote{Side: market.Buy, Amount: buy, Price: p},
			Quote{Side: market.Sell, Amount: sell, Price: p},
		)
	}
	return quotes
}

// FuzzConfig bounds the fuzzer's orders, all in contract units.
type FuzzConfig struct {
	AmountMin, AmountMax int64
	PriceMin, PriceMax   int64
	Variation            int64 // prices vary by ±Variation around the base
	Rounds               int   // each round yields one buy and one sell
}

// DefaultFuzzConfig matches a BTC/USDC market with 8 base and 9 price decimals:
// 0.001 to 0.1 BTC at 50000 to 70000 USDC.
func DefaultFuzzConfig() FuzzConfig {
	return FuzzConfig{
		AmountMin: 100_000,
		AmountMax: 10_000_000,
		PriceMin:  50_000_000_000_000,
		PriceMax:  70_000_000_000_000,
		Variation: 500,
		Rounds:    3,
	}
}

// Fuzz picks a random base price and produces crossing buy and sell orders
// around it. Buys sit up to 2*Variation above sells so they tend to match.
func Fuzz(rng *rand.Rand, cfg FuzzConfig) []Quote {
	base := between(rng, cfg.PriceMin, cfg.PriceMax)

	quotes := make([]Quote, 0, cfg.Rounds*2)
	for i := 0; i < cfg.Rounds; i++ {
		buyPrice := base + between(rng, -cfg.Variation, cfg.Variation+1) + cfg.Variation
		sellPrice := base + between(rng, -cfg.Variation, cfg.Variation+1) - cfg.Variation

		quotes = append(quotes,
			Quote{Side: market.Buy, Amount: big.NewInt(between(rng, cfg.AmountMin, cfg.AmountMax)), Price: big.NewInt(max(buyPrice, 0))},
			Quote{Side: market.Sell, Amount: big.NewInt(between(rng, cfg.AmountMin, cfg.AmountMax)), Price: big.NewInt(max(sellPrice, 0))},
		)
	}
	return quotes
}

// between returns a value in [lo, hi), or lo when the range is empty.
func between(rng *rand.Rand, lo, hi int64) int64 {
	if hi <= lo {
		return lo
	}
	return lo + rng.Int63n(hi-lo)
}
