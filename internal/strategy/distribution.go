package strategy

import (
	"math"

	"github.com/dantezy/spark-market-scripts/internal/market"
)

// NormalPDF is the density of a normal distribution at x.
func NormalPDF(x, mean, stdDev float64) float64 {
	if stdDev <= 0 {
		return 0
	}
	variance := stdDev * stdDev
	return math.Exp(-(x-mean)*(x-mean)/(2*variance)) / math.Sqrt(2*math.Pi*variance)
}

// GridConfig describes a liquidity grid centred on the market price.
type GridConfig struct {
	Range float64 // grid spans price ± Range
	Step  float64 // distance between levels

	TotalBase  float64 // base spread over the sell side
	TotalQuote float64 // quote spread over the buy side
	MinBase    float64 // smaller sells are skipped
	MinQuote   float64 // smaller buys are skipped
}

// DefaultGridConfig is a ±$5000 grid with $100 levels, 0.15 BTC and 10000 USDC.
func DefaultGridConfig() GridConfig {
	return GridConfig{
		Range:      5000,
		Step:       100,
		TotalBase:  0.15,
		TotalQuote: 10000,
		MinBase:    0.0001,
		MinQuote:   1,
	}
}

// Levels is the number of grid prices.
func (c GridConfig) Levels() int {
	return int(c.Range*2/c.Step) + 1
}

// GridLevel is one grid price and its share of the liquidity.
type GridLevel struct {
	Price  float64
	Weight float64
}

// Grid weights every level by a normal density centred on price with a
// standard deviation of Range/3, normalised so the weights sum to one.
// Non-positive prices are dropped.
func Grid(price float64, cfg GridConfig) []GridLevel {
	n := cfg.Levels()
	if n <= 0 || cfg.Step <= 0 {
		return nil
	}
	stdDev := cfg.Range / 3
	start := price - cfg.Range

	levels := make([]GridLevel, 0, n)
	total := 0.0
	for i := 0; i < n; i++ {
		p := start + float64(i)*cfg.Step
		if p <= 0 {
			continue
		}
		w := NormalPDF(p, price, stdDev)
		levels = append(levels, GridLevel{Price: p, Weight: w})
		total += w
	}
	if total == 0 {
		return nil
	}
	for i := range levels {
		levels[i].Weight /= total
	}
	return levels
}

// NormalGrid turns a weighted grid into quotes. Every level sells its share
// of TotalBase and buys its share of TotalQuote worth of base at the level
// price. Sells come before buys at each level.
func NormalGrid(price float64, cfg GridConfig, s Scale) []Quote {
	var quotes []Quote
	for _, l := range Grid(price, cfg) {
		sellBase := cfg.TotalBase * l.Weight
		buyQuote := cfg.TotalQuote * l.Weight
		if sellBase < cfg.MinBase && buyQuote < cfg.MinQuote {
			continue
		}

		p := s.Price(l.Price)
		if sellBase >= cfg.MinBase {
			quotes = append(quotes, Quote{Side: market.Sell, Amount: s.Base(sellBase), Price: p})
		}
		if buyQuote >= cfg.MinQuote {
			if amount := s.Base(buyQuote / l.Price); amount.Sign() > 0 {
				quotes = append(quotes, Quote{Side: market.Buy, Amount: amount, Price: p})
			}
		}
	}
	return quotes
}

// Alternating returns count orders of sizeUSD each at price, starting with a
// buy and alternating sides.
func Alternating(price float64, count int, sizeUSD float64, s Scale) []Quote {
	if price <= 0 {
		return nil
	}
	p := s.Price(price)
	quotes := make([]Quote, 0, count)
	for i := 0; i < count; i++ {
		side := market.Buy
		if i%2 == 1 {
			side = market.Sell
		}
		quotes = append(quotes, Quote{Side: side, Amount: s.Base(sizeUSD / price), Price: p})
	}
	return quotes
}
