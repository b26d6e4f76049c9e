package strategy

import (
	"math"

	"github.com/dantezy/spark-market-scripts/internal/market"
)

// FillConfig describes the static sell and buy ladders placed by the
// fill-orderbook tool. Prices are readable USD values. With Percent set the
// steps are fractions of the previous price instead of absolute amounts.
type FillConfig struct {
	SellStart  float64
	SellStep   float64
	Sells      int
	SellAmount float64 // base per sell

	BuyStart float64
	BuyStep  float64
	Buys     int
	BuyQuote float64 // quote spent per buy

	Percent bool
}

// DefaultFillConfig seeds the bid side of an ETH/USDC book: five 1 USDC
// buys from 1000 down in steps of 100, and no sells.
func DefaultFillConfig() FillConfig {
	return FillConfig{
		SellStart:  4400,
		SellStep:   100,
		Sells:      0,
		SellAmount: 0.001,
		BuyStart:   1000,
		BuyStep:    100,
		Buys:       5,
		BuyQuote:   1,
	}
}

func (cfg FillConfig) ladder(start, step float64, count int, dir Direction, s Scale) []Quote {
	if count <= 0 || start <= 0 {
		return nil
	}
	if !cfg.Percent {
		prices := Ladder(s.Price(start), s.Price(step), count, dir)
		out := make([]Quote, len(prices))
		for i, p := range prices {
			out[i] = Quote{Price: p}
		}
		return out
	}

	factor := 1 + step
	if dir == Down {
		factor = 1 - step
	}
	var out []Quote
	for i := 0; i < count; i++ {
		p := s.Price(start * math.Pow(factor, float64(i)))
		if p.Sign() <= 0 {
			break
		}
		out = append(out, Quote{Price: p})
	}
	return out
}

// FillQuotes builds the sell ladder walking up from SellStart and the buy
// ladder walking down from BuyStart. Buys whose base amount rounds to zero
// are dropped.
func FillQuotes(cfg FillConfig, s Scale) (sells, buys []Quote) {
	sellAmount := s.Base(cfg.SellAmount)
	if sellAmount.Sign() > 0 {
		for _, q := range cfg.ladder(cfg.SellStart, cfg.SellStep, cfg.Sells, Up, s) {
			q.Side = market.Sell
			q.Amount = sellAmount
			sells = append(sells, q)
		}
	}

	for _, q := range cfg.ladder(cfg.BuyStart, cfg.BuyStep, cfg.Buys, Down, s) {
		price := s.ReadablePrice(q.Price)
		amount := s.Base(cfg.BuyQuote / price)
		if amount.Sign() <= 0 {
			continue
		}
		q.Side = market.Buy
		q.Amount = amount
		buys = append(buys, q)
	}
	return sells, buys
}
