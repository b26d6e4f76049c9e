// Package strategy holds the order generation used by the scripts and the
// long running market maker and load test loops built on top of it.
package strategy

import (
	"math/big"

	"github.com/dantezy/spark-market-scripts/internal/market"
)

// Direction is the way a price ladder walks from its start.
type Direction int

const (
	Up Direction = iota
	Down
)

// Ladder returns count prices starting at start, each step apart.
// A descending ladder stops before it would reach zero.
func Ladder(start, step *big.Int, count int, dir Direction) []*big.Int {
	prices := make([]*big.Int, 0, count)
	price := new(big.Int).Set(start)
	for i := 0; i < count; i++ {
		if price.Sign() <= 0 {
			break
		}
		prices = append(prices, new(big.Int).Set(price))
		if dir == Up {
			price.Add(price, step)
		} else {
			price.Sub(price, step)
		}
	}
	return prices
}

// LadderQuotes places one order of amount at every price of a ladder.
func LadderQuotes(side market.OrderType, amount *big.Int, prices []*big.Int) []Quote {
	quotes := make([]Quote, len(prices))
	for i, p := range prices {
		quotes[i] = Quote{Side: side, Amount: new(big.Int).Set(amount), Price: p}
	}
	return quotes
}

// TopUp is max(0, required - liquid).
func TopUp(required, liquid *big.Int) *big.Int {
	if liquid == nil {
		return new(big.Int).Set(required)
	}
	need := new(big.Int).Sub(required, liquid)
	if need.Sign() < 0 {
		return new(big.Int)
	}
	return need
}

// TopUpBalance applies TopUp to both sides of a balance.
func TopUpBalance(required, liquid market.Balance) market.Balance {
	return market.Balance{
		Base:  TopUp(required.Base, liquid.Base),
		Quote: TopUp(required.Quote, liquid.Quote),
	}
}

// OutsideBand returns the ids of orders priced below lo or above hi.
func OutsideBand(orders []market.Order, lo, hi *big.Int) []market.OrderID {
	var out []market.OrderID
	for _, o := range orders {
		if o.Price.Cmp(lo) < 0 || o.Price.Cmp(hi) > 0 {
			out = append(out, o.ID)
		}
	}
	return out
}
