package strategy

import (
	"math/big"

	"github.com/dantezy/spark-market-scripts/internal/batch"
	"github.com/dantezy/spark-market-scripts/internal/market"
	"github.com/dantezy/spark-market-scripts/internal/units"
)

// Scale converts readable prices and amounts into a market's fixed-point units.
type Scale struct {
	BaseDecimals  uint32
	QuoteDecimals uint32
	PriceDecimals uint32
}

// ScaleOf reads the decimals from a market config.
func ScaleOf(cfg market.Config) Scale {
	return Scale{
		BaseDecimals:  cfg.BaseDecimals,
		QuoteDecimals: cfg.QuoteDecimals,
		PriceDecimals: cfg.PriceDecimals,
	}
}

// Price scales a USD price.
func (s Scale) Price(v float64) *big.Int {
	return units.Amount(v, s.PriceDecimals)
}

// Base scales a base asset amount.
func (s Scale) Base(v float64) *big.Int {
	return units.Amount(v, s.BaseDecimals)
}

// Quote scales a quote asset amount.
func (s Scale) Quote(v float64) *big.Int {
	return units.Amount(v, s.QuoteDecimals)
}

// ReadablePrice converts a fixed-point price back to a float.
func (s Scale) ReadablePrice(p *big.Int) float64 {
	return units.ToFloat(p, s.PriceDecimals)
}

// FormatBase renders a base amount with the asset's decimals.
func (s Scale) FormatBase(v *big.Int) string {
	return units.Format(v, s.BaseDecimals)
}

// FormatQuote renders a quote amount with the asset's decimals.
func (s Scale) FormatQuote(v *big.Int) string {
	return units.Format(v, s.QuoteDecimals)
}

// FormatPrice renders a fixed-point price.
func (s Scale) FormatPrice(v *big.Int) string {
	return units.Format(v, s.PriceDecimals)
}

// Cost is the quote locked by a buy of amount at price, rounded up.
func (s Scale) Cost(amount, price *big.Int) *big.Int {
	v := new(big.Int).Mul(amount, price)
	exp := int64(s.BaseDecimals) + int64(s.PriceDecimals) - int64(s.QuoteDecimals)
	if exp <= 0 {
		return v.Mul(v, new(big.Int).Exp(big.NewInt(10), big.NewInt(-exp), nil))
	}
	div := new(big.Int).Exp(big.NewInt(10), big.NewInt(exp), nil)
	q, r := new(big.Int).QuoRem(v, div, new(big.Int))
	if r.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// Quote is an order a strategy wants on the book, in contract units.
type Quote struct {
	Side   market.OrderType
	Amount *big.Int
	Price  *big.Int
}

// Required sums the balances the quotes lock once opened.
func (s Scale) Required(quotes []Quote) market.Balance {
	need := market.Balance{Base: new(big.Int), Quote: new(big.Int)}
	for _, q := range quotes {
		if q.Side == market.Sell {
			need.Base.Add(need.Base, q.Amount)
		} else {
			need.Quote.Add(need.Quote, s.Cost(q.Amount, q.Price))
		}
	}
	return need
}

// OrderCalls turns quotes into openOrder call descriptors, each forwarding fee.
func OrderCalls(m *market.Market, quotes []Quote, fee *big.Int) ([]batch.Call, error) {
	calls := make([]batch.Call, 0, len(quotes))
	for _, q := range quotes {
		call, err := m.OpenOrderCall(q.Amount, q.Side, q.Price, fee)
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}
	return calls, nil
}
