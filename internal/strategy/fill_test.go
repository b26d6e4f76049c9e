package strategy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dantezy/spark-market-scripts/internal/market"
)

func TestFillQuotesDefault(t *testing.T) {
	sells, buys := FillQuotes(DefaultFillConfig(), ethUSDC)

	require.Empty(t, sells)
	require.Len(t, buys, 5)

	wantPrices := []string{"1000000000000", "900000000000", "800000000000", "700000000000", "600000000000"}
	for i, q := range buys {
		require.Equal(t, market.Buy, q.Side)
		require.Equal(t, wantPrices[i], q.Price.String())
	}
	// 1 USDC at 1000 buys 0.001 ETH
	require.Equal(t, "1000000", buys[0].Amount.String())

	need := ethUSDC.Required(buys)
	require.Zero(t, need.Base.Sign())
	require.InDelta(t, 5, float64(need.Quote.Int64())/1e6, 0.01)
}

func TestFillQuotesSells(t *testing.T) {
	cfg := FillConfig{SellStart: 4400, SellStep: 100, Sells: 3, SellAmount: 0.001}
	sells, buys := FillQuotes(cfg, ethUSDC)

	require.Empty(t, buys)
	require.Len(t, sells, 3)
	require.Equal(t, "4600000000000", sells[2].Price.String())
	for _, q := range sells {
		require.Equal(t, market.Sell, q.Side)
		require.Equal(t, "1000000", q.Amount.String())
	}
	require.Equal(t, "3000000", ethUSDC.Required(sells).Base.String())
}

func TestFillQuotesPercent(t *testing.T) {
	cfg := FillConfig{BuyStart: 0.018, BuyStep: 0.1, Buys: 3, BuyQuote: 0.3, Percent: true}
	_, buys := FillQuotes(cfg, ethUSDC)

	require.Len(t, buys, 3)
	require.Equal(t, "18000000", buys[0].Price.String())
	require.Equal(t, "16200000", buys[1].Price.String())
	require.Equal(t, "14580000", buys[2].Price.String())
}

func TestFillQuotesStopsAtZero(t *testing.T) {
	cfg := FillConfig{BuyStart: 300, BuyStep: 100, Buys: 5, BuyQuote: 1}
	_, buys := FillQuotes(cfg, ethUSDC)
	require.Len(t, buys, 3)
}
