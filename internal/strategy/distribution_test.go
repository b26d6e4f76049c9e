package strategy

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dantezy/spark-market-scripts/internal/market"
	"github.com/dantezy/spark-market-scripts/internal/units"
)

var btcUSDC = Scale{BaseDecimals: 8, QuoteDecimals: 6, PriceDecimals: 9}

func TestNormalPDF(t *testing.T) {
	require.InDelta(t, 1/math.Sqrt(2*math.Pi), NormalPDF(0, 0, 1), 1e-12)
	require.InDelta(t, NormalPDF(-1.5, 0, 1), NormalPDF(1.5, 0, 1), 1e-15)
	require.Less(t, NormalPDF(3, 0, 1), NormalPDF(1, 0, 1))
	require.Zero(t, NormalPDF(1, 0, 0))
}

func TestGrid(t *testing.T) {
	cfg := DefaultGridConfig()
	require.Equal(t, 101, cfg.Levels())

	levels := Grid(60_000, cfg)
	require.Len(t, levels, 101)
	require.Equal(t, 55_000.0, levels[0].Price)
	require.Equal(t, 65_000.0, levels[100].Price)

	total := 0.0
	heaviest := 0
	for i, l := range levels {
		total += l.Weight
		if l.Weight > levels[heaviest].Weight {
			heaviest = i
		}
	}
	require.InDelta(t, 1, total, 1e-9)
	require.Equal(t, 50, heaviest)
	require.InDelta(t, levels[10].Weight, levels[90].Weight, 1e-12)
}

func TestGridDropsNonPositivePrices(t *testing.T) {
	cfg := DefaultGridConfig()
	cfg.Range = 500
	levels := Grid(300, cfg)

	require.Len(t, levels, 8) // 100..800
	require.Equal(t, 100.0, levels[0].Price)
}

func smallGrid() GridConfig {
	return GridConfig{
		Range:      500,
		Step:       100,
		TotalBase:  0.15,
		TotalQuote: 1000,
		MinBase:    0.0001,
		MinQuote:   1,
	}
}

func TestNormalGrid(t *testing.T) {
	quotes := NormalGrid(60_000, smallGrid(), btcUSDC)
	require.Len(t, quotes, 22)

	sells, buys := new(big.Int), 0.0
	for i, q := range quotes {
		if i%2 == 0 {
			require.Equal(t, market.Sell, q.Side)
			sells.Add(sells, q.Amount)
		} else {
			require.Equal(t, market.Buy, q.Side)
			require.Zero(t, q.Price.Cmp(quotes[i-1].Price))
			buys += units.ToFloat(btcUSDC.Cost(q.Amount, q.Price), btcUSDC.QuoteDecimals)
		}
	}
	require.InDelta(t, 0.15, units.ToFloat(sells, btcUSDC.BaseDecimals), 1e-6)
	require.InDelta(t, 1000, buys, 0.01)
}

func TestNormalGridSkipsNegligibleLevels(t *testing.T) {
	cfg := smallGrid()
	cfg.TotalBase = 0.0001
	cfg.TotalQuote = 1

	// no level carries enough weight for either side
	quotes := NormalGrid(60_000, cfg, btcUSDC)
	require.Empty(t, quotes)

	cfg.TotalBase = 0.01
	cfg.TotalQuote = 0
	quotes = NormalGrid(60_000, cfg, btcUSDC)
	for _, q := range quotes {
		require.Equal(t, market.Sell, q.Side)
	}
	require.NotEmpty(t, quotes)
	require.Less(t, len(quotes), 11)
}

func TestAlternating(t *testing.T) {
	quotes := Alternating(60_000, 4, 10, btcUSDC)
	require.Len(t, quotes, 4)

	for i, q := range quotes {
		want := market.Buy
		if i%2 == 1 {
			want = market.Sell
		}
		require.Equal(t, want, q.Side)
		require.Equal(t, int64(16_667), q.Amount.Int64())
		require.Equal(t, "60000000000000", q.Price.String())
	}

	require.Empty(t, Alternating(0, 4, 10, btcUSDC))
}
