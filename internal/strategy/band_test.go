package strategy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dantezy/spark-market-scripts/internal/market"
	"github.com/dantezy/spark-market-scripts/internal/units"
)

var ethUSDC = Scale{BaseDecimals: 9, QuoteDecimals: 6, PriceDecimals: 9}

func TestBand(t *testing.T) {
	cfg := DefaultBandConfig()
	band, err := Band(3000, cfg, ethUSDC)
	require.NoError(t, err)

	require.InDelta(t, 2955, band.Low, 1e-9)
	require.InDelta(t, 3045, band.High, 1e-9)
	require.Equal(t, "2955000000000", band.LowPrice.String())
	require.Equal(t, "3045000000000", band.HighPrice.String())
	require.Equal(t, 10.0, cfg.OrderSizeUSD())

	require.Len(t, band.Quotes, 2*cfg.Levels)
	for i, q := range band.Quotes {
		want := market.Sell
		if i%2 == 1 {
			want = market.Buy
		}
		require.Equal(t, want, q.Side, "quote %d", i)

		price := ethUSDC.ReadablePrice(q.Price)
		value := units.ToFloat(q.Amount, ethUSDC.BaseDecimals) * price
		require.InDelta(t, cfg.OrderSizeUSD(), value, 1e-5, "quote %d is not worth $10", i)
	}

	// first level sits half a spread above and below the band floor
	require.InDelta(t, 2955*1.00005, ethUSDC.ReadablePrice(band.Quotes[0].Price), 1e-6)
	require.InDelta(t, 2955*0.99995, ethUSDC.ReadablePrice(band.Quotes[1].Price), 1e-6)
	// last level sits at the band ceiling
	require.InDelta(t, 3045*1.00005, ethUSDC.ReadablePrice(band.Quotes[8].Price), 1e-6)

	require.InDelta(t, 50, units.ToFloat(band.Required.Quote, ethUSDC.QuoteDecimals), 0.001)
	require.InDelta(t, 5*10/3000.0, units.ToFloat(band.Required.Base, ethUSDC.BaseDecimals), 1e-4)
}

func TestBandSkipsDustOrders(t *testing.T) {
	cfg := DefaultBandConfig()
	cfg.BudgetUSD = 0.001

	band, err := Band(3000, cfg, ethUSDC)
	require.NoError(t, err)
	require.Empty(t, band.Quotes)
	require.Zero(t, band.Required.Base.Sign())
	require.Zero(t, band.Required.Quote.Sign())
}

func TestBandRejectsBadInput(t *testing.T) {
	for _, ref := range []float64{0, -1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := Band(ref, DefaultBandConfig(), ethUSDC)
		require.Error(t, err, "ref %v", ref)
	}

	cfg := DefaultBandConfig()
	cfg.Levels = 1
	_, err := Band(3000, cfg, ethUSDC)
	require.Error(t, err)
}
