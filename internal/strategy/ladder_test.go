package strategy

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dantezy/spark-market-scripts/internal/market"
)

func gwei(v int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(v), big.NewInt(1_000_000_000))
}

func TestLadder(t *testing.T) {
	tests := []struct {
		name  string
		start *big.Int
		step  *big.Int
		count int
		dir   Direction
		want  []*big.Int
	}{
		{"buy side walks down", gwei(1000), gwei(100), 5, Down, []*big.Int{gwei(1000), gwei(900), gwei(800), gwei(700), gwei(600)}},
		{"sell side walks up", gwei(4400), gwei(100), 3, Up, []*big.Int{gwei(4400), gwei(4500), gwei(4600)}},
		{"stops before zero", gwei(200), gwei(100), 5, Down, []*big.Int{gwei(200), gwei(100)}},
		{"empty", gwei(4400), gwei(100), 0, Up, []*big.Int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Ladder(tt.start, tt.step, tt.count, tt.dir)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				require.Zero(t, tt.want[i].Cmp(got[i]), "level %d: got %s want %s", i, got[i], tt.want[i])
			}
		})
	}
}

func TestLadderDoesNotAliasStart(t *testing.T) {
	start := gwei(1000)
	prices := Ladder(start, gwei(100), 2, Up)
	prices[0].SetInt64(1)
	require.Zero(t, start.Cmp(gwei(1000)))
}

func TestLadderQuotes(t *testing.T) {
	quotes := LadderQuotes(market.Buy, big.NewInt(1_000_000), Ladder(gwei(1000), gwei(100), 2, Down))
	require.Len(t, quotes, 2)
	require.Equal(t, market.Buy, quotes[1].Side)
	require.Equal(t, int64(1_000_000), quotes[1].Amount.Int64())
	require.Zero(t, quotes[1].Price.Cmp(gwei(900)))
}

func TestTopUp(t *testing.T) {
	tests := []struct {
		name     string
		required int64
		liquid   *big.Int
		want     int64
	}{
		{"short", 5_000_000, big.NewInt(2_000_000), 3_000_000},
		{"covered", 5_000_000, big.NewInt(7_000_000), 0},
		{"exact", 5_000_000, big.NewInt(5_000_000), 0},
		{"nil liquid", 5_000_000, nil, 5_000_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, TopUp(big.NewInt(tt.required), tt.liquid).Int64())
		})
	}
}

func TestOutsideBand(t *testing.T) {
	mk := func(b byte, price int64) market.Order {
		return market.Order{ID: market.OrderID{b}, Price: gwei(price)}
	}
	orders := []market.Order{mk(1, 2900), mk(2, 2955), mk(3, 3000), mk(4, 3045), mk(5, 3100)}

	stale := OutsideBand(orders, gwei(2955), gwei(3045))
	require.Equal(t, []market.OrderID{{1}, {5}}, stale)
	require.Empty(t, OutsideBand(nil, gwei(1), gwei(2)))
}

func TestScaleCost(t *testing.T) {
	s := Scale{BaseDecimals: 8, QuoteDecimals: 6, PriceDecimals: 9}

	// one BTC at 60000 costs exactly 60000 USDC
	require.Equal(t, "60000000000", s.Cost(big.NewInt(100_000_000), gwei(60_000)).String())
	// a fraction of a unit rounds up
	require.Equal(t, int64(1), s.Cost(big.NewInt(1), gwei(1)).Int64())

	need := s.Required([]Quote{
		{Side: market.Sell, Amount: big.NewInt(100), Price: gwei(60_000)},
		{Side: market.Buy, Amount: big.NewInt(100_000_000), Price: gwei(60_000)},
		{Side: market.Sell, Amount: big.NewInt(50), Price: gwei(61_000)},
	})
	require.Equal(t, int64(150), need.Base.Int64())
	require.Equal(t, "60000000000", need.Quote.String())
}
