package units

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatValueWithDecimals(t *testing.T) {
	tests := []struct {
		value    uint64
		decimals uint32
		want     uint64
	}{
		{1, 8, 100_000_000},
		{1_000, 6, 1_000_000_000},
		{7, 0, 7},
		{1, 18, 1_000_000_000_000_000_000},
	}

	for _, tt := range tests {
		if got := FormatValueWithDecimals(tt.value, tt.decimals); got != tt.want {
			t.Errorf("FormatValueWithDecimals(%d, %d) = %d, want %d", tt.value, tt.decimals, got, tt.want)
		}
	}
}

func TestReadableRoundTrip(t *testing.T) {
	require.Equal(t, 1.0, FormatToReadableValue(100_000_000, 8))
	require.Equal(t, uint64(100_000_000), ScaleFloat(1.0, 8))

	values := []uint64{0, 1, 9, 12_345, 100_000_000, 2_100_000_000_000_000, 987_654_321_012, math.MaxUint64 - 1000, math.MaxUint64}
	for d := uint32(0); d <= 18; d++ {
		for _, x := range values {
			got := ScaleFloat(FormatToReadableValue(x, d), d)

			// float64 carries 53 bits, so very large values may drift by a few units
			tolerance := uint64(math.Max(1, float64(x)/(1<<52)))
			diff := got - x
			if x > got {
				diff = x - got
			}
			if diff > tolerance {
				t.Errorf("round trip of %d at %d decimals gave %d", x, d, got)
			}
		}
	}
}

func TestScaleFloat(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		decimals uint32
		want     uint64
	}{
		{"btc", 0.0123, 8, 1_230_000},
		{"usdc", 65_432.1, 6, 65_432_100_000},
		{"rounds half up", 0.000000015, 8, 2},
		{"negative", -1, 8, 0},
		{"zero", 0, 8, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ScaleFloat(tt.value, tt.decimals))
		})
	}
}

func TestBigConversions(t *testing.T) {
	require.Equal(t, "100000000", Whole(1, 8).String())
	require.Equal(t, "1230000", Amount(0.0123, 8).String())

	v := big.NewInt(123_456_789)
	require.Equal(t, "1.23456789", ToReadable(v, 8).String())
	require.Equal(t, "123.456789", Format(v, 6))
	require.Equal(t, "1.500000", Format(big.NewInt(1_500_000), 6))
	require.InDelta(t, 1.23456789, ToFloat(v, 8), 1e-12)
	require.True(t, ToReadable(nil, 8).IsZero())
}

func TestFromReadable(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		decimals uint32
		want     string
		wantErr  bool
	}{
		{"whole", "2", 8, "200000000", false},
		{"fraction", "0.015", 8, "1500000", false},
		{"usdc", "65432.10", 6, "65432100000", false},
		{"too precise", "0.0000001", 6, "", true},
		{"garbage", "abc", 6, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromReadable(tt.input, tt.decimals)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got.String())
		})
	}
}

func TestScaleFloatEdges(t *testing.T) {
	require.Equal(t, uint64(math.MaxUint64), ScaleFloat(float64(math.MaxUint64), 0))
	require.Equal(t, uint64(math.MaxUint64), ScaleFloat(1e30, 8))
	require.Zero(t, ScaleFloat(math.NaN(), 8))
	require.Zero(t, ScaleFloat(math.Inf(1), 8))
	require.Zero(t, ScaleFloat(math.Inf(-1), 8))

	require.Zero(t, Amount(math.NaN(), 8).Sign())
	require.Zero(t, Amount(math.Inf(1), 6).Sign())
	require.Equal(t, "150000000", Amount(1.5, 8).String())
}
