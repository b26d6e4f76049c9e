// Package units converts between human readable amounts and the fixed-point
// integers the market contract stores.
package units

import (
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// FormatValueWithDecimals scales a whole number of units to fixed point.
func FormatValueWithDecimals(value uint64, decimals uint32) uint64 {
	return value * pow10(decimals)
}

// FormatToReadableValue converts a fixed-point value to a float.
func FormatToReadableValue(value uint64, decimals uint32) float64 {
	return float64(value) / math.Pow10(int(decimals))
}

// ScaleFloat converts a readable float to fixed point, rounding to the
// nearest unit. Negative, NaN and infinite values scale to zero; values past
// the uint64 range saturate at math.MaxUint64.
func ScaleFloat(value float64, decimals uint32) uint64 {
	if value <= 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	bi := decimal.NewFromFloat(value).Shift(int32(decimals)).Round(0).BigInt()
	if !bi.IsUint64() {
		return math.MaxUint64
	}
	return bi.Uint64()
}

// Amount is ScaleFloat for big.Int amounts, exact for any magnitude.
// NaN and infinities give zero.
func Amount(value float64, decimals uint32) *big.Int {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return new(big.Int)
	}
	return decimal.NewFromFloat(value).Shift(int32(decimals)).Round(0).BigInt()
}

// Whole returns value * 10^decimals as a big.Int.
func Whole(value int64, decimals uint32) *big.Int {
	return decimal.NewFromInt(value).Shift(int32(decimals)).BigInt()
}

// ToReadable converts a fixed-point big.Int to a decimal.
func ToReadable(value *big.Int, decimals uint32) decimal.Decimal {
	if value == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(value, -int32(decimals))
}

// ToFloat converts a fixed-point big.Int to a float for display.
func ToFloat(value *big.Int, decimals uint32) float64 {
	f, _ := ToReadable(value, decimals).Float64()
	return f
}

// Format renders a fixed-point big.Int with exactly decimals places.
func Format(value *big.Int, decimals uint32) string {
	return ToReadable(value, decimals).StringFixed(int32(decimals))
}

// FromReadable parses a decimal string such as "0.015" into fixed point.
// Digits beyond the given precision are an error rather than being rounded.
func FromReadable(s string, decimals uint32) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("invalid amount %q: more than %d decimal places", s, decimals)
	}
	return scaled.BigInt(), nil
}

func pow10(decimals uint32) uint64 {
	p := uint64(1)
	for i := uint32(0); i < decimals; i++ {
		p *= 10
	}
	return p
}
