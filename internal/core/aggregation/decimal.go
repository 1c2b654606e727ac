package aggregation

import (
	"math"

	"github.com/shopspring/decimal"
)

// Fold merges the values reported for one cell with agg using exact decimal
// arithmetic and returns the result as float64. NaN values are skipped; if
// none remain the result is agg.Missing(). ±Inf cannot be represented as a
// decimal, so a group holding one is folded in float arithmetic.
func Fold(agg Aggregator, values []float64) float64 {
	present := make([]float64, 0, len(values))
	infinite := false
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if math.IsInf(v, 0) {
			infinite = true
		}
		present = append(present, v)
	}
	if len(present) == 0 {
		return agg.Missing()
	}
	if infinite {
		return foldFloat(agg, present)
	}

	acc := decimal.NewFromFloat(present[0])
	for _, v := range present[1:] {
		acc = agg.Combine(acc, decimal.NewFromFloat(v))
	}
	f, _ := acc.Float64()
	return f
}

func foldFloat(agg Aggregator, values []float64) float64 {
	out := values[0]
	for _, v := range values[1:] {
		switch agg.(type) {
		case minAgg:
			out = math.Min(out, v)
		case maxAgg:
			out = math.Max(out, v)
		default:
			out += v
		}
	}
	return out
}

// ParseValue parses a VALUE cell. Returns decimal.Zero and false for empty
// or malformed input.
func ParseValue(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
