package aggregation

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// Merge operators for cells that several result packages report under the
// same composite key.
const (
	OpSum = "sum"
	OpMin = "min"
	OpMax = "max"
)

// Aggregator combines the values different packages report for one cell.
// To add a new operator: implement this interface and register it in Operators.
type Aggregator interface {
	// Combine folds the next package's value into the running cell value.
	Combine(cell, next decimal.Decimal) decimal.Decimal

	// Missing is the merged value of a cell no package reported a number for.
	Missing() float64
}

// Operators is the registry of all supported merge operators.
var Operators = map[string]Aggregator{
	OpSum: sumAgg{},
	OpMin: minAgg{},
	OpMax: maxAgg{},
}

// ValidOperator reports whether op is a registered merge operator.
func ValidOperator(op string) bool {
	_, ok := Operators[op]
	return ok
}

// OperatorNames lists the registered operators in sorted order.
func OperatorNames() []string {
	names := make([]string, 0, len(Operators))
	for op := range Operators {
		names = append(names, op)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the registered aggregator for op.
func Lookup(op string) (Aggregator, error) {
	agg, ok := Operators[op]
	if !ok {
		return nil, fmt.Errorf("unsupported merge operator %q (want one of %v)", op, OperatorNames())
	}
	return agg, nil
}

// sumAgg adds the packages' values; a cell reported by none is zero.
type sumAgg struct{}

func (sumAgg) Combine(cell, next decimal.Decimal) decimal.Decimal { return cell.Add(next) }
func (sumAgg) Missing() float64                                    { return 0 }

type minAgg struct{}

func (minAgg) Combine(cell, next decimal.Decimal) decimal.Decimal {
	return decimal.Min(cell, next)
}
func (minAgg) Missing() float64 { return math.NaN() }

type maxAgg struct{}

func (maxAgg) Combine(cell, next decimal.Decimal) decimal.Decimal {
	return decimal.Max(cell, next)
}
func (maxAgg) Missing() float64 { return math.NaN() }
