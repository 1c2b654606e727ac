// Package netzero finds, per emission series, the first year in which
// annualized emissions fall to a small fraction of their base-year level.
package netzero

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/pathways-lab/scenario-explorer/internal/arrange"
	"github.com/pathways-lab/scenario-explorer/internal/core/facttable"
	"github.com/pathways-lab/scenario-explorer/internal/results"
)

// Defaults used when Options leaves a field empty.
const (
	DefaultVariable  = "AnnualEmissions"
	DefaultBaseYear  = "2015"
	DefaultThreshold = 0.05
)

// ErrNoBaseYear is returned when no row of the table is in the base year.
var ErrNoBaseYear = errors.New("base year not present")

// Options configures the analysis.
type Options struct {
	// YearDimension defaults to arrange.YearDimension.
	YearDimension string
	BaseYear      string
	// Threshold is the ratio to the base year counted as net zero. Zero
	// means DefaultThreshold.
	Threshold float64
	// Periods annualizes values before normalizing; nil skips scaling.
	Periods map[string]float64
}

func (o Options) withDefaults() Options {
	if o.YearDimension == "" {
		o.YearDimension = arrange.YearDimension
	}
	if o.BaseYear == "" {
		o.BaseYear = DefaultBaseYear
	}
	if o.Threshold == 0 {
		o.Threshold = DefaultThreshold
	}
	return o
}

// Analyze looks up variable in rs and runs Compute on it.
func Analyze(rs *results.ResultSet, variable string, opts Options) (*facttable.Table, error) {
	if variable == "" {
		variable = DefaultVariable
	}
	t, ok := rs.Table(variable)
	if !ok {
		return nil, fmt.Errorf("%w: %q", arrange.ErrVariableNotFound, variable)
	}
	return Compute(t, opts)
}

// Compute returns a table keyed by every dimension except the year one,
// whose VALUE is the first year the series' annualized emissions, relative
// to the base year, are at or below the threshold. Series that never get
// there, or have no usable base-year value, are left out.
func Compute(t *facttable.Table, opts Options) (*facttable.Table, error) {
	opts = opts.withDefaults()

	cfg := arrange.NewBuilder(opts.YearDimension).Cleanup(false)
	if opts.Periods != nil {
		cfg.XScale(arrange.PeriodScale(opts.YearDimension, opts.Periods))
	}
	scaled, err := arrange.Reduce(t, cfg.Build())
	if err != nil {
		return nil, err
	}
	if !scaled.HasDimension(opts.YearDimension) {
		return nil, fmt.Errorf("%w: no dimension %q", arrange.ErrConfigurationMismatch, opts.YearDimension)
	}

	yearPos := scaled.Index(opts.YearDimension)
	var groupDims []string
	var groupPos []int
	for i, d := range scaled.Dimensions() {
		if i != yearPos {
			groupDims = append(groupDims, d)
			groupPos = append(groupPos, i)
		}
	}
	base, err := baseValues(scaled, yearPos, groupPos, opts.BaseYear)
	if err != nil {
		return nil, err
	}

	type hit struct {
		labels []string
		year   float64
	}
	first := make(map[string]*hit)
	var order []string
	for _, r := range scaled.Rows() {
		year, ok := facttable.ParseNumber(r.Labels[yearPos])
		if !ok {
			return nil, fmt.Errorf("%w: year label %q is not numeric", arrange.ErrConfigurationMismatch, r.Labels[yearPos])
		}
		key, labels := groupOf(r.Labels, groupPos)
		b, ok := base[key]
		if !ok {
			continue
		}
		ratio := r.Value / b
		if math.IsNaN(ratio) || ratio > opts.Threshold {
			continue
		}
		h, seen := first[key]
		if !seen {
			first[key] = &hit{labels: labels, year: year}
			order = append(order, key)
			continue
		}
		if year < h.year {
			h.year = year
		}
	}

	sort.Strings(order)
	rows := make([]facttable.Row, 0, len(order))
	for _, k := range order {
		rows = append(rows, facttable.Row{Labels: first[k].labels, Value: first[k].year})
	}
	out, err := facttable.New(groupDims, rows)
	if err != nil {
		return nil, err
	}

	slog.Debug("[NetZero] Computed",
		"series", len(base),
		"reached", out.Len(),
		"base_year", opts.BaseYear,
		"threshold", opts.Threshold,
	)
	return out.SortByKey(), nil
}

func baseValues(t *facttable.Table, yearPos int, groupPos []int, baseYear string) (map[string]float64, error) {
	want, numeric := facttable.ParseNumber(baseYear)
	base := make(map[string]float64)
	for _, r := range t.Rows() {
		label := r.Labels[yearPos]
		if label != baseYear {
			y, ok := facttable.ParseNumber(label)
			if !numeric || !ok || y != want {
				continue
			}
		}
		key, _ := groupOf(r.Labels, groupPos)
		base[key] = r.Value
	}
	if len(base) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoBaseYear, baseYear)
	}
	return base, nil
}

func groupOf(labels []string, pos []int) (string, []string) {
	out := make([]string, len(pos))
	for i, p := range pos {
		out[i] = labels[p]
	}
	return facttable.Key(out), out
}
