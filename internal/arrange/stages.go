package arrange

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/pathways-lab/scenario-explorer/internal/core/facttable"
)

// Stage names, in execution order.
const (
	StageZFilter  = "zfilter"
	StageFilter   = "filter"
	StageXScale   = "xscale"
	StageZGroupBy = "zgroupby"
	StageCGroupBy = "cgroupby"
	StageRelative = "relative"
	StageAnChange = "an_change"
	StageFGroupBy = "fgroupby"
	StageFFilter  = "ffilter"
	StageCleanup  = "cleanup"
	StageReAgg    = "reagg"
	StageZOrder   = "zorder"
	StageReshape  = "reshape"
	StageNaming   = "naming"
)

// YearDimension is the numeric dimension used by the annualized change.
const YearDimension = "YEAR"

// cleanupTolerance is the maximum below which a table is considered all zero.
const cleanupTolerance = 1e-20

// Stage is one long-form reduction step.
type Stage struct {
	Name  string
	Apply func(*facttable.Table) (*facttable.Table, error)
}

// Stages returns the long-form stages the config enables, in execution
// order. Reshape and naming always follow them.
func (c Config) Stages() []Stage {
	var stages []Stage
	add := func(name string, fn func(*facttable.Table) (*facttable.Table, error)) {
		stages = append(stages, Stage{Name: name, Apply: fn})
	}

	if c.ZFilter != nil {
		add(StageZFilter, func(t *facttable.Table) (*facttable.Table, error) { return zfilter(t, c.ZFilter) })
	}
	if c.FilterIn != nil || c.FilterOut != nil {
		add(StageFilter, func(t *facttable.Table) (*facttable.Table, error) { return substringFilter(t, c.FilterIn, c.FilterOut) })
	}
	if c.XScale != nil {
		add(StageXScale, func(t *facttable.Table) (*facttable.Table, error) { return xscale(t, *c.XScale) })
	}
	if c.ZGroupBy != nil {
		add(StageZGroupBy, func(t *facttable.Table) (*facttable.Table, error) { return zgroupby(t, c.ZGroupBy, c.X) })
	}
	if c.CGroupBy != nil {
		add(StageCGroupBy, func(t *facttable.Table) (*facttable.Table, error) { return cgroupby(t, c.CGroupBy) })
	}
	if c.Relative != nil {
		add(StageRelative, func(t *facttable.Table) (*facttable.Table, error) { return relative(t, c.Relative) })
	}
	if c.AnChange {
		add(StageAnChange, anChange)
	}
	if c.FGroupBy != nil {
		add(StageFGroupBy, func(t *facttable.Table) (*facttable.Table, error) { return fgroupby(t, c.FGroupBy) })
	}
	if c.FFilter != nil {
		add(StageFFilter, func(t *facttable.Table) (*facttable.Table, error) { return ffilter(t, c.FFilter) })
	}
	if c.CleanupEnabled() {
		add(StageCleanup, cleanup)
	}
	if c.ReAgg != nil {
		add(StageReAgg, func(t *facttable.Table) (*facttable.Table, error) { return reagg(t, c.ReAgg), nil })
	}
	if c.ZOrder != nil {
		add(StageZOrder, func(t *facttable.Table) (*facttable.Table, error) { return zorder(t, *c.ZOrder, c.X) })
	}
	return stages
}

func requireDims(t *facttable.Table, stage string, dims ...string) error {
	for _, d := range dims {
		if !t.HasDimension(d) {
			return mismatch(stage, d, "not in table (have %s)", strings.Join(t.Dimensions(), ", "))
		}
	}
	return nil
}

func zfilter(t *facttable.Table, slice map[string]string) (*facttable.Table, error) {
	dims := sortedKeys(slice)
	if err := requireDims(t, StageZFilter, dims...); err != nil {
		return nil, err
	}
	pos := make([]int, len(dims))
	for i, d := range dims {
		pos[i] = t.Index(d)
	}
	kept := t.Filter(func(r facttable.Row) bool {
		for i, p := range pos {
			if r.Labels[p] != slice[dims[i]] {
				return false
			}
		}
		return true
	})
	// the sliced dimensions are constant now, dropping them keeps keys unique
	return kept.DropDimensions(dims...)
}

func substringFilter(t *facttable.Table, in, out map[string][]string) (*facttable.Table, error) {
	named := make(map[string]bool)
	for d := range in {
		named[d] = true
	}
	for d := range out {
		named[d] = true
	}
	dims := sortedKeys(named)
	if err := requireDims(t, StageFilter, dims...); err != nil {
		return nil, err
	}

	admissible := make(map[string]map[string]bool, len(dims))
	for _, d := range dims {
		labels, _ := t.Distinct(d)
		ok := make(map[string]bool, len(labels))
		for _, l := range labels {
			inc, hasIn := in[d]
			exc, hasOut := out[d]
			if (!hasIn || containsAny(l, inc)) && (!hasOut || !containsAny(l, exc)) {
				ok[l] = true
			}
		}
		admissible[d] = ok
	}

	return t.Filter(func(r facttable.Row) bool {
		for _, d := range dims {
			if !admissible[d][r.Labels[t.Index(d)]] {
				return false
			}
		}
		return true
	}), nil
}

func containsAny(label string, subs []string) bool {
	for _, s := range subs {
		if strings.Contains(label, s) {
			return true
		}
	}
	return false
}

func xscale(t *facttable.Table, s Scale) (*facttable.Table, error) {
	if err := requireDims(t, StageXScale, s.Dimension); err != nil {
		return nil, err
	}
	i := t.Index(s.Dimension)
	return t.MapValues(func(r facttable.Row) float64 {
		if f, ok := s.Factors[r.Labels[i]]; ok {
			return r.Value * f
		}
		return r.Value
	}), nil
}

func zgroupby(t *facttable.Table, by, x []string) (*facttable.Table, error) {
	if err := requireDims(t, StageZGroupBy, by...); err != nil {
		return nil, err
	}
	if err := requireDims(t, StageZGroupBy, x...); err != nil {
		return nil, err
	}
	keep := make(map[string]bool, len(by)+len(x))
	for _, d := range by {
		keep[d] = true
	}
	for _, d := range x {
		keep[d] = true
	}
	var dims []string
	for _, d := range t.Dimensions() {
		if keep[d] {
			dims = append(dims, d)
		}
	}
	return t.GroupSum(dims)
}

func cgroupby(t *facttable.Table, remaps []Remap) (*facttable.Table, error) {
	byDim := make(map[string]CategoryRemap, len(remaps))
	for _, r := range remaps {
		if err := requireDims(t, StageCGroupBy, r.Dimension); err != nil {
			return nil, err
		}
		if !r.Remap.Valid() {
			return nil, mismatch(StageCGroupBy, r.Dimension, "remap has neither a lookup table nor a function")
		}
		byDim[r.Dimension] = r.Remap
	}
	return t.RelabelSum(func(dim, label string) string {
		if r, ok := byDim[dim]; ok {
			return r.Apply(label)
		}
		return label
	}), nil
}

func relative(t *facttable.Table, rel *Relative) (*facttable.Table, error) {
	if err := requireDims(t, StageRelative, rel.Dimensions()...); err != nil {
		return nil, err
	}
	if rel.IsShares() {
		return shares(t, rel.dims)
	}
	return reference(t, rel.ref)
}

// shares divides each row by the sum of its group, the group being every
// row with the same labels outside dims.
func shares(t *facttable.Table, dims []string) (*facttable.Table, error) {
	over := make(map[string]bool, len(dims))
	for _, d := range dims {
		over[d] = true
	}
	var pos []int
	for i, d := range t.Dimensions() {
		if !over[d] {
			pos = append(pos, i)
		}
	}

	totals := make(map[string]float64)
	for _, r := range t.Rows() {
		if !math.IsNaN(r.Value) {
			totals[groupKey(r.Labels, pos)] += r.Value
		}
	}
	return t.MapValues(func(r facttable.Row) float64 {
		return r.Value / totals[groupKey(r.Labels, pos)]
	}), nil
}

// reference divides each row by the reference row sharing its labels outside
// the fixed dimensions. A missing reference gives NaN, a zero one ±Inf or NaN.
func reference(t *facttable.Table, ref map[string]string) (*facttable.Table, error) {
	var pos []int
	var fixedPos []int
	var fixedLabels []string
	for i, d := range t.Dimensions() {
		if label, ok := ref[d]; ok {
			fixedPos = append(fixedPos, i)
			fixedLabels = append(fixedLabels, label)
			continue
		}
		pos = append(pos, i)
	}

	refs := make(map[string]float64)
	for _, r := range t.Rows() {
		match := true
		for i, p := range fixedPos {
			if r.Labels[p] != fixedLabels[i] {
				match = false
				break
			}
		}
		if match {
			refs[groupKey(r.Labels, pos)] = r.Value
		}
	}
	return t.MapValues(func(r facttable.Row) float64 {
		base, ok := refs[groupKey(r.Labels, pos)]
		if !ok {
			return math.NaN()
		}
		return r.Value / base
	}), nil
}

func anChange(t *facttable.Table) (*facttable.Table, error) {
	if err := requireDims(t, StageAnChange, YearDimension); err != nil {
		return nil, err
	}
	yi := t.Index(YearDimension)
	var pos []int
	for i := range t.Dimensions() {
		if i != yi {
			pos = append(pos, i)
		}
	}

	type point struct {
		row  facttable.Row
		year float64
	}
	groups := make(map[string][]point)
	var order []string
	for _, r := range t.Rows() {
		y, ok := facttable.ParseNumber(r.Labels[yi])
		if !ok {
			return nil, mismatch(StageAnChange, YearDimension, "label %q is not numeric", r.Labels[yi])
		}
		k := groupKey(r.Labels, pos)
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], point{row: r, year: y})
	}

	var rows []facttable.Row
	for _, k := range order {
		pts := groups[k]
		sort.SliceStable(pts, func(i, j int) bool { return pts[i].year < pts[j].year })
		for i := 1; i < len(pts); i++ {
			prev, cur := pts[i-1], pts[i]
			rows = append(rows, facttable.Row{
				Labels: cur.row.Labels,
				Value:  (cur.row.Value - prev.row.Value) / (cur.year - prev.year),
			})
		}
	}
	out, err := facttable.New(t.Dimensions(), rows)
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", StageAnChange, err)
	}
	return out.SortByKey(), nil
}

// fgroupby keeps, per group of dims, the row with the largest |VALUE|.
func fgroupby(t *facttable.Table, dims []string) (*facttable.Table, error) {
	if err := requireDims(t, StageFGroupBy, dims...); err != nil {
		return nil, err
	}
	pos := make([]int, len(dims))
	for i, d := range dims {
		pos[i] = t.Index(d)
	}

	best := make(map[string]int)
	rows := t.Rows()
	for i, r := range rows {
		k := groupKey(r.Labels, pos)
		j, ok := best[k]
		if !ok {
			best[k] = i
			continue
		}
		cur := math.Abs(rows[j].Value)
		v := math.Abs(r.Value)
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(cur) || v > cur {
			best[k] = i
		}
	}

	winners := make(map[int]bool, len(best))
	for _, i := range best {
		winners[i] = true
	}
	i := -1
	return t.Filter(func(facttable.Row) bool {
		i++
		return winners[i]
	}), nil
}

func ffilter(t *facttable.Table, exact map[string]string) (*facttable.Table, error) {
	dims := sortedKeys(exact)
	if err := requireDims(t, StageFFilter, dims...); err != nil {
		return nil, err
	}
	return t.Filter(func(r facttable.Row) bool {
		for _, d := range dims {
			if r.Labels[t.Index(d)] != exact[d] {
				return false
			}
		}
		return true
	}), nil
}

// cleanup clamps negatives to zero and empties the table when its maximum is
// below tolerance. The guard applies to the whole table, not per category.
func cleanup(t *facttable.Table) (*facttable.Table, error) {
	clamped := t.MapValues(func(r facttable.Row) float64 {
		if r.Value < 0 {
			return 0
		}
		return r.Value
	})

	peak := math.Inf(-1)
	for _, r := range clamped.Rows() {
		if !math.IsNaN(r.Value) && r.Value > peak {
			peak = r.Value
		}
	}
	if peak < cleanupTolerance {
		return clamped.Filter(func(facttable.Row) bool { return false }), nil
	}
	return clamped, nil
}

func reagg(t *facttable.Table, mapping map[string]string) *facttable.Table {
	return t.RelabelSum(func(_, label string) string {
		if v, ok := mapping[label]; ok {
			return v
		}
		return label
	})
}

// zorder attaches a full label order to one dimension: listed labels present
// in the table first, then the others in encountered order.
func zorder(t *facttable.Table, o Order, x []string) (*facttable.Table, error) {
	dim := o.Dimension
	if dim == "" {
		dim = firstNonAxis(t, x)
		if dim == "" {
			return nil, mismatch(StageZOrder, "", "table has no non-axis dimension to order")
		}
	}
	if err := requireDims(t, StageZOrder, dim); err != nil {
		return nil, err
	}

	present, _ := t.Distinct(dim)
	has := make(map[string]bool, len(present))
	for _, l := range present {
		has[l] = true
	}
	listed := make(map[string]bool, len(o.Labels))
	var order []string
	for _, l := range o.Labels {
		if has[l] && !listed[l] {
			order = append(order, l)
			listed[l] = true
		}
	}
	for _, l := range present {
		if !listed[l] {
			order = append(order, l)
		}
	}
	return t.WithOrder(dim, order)
}

func firstNonAxis(t *facttable.Table, x []string) string {
	axis := make(map[string]bool, len(x))
	for _, d := range x {
		axis[d] = true
	}
	for _, d := range t.Dimensions() {
		if !axis[d] {
			return d
		}
	}
	return ""
}

func groupKey(labels []string, pos []int) string {
	parts := make([]string, len(pos))
	for i, p := range pos {
		parts[i] = labels[p]
	}
	return facttable.Key(parts)
}
