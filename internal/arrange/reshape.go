package arrange

import (
	"math"
	"sort"
	"strings"

	"github.com/pathways-lab/scenario-explorer/internal/core/facttable"
)

// columnSep joins column label parts into a display name.
const columnSep = " / "

// Column is one value column of a wide table: a label per column dimension.
type Column struct {
	Labels []string
}

// Name returns the column's display name.
func (c Column) Name() string {
	if len(c.Labels) == 0 {
		return facttable.ValueColumn
	}
	return strings.Join(c.Labels, columnSep)
}

// WideRow is one row of a wide table: the row key plus a value per column.
// Missing cells are NaN.
type WideRow struct {
	Key    []string
	Values []float64
}

// XYPair names the two series of a scatter-style table.
type XYPair struct {
	X []string
	Y []string
}

// WideTable is the pipeline output: a pivot of the reduced fact table.
type WideTable struct {
	// Index names the row key dimensions.
	Index []string
	// ColumnDims names the dimensions whose labels make up each column.
	ColumnDims []string
	Columns    []Column
	Rows       []WideRow
	// XY is set when the table was built in XY mode.
	XY *XYPair
}

// Empty reports whether the table holds no cells.
func (w *WideTable) Empty() bool {
	return w == nil || len(w.Rows) == 0 || len(w.Columns) == 0
}

// Column returns the values of column i, top to bottom.
func (w *WideTable) Column(i int) []float64 {
	out := make([]float64, len(w.Rows))
	for r, row := range w.Rows {
		out[r] = row.Values[i]
	}
	return out
}

// Stack turns the table back into long form, skipping missing (NaN) cells.
func (w *WideTable) Stack() (*facttable.Table, error) {
	dims := append(append([]string(nil), w.Index...), w.ColumnDims...)
	var rows []facttable.Row
	for _, r := range w.Rows {
		for j, v := range r.Values {
			if math.IsNaN(v) {
				continue
			}
			labels := append(append([]string(nil), r.Key...), w.Columns[j].Labels...)
			rows = append(rows, facttable.Row{Labels: labels, Value: v})
		}
	}
	return facttable.New(dims, rows)
}

// labelOrder ranks labels per dimension: explicit order first, natural after.
type labelOrder map[string]map[string]int

func newLabelOrder(t *facttable.Table) labelOrder {
	out := make(labelOrder)
	for _, d := range t.Dimensions() {
		order := t.Order(d)
		if len(order) == 0 {
			continue
		}
		pos := make(map[string]int, len(order))
		for i, l := range order {
			pos[l] = i
		}
		out[d] = pos
	}
	return out
}

func (o labelOrder) compare(dims []string, a, b []string) int {
	for i, d := range dims {
		ia, oka := o[d][a[i]]
		ib, okb := o[d][b[i]]
		var c int
		switch {
		case oka && okb:
			c = ia - ib
		case oka:
			c = -1
		case okb:
			c = 1
		default:
			c = facttable.CompareLabels(a[i], b[i])
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

// reshape pivots t: x dimensions form the row key, every other dimension is
// part of the column labels.
func reshape(t *facttable.Table, x []string, xy bool) (*WideTable, error) {
	if err := requireDims(t, StageReshape, x...); err != nil {
		return nil, err
	}
	axis := make(map[string]bool, len(x))
	for _, d := range x {
		axis[d] = true
	}
	var colDims []string
	for _, d := range t.Dimensions() {
		if !axis[d] {
			colDims = append(colDims, d)
		}
	}
	rowPos := positions(t, x)
	colPos := positions(t, colDims)

	rowKeys, rowIdx := distinctKeys(t, rowPos)
	colKeys, colIdx := distinctKeys(t, colPos)

	order := newLabelOrder(t)
	sort.SliceStable(rowKeys, func(i, j int) bool { return order.compare(x, rowKeys[i], rowKeys[j]) < 0 })
	sort.SliceStable(colKeys, func(i, j int) bool { return order.compare(colDims, colKeys[i], colKeys[j]) < 0 })
	for i, k := range rowKeys {
		rowIdx[facttable.Key(k)] = i
	}
	for i, k := range colKeys {
		colIdx[facttable.Key(k)] = i
	}

	w := &WideTable{
		Index:      append([]string(nil), x...),
		ColumnDims: colDims,
		Columns:    make([]Column, len(colKeys)),
		Rows:       make([]WideRow, len(rowKeys)),
	}
	for j, k := range colKeys {
		w.Columns[j] = Column{Labels: k}
	}
	for i, k := range rowKeys {
		values := make([]float64, len(colKeys))
		for j := range values {
			values[j] = math.NaN()
		}
		w.Rows[i] = WideRow{Key: k, Values: values}
	}
	for _, r := range t.Rows() {
		i := rowIdx[groupKey(r.Labels, rowPos)]
		j := colIdx[groupKey(r.Labels, colPos)]
		w.Rows[i].Values[j] = r.Value
	}

	if !xy || len(w.Rows) == 0 {
		return w, nil
	}
	if len(w.Rows) < 2 {
		return nil, mismatch(StageReshape, strings.Join(x, ","), "xy needs at least two row keys, have %d", len(w.Rows))
	}
	return w.transpose(), nil
}

// transpose swaps rows and columns and records the first two former row keys
// as the X/Y pair.
func (w *WideTable) transpose() *WideTable {
	out := &WideTable{
		Index:      w.ColumnDims,
		ColumnDims: w.Index,
		Columns:    make([]Column, len(w.Rows)),
		Rows:       make([]WideRow, len(w.Columns)),
		XY: &XYPair{
			X: append([]string(nil), w.Rows[0].Key...),
			Y: append([]string(nil), w.Rows[1].Key...),
		},
	}
	for i, r := range w.Rows {
		out.Columns[i] = Column{Labels: r.Key}
	}
	for j, c := range w.Columns {
		out.Rows[j] = WideRow{Key: c.Labels, Values: w.Column(j)}
	}
	return out
}

// rename substitutes display names in row keys, column labels and the XY pair.
func (w *WideTable) rename(naming map[string]string) {
	sub := func(labels []string) {
		for i, l := range labels {
			if v, ok := naming[l]; ok {
				labels[i] = v
			}
		}
	}
	for i := range w.Rows {
		sub(w.Rows[i].Key)
	}
	for i := range w.Columns {
		sub(w.Columns[i].Labels)
	}
	if w.XY != nil {
		sub(w.XY.X)
		sub(w.XY.Y)
	}
}

func positions(t *facttable.Table, dims []string) []int {
	out := make([]int, len(dims))
	for i, d := range dims {
		out[i] = t.Index(d)
	}
	return out
}

func distinctKeys(t *facttable.Table, pos []int) ([][]string, map[string]int) {
	idx := make(map[string]int)
	var keys [][]string
	for _, r := range t.Rows() {
		k := groupKey(r.Labels, pos)
		if _, ok := idx[k]; ok {
			continue
		}
		labels := make([]string, len(pos))
		for i, p := range pos {
			labels[i] = r.Labels[p]
		}
		idx[k] = len(keys)
		keys = append(keys, labels)
	}
	return keys, idx
}
