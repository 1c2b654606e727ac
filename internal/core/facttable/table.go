package facttable

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// ValueColumn is the name of the single measure column of every fact table.
const ValueColumn = "VALUE"

// keySep joins labels into a composite key. It never appears in model labels.
const keySep = "\x1f"

var (
	// ErrDuplicateKey is returned when two rows share the same dimension tuple.
	ErrDuplicateKey = errors.New("duplicate composite key")
	// ErrUnknownDimension is returned when an operation names a dimension the table does not have.
	ErrUnknownDimension = errors.New("unknown dimension")
)

// Row is one fact: a label per dimension plus the measured VALUE.
type Row struct {
	Labels []string
	Value  float64
}

// Table is a relation with one numeric measure and a unique composite key
// made of zero or more dimensions. Tables are treated as immutable: every
// operation returns a new Table.
type Table struct {
	dims  []string
	index map[string]int
	rows  []Row

	// explicit label order per dimension, set by WithOrder
	order map[string][]string
}

// New builds a table and validates its shape and key uniqueness.
func New(dims []string, rows []Row) (*Table, error) {
	t, err := newTable(dims, cloneRows(rows))
	if err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// MustNew is like New but panics on error. Intended for fixtures.
func MustNew(dims []string, rows []Row) *Table {
	t, err := New(dims, rows)
	if err != nil {
		panic(err)
	}
	return t
}

// Empty returns a table with the given dimensions and no rows.
func Empty(dims []string) *Table {
	t, _ := newTable(dims, nil)
	return t
}

func newTable(dims []string, rows []Row) (*Table, error) {
	index := make(map[string]int, len(dims))
	for i, d := range dims {
		if d == "" {
			return nil, fmt.Errorf("dimension %d has an empty name", i)
		}
		if d == ValueColumn {
			return nil, fmt.Errorf("dimension name %q is reserved", d)
		}
		if _, exists := index[d]; exists {
			return nil, fmt.Errorf("dimension %q declared twice", d)
		}
		index[d] = i
	}
	for i, r := range rows {
		if len(r.Labels) != len(dims) {
			return nil, fmt.Errorf("row %d has %d labels, table has %d dimensions", i, len(r.Labels), len(dims))
		}
	}
	return &Table{
		dims:  append([]string(nil), dims...),
		index: index,
		rows:  rows,
	}, nil
}

// Validate checks that no two rows share a composite key.
func (t *Table) Validate() error {
	seen := make(map[string]int, len(t.rows))
	for i, r := range t.rows {
		k := Key(r.Labels)
		if prev, dup := seen[k]; dup {
			return fmt.Errorf("%w: rows %d and %d both have (%s)", ErrDuplicateKey, prev, i, strings.Join(r.Labels, ", "))
		}
		seen[k] = i
	}
	return nil
}

// Key encodes a label tuple as a single map key.
func Key(labels []string) string {
	return strings.Join(labels, keySep)
}

// Dimensions returns the ordered dimension names.
func (t *Table) Dimensions() []string {
	return append([]string(nil), t.dims...)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// HasDimension reports whether dim is part of the composite key.
func (t *Table) HasDimension(dim string) bool {
	_, ok := t.index[dim]
	return ok
}

// Index returns the position of dim in the key, or -1.
func (t *Table) Index(dim string) int {
	if i, ok := t.index[dim]; ok {
		return i
	}
	return -1
}

// Rows returns a copy of the rows.
func (t *Table) Rows() []Row {
	return cloneRows(t.rows)
}

// Row returns a copy of row i.
func (t *Table) Row(i int) Row {
	r := t.rows[i]
	return Row{Labels: append([]string(nil), r.Labels...), Value: r.Value}
}

// Value looks up the VALUE stored under the given labels.
func (t *Table) Value(labels ...string) (float64, bool) {
	if len(labels) != len(t.dims) {
		return 0, false
	}
	k := Key(labels)
	for _, r := range t.rows {
		if Key(r.Labels) == k {
			return r.Value, true
		}
	}
	return 0, false
}

// Sum adds VALUE over all rows, skipping NaN.
func (t *Table) Sum() float64 {
	var total float64
	for _, r := range t.rows {
		if !math.IsNaN(r.Value) {
			total += r.Value
		}
	}
	return total
}

// Distinct returns the labels of dim in first-encountered order.
func (t *Table) Distinct(dim string) ([]string, error) {
	i, err := t.lookup(dim)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var out []string
	for _, r := range t.rows {
		l := r.Labels[i]
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out, nil
}

// Clone returns a deep copy, including explicit orders.
func (t *Table) Clone() *Table {
	return t.derive(t.dims, cloneRows(t.rows))
}

// Filter keeps the rows for which keep returns true.
func (t *Table) Filter(keep func(Row) bool) *Table {
	rows := make([]Row, 0, len(t.rows))
	for _, r := range t.rows {
		if keep(r) {
			rows = append(rows, Row{Labels: append([]string(nil), r.Labels...), Value: r.Value})
		}
	}
	return t.derive(t.dims, rows)
}

// MapValues replaces every VALUE with fn(row). Keys are unchanged.
func (t *Table) MapValues(fn func(Row) float64) *Table {
	rows := cloneRows(t.rows)
	for i := range rows {
		rows[i].Value = fn(t.rows[i])
	}
	return t.derive(t.dims, rows)
}

// DropDimensions removes dims from the key. The remaining key must still be unique.
func (t *Table) DropDimensions(dims ...string) (*Table, error) {
	drop := make(map[string]bool, len(dims))
	for _, d := range dims {
		if _, err := t.lookup(d); err != nil {
			return nil, err
		}
		drop[d] = true
	}
	var keep []int
	var kept []string
	for i, d := range t.dims {
		if !drop[d] {
			keep = append(keep, i)
			kept = append(kept, d)
		}
	}
	rows := make([]Row, len(t.rows))
	for i, r := range t.rows {
		rows[i] = Row{Labels: pick(r.Labels, keep), Value: r.Value}
	}
	out := t.derive(kept, rows)
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// GroupSum sums VALUE over rows sharing the same labels at dims. The result
// is keyed by dims, in the given order, and sorted naturally. NaN values are
// skipped; a group of only NaN sums to zero.
func (t *Table) GroupSum(dims []string) (*Table, error) {
	pos := make([]int, len(dims))
	for i, d := range dims {
		p, err := t.lookup(d)
		if err != nil {
			return nil, err
		}
		pos[i] = p
	}
	if _, err := newTable(dims, nil); err != nil {
		return nil, err
	}
	return t.sumBy(dims, func(r Row) []string { return pick(r.Labels, pos) }), nil
}

// RelabelSum rewrites labels with fn (called with the dimension name and the
// current label) and re-sums VALUE over the full key so it stays unique.
func (t *Table) RelabelSum(fn func(dim, label string) string) *Table {
	return t.sumBy(t.dims, func(r Row) []string {
		out := make([]string, len(r.Labels))
		for i, l := range r.Labels {
			out[i] = fn(t.dims[i], l)
		}
		return out
	})
}

func (t *Table) sumBy(dims []string, keyOf func(Row) []string) *Table {
	sums := make(map[string]int)
	var rows []Row
	for _, r := range t.rows {
		labels := keyOf(r)
		k := Key(labels)
		i, ok := sums[k]
		if !ok {
			i = len(rows)
			sums[k] = i
			rows = append(rows, Row{Labels: labels})
		}
		if !math.IsNaN(r.Value) {
			rows[i].Value += r.Value
		}
	}
	sortRows(rows)
	return t.derive(dims, rows)
}

// SortByKey returns the table with rows in natural key order.
func (t *Table) SortByKey() *Table {
	rows := cloneRows(t.rows)
	sortRows(rows)
	return t.derive(t.dims, rows)
}

// WithOrder attaches an explicit label order for dim. Labels not listed keep
// their natural order after the listed ones.
func (t *Table) WithOrder(dim string, labels []string) (*Table, error) {
	if _, err := t.lookup(dim); err != nil {
		return nil, err
	}
	out := t.derive(t.dims, cloneRows(t.rows))
	out.order[dim] = append([]string(nil), labels...)
	return out, nil
}

// Order returns the explicit label order attached to dim, if any.
func (t *Table) Order(dim string) []string {
	return append([]string(nil), t.order[dim]...)
}

// derive builds a table sharing metadata (explicit orders of surviving dims).
func (t *Table) derive(dims []string, rows []Row) *Table {
	out, err := newTable(dims, rows)
	if err != nil {
		// dims and rows come from an already valid table
		panic(err)
	}
	out.order = make(map[string][]string)
	for d, o := range t.order {
		if out.HasDimension(d) {
			out.order[d] = o
		}
	}
	return out
}

func (t *Table) lookup(dim string) (int, error) {
	i, ok := t.index[dim]
	if !ok {
		return -1, fmt.Errorf("%w %q (have %s)", ErrUnknownDimension, dim, strings.Join(t.dims, ", "))
	}
	return i, nil
}

func pick(labels []string, pos []int) []string {
	out := make([]string, len(pos))
	for i, p := range pos {
		out[i] = labels[p]
	}
	return out
}

func cloneRows(rows []Row) []Row {
	if rows == nil {
		return nil
	}
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = Row{Labels: append([]string(nil), r.Labels...), Value: r.Value}
	}
	return out
}

func sortRows(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		return CompareKeys(rows[i].Labels, rows[j].Labels) < 0
	})
}
