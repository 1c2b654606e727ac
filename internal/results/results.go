package results

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	coreagg "github.com/pathways-lab/scenario-explorer/internal/core/aggregation"
	"github.com/pathways-lab/scenario-explorer/internal/core/facttable"
)

// RunDimension is the dimension holding the scenario (run) code.
const RunDimension = "RUN"

// MergedName is the name of a result set built from several packages.
const MergedName = "aggregation_of_runs"

// ErrNoDataFound is returned when there is nothing to load. The accompanying
// ResultSet is empty, never nil.
var ErrNoDataFound = errors.New("no result data found")

// LegacyRunNames maps legacy scenario codes to their canonical names.
var LegacyRunNames = map[string]string{
	"NODE_UK|LA|SO": "nz-2050_hp-00",
	"NZ_UK|LA|SO":   "nz-2045_hp-00",
	"NZDH_UK|LA|SO": "nz-2040_hp-00",
	"NZHP_UK|LA|SO": "nz-2050_hp-01",
	"NZLP_UK|LA|SO": "nz-2045_hp-01",
	"NZHY_UK|LA|SO": "nz-2040_hp-01",
}

// RunPackage is the output of one model run: named fact tables plus the
// package's own run alias table.
type RunPackage struct {
	Name    string
	Tables  map[string]*facttable.Table
	Aliases map[string]string
}

// ResultSet is the merged, read-only view of one or more run packages.
type ResultSet struct {
	name   string
	tables map[string]*facttable.Table
}

// NewResultSet builds a result set over the given tables.
func NewResultSet(name string, tables map[string]*facttable.Table) *ResultSet {
	out := make(map[string]*facttable.Table, len(tables))
	for k, v := range tables {
		out[k] = v
	}
	return &ResultSet{name: name, tables: out}
}

// Name returns the set's name.
func (rs *ResultSet) Name() string { return rs.name }

// Len returns the number of variables.
func (rs *ResultSet) Len() int { return len(rs.tables) }

// Table returns the fact table of variable.
func (rs *ResultSet) Table(variable string) (*facttable.Table, bool) {
	t, ok := rs.tables[variable]
	return t, ok
}

// Variables returns the variable names in sorted order.
func (rs *ResultSet) Variables() []string {
	out := make([]string, 0, len(rs.tables))
	for k := range rs.tables {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Aggregator merges run packages into one ResultSet, folding overlapping
// facts with a registered aggregation operator.
type Aggregator struct {
	operator string
	agg      coreagg.Aggregator
}

// NewAggregator returns an aggregator folding overlaps with op (sum, min or max).
func NewAggregator(op string) (*Aggregator, error) {
	agg, err := coreagg.Lookup(op)
	if err != nil {
		return nil, err
	}
	return &Aggregator{operator: op, agg: agg}, nil
}

// Load merges packages by summing overlapping facts.
func Load(packages []RunPackage) (*ResultSet, error) {
	return (&Aggregator{operator: coreagg.OpSum, agg: coreagg.Operators[coreagg.OpSum]}).Load(packages)
}

// Load canonicalizes the RUN labels of every package and merges them. With a
// single package the set is that package under its own name; with several,
// the variables of the first package are merged across all packages defining
// them.
func (a *Aggregator) Load(packages []RunPackage) (*ResultSet, error) {
	if len(packages) == 0 {
		return NewResultSet("", nil), ErrNoDataFound
	}

	canonical := make([]RunPackage, len(packages))
	for i, p := range packages {
		canonical[i] = canonicalize(p)
	}

	if len(canonical) == 1 {
		return NewResultSet(canonical[0].Name, canonical[0].Tables), nil
	}

	first := canonical[0]
	merged := make(map[string]*facttable.Table, len(first.Tables))
	for _, variable := range sortedKeys(first.Tables) {
		base := first.Tables[variable]
		parts := []*facttable.Table{base}
		for _, p := range canonical[1:] {
			t, ok := p.Tables[variable]
			if !ok {
				continue
			}
			if !sameDimensions(base, t) {
				slog.Warn("[Results] Dropping table with mismatched dimensions from merge",
					"variable", variable,
					"package", p.Name,
					"expected", strings.Join(base.Dimensions(), ","),
					"got", strings.Join(t.Dimensions(), ","),
				)
				continue
			}
			parts = append(parts, t)
		}

		table, err := a.fold(base.Dimensions(), parts)
		if err != nil {
			return nil, fmt.Errorf("merge %s: %w", variable, err)
		}
		merged[variable] = table
	}

	slog.Info("[Results] Merged run packages",
		"packages", len(canonical),
		"variables", len(merged),
		"operator", a.operator,
	)
	return NewResultSet(MergedName, merged), nil
}

// fold concatenates parts (aligned to dims) and reduces values sharing a key.
func (a *Aggregator) fold(dims []string, parts []*facttable.Table) (*facttable.Table, error) {
	type group struct {
		labels []string
		values []float64
	}
	var groups []*group
	byKey := make(map[string]*group)

	for _, t := range parts {
		pos := make([]int, len(dims))
		for i, d := range dims {
			pos[i] = t.Index(d)
		}
		for _, r := range t.Rows() {
			labels := make([]string, len(dims))
			for i, p := range pos {
				labels[i] = r.Labels[p]
			}
			k := facttable.Key(labels)
			g, ok := byKey[k]
			if !ok {
				g = &group{labels: labels}
				byKey[k] = g
				groups = append(groups, g)
			}
			g.values = append(g.values, r.Value)
		}
	}

	rows := make([]facttable.Row, len(groups))
	for i, g := range groups {
		rows[i] = facttable.Row{Labels: g.labels, Value: coreagg.Fold(a.agg, g.values)}
	}
	t, err := facttable.New(dims, rows)
	if err != nil {
		return nil, err
	}
	return t.SortByKey(), nil
}

// canonicalize renames RUN labels through the legacy table overlaid with the
// package aliases, re-summing keys that collapse.
func canonicalize(p RunPackage) RunPackage {
	names := make(map[string]string, len(LegacyRunNames)+len(p.Aliases))
	for k, v := range LegacyRunNames {
		names[k] = v
	}
	for k, v := range p.Aliases {
		names[k] = v
	}

	out := RunPackage{Name: p.Name, Aliases: p.Aliases, Tables: make(map[string]*facttable.Table, len(p.Tables))}
	for variable, t := range p.Tables {
		if !t.HasDimension(RunDimension) {
			out.Tables[variable] = t
			continue
		}
		out.Tables[variable] = relabelRuns(t, names)
	}
	return out
}

func relabelRuns(t *facttable.Table, names map[string]string) *facttable.Table {
	run := t.Index(RunDimension)
	rows := t.Rows()
	changed := false
	for i := range rows {
		if canonical, ok := names[rows[i].Labels[run]]; ok {
			rows[i].Labels[run] = canonical
			changed = true
		}
	}
	if !changed {
		return t
	}
	if renamed, err := facttable.New(t.Dimensions(), rows); err == nil {
		return renamed
	}
	// two codes collapsed onto one scenario
	return t.RelabelSum(func(dim, label string) string {
		if dim != RunDimension {
			return label
		}
		if canonical, ok := names[label]; ok {
			return canonical
		}
		return label
	})
}

func sameDimensions(a, b *facttable.Table) bool {
	da, db := a.Dimensions(), b.Dimensions()
	if len(da) != len(db) {
		return false
	}
	for _, d := range da {
		if !b.HasDimension(d) {
			return false
		}
	}
	return true
}

func sortedKeys(m map[string]*facttable.Table) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
