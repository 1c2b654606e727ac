package arrange

import (
	"sort"
	"strconv"
)

// Config is the per-invocation configuration of the pipeline. Every field is
// optional; a stage whose field is unset is skipped. Build one with a Builder
// to keep the maps private to the config.
type Config struct {
	// X names the axis dimension(s) that stay as the row key of the output.
	X []string
	// XY transposes the pivot and reports the first two row keys as a pair.
	XY bool

	ZFilter   map[string]string
	FilterIn  map[string][]string
	FilterOut map[string][]string
	XScale    *Scale
	ZGroupBy  []string
	CGroupBy  []Remap
	Relative  *Relative
	AnChange  bool
	FGroupBy  []string
	FFilter   map[string]string
	// Cleanup defaults to on when nil.
	Cleanup *bool
	ReAgg   map[string]string
	ZOrder  *Order
	Naming  map[string]string
}

// CleanupEnabled reports whether the cleanup stage runs.
func (c Config) CleanupEnabled() bool {
	return c.Cleanup == nil || *c.Cleanup
}

// Scale multiplies VALUE by a factor looked up by the row's label at Dimension.
type Scale struct {
	Dimension string
	Factors   map[string]float64
}

// Order puts Labels first, in the given order, for one dimension. An empty
// Dimension means the first non-axis dimension.
type Order struct {
	Dimension string
	Labels    []string
}

// Remap coarsens the labels of one dimension.
type Remap struct {
	Dimension string
	Remap     CategoryRemap
}

type remapKind int

const (
	remapLookup remapKind = iota + 1
	remapFunction
)

// CategoryRemap maps a label to a coarser category, either through a lookup
// table or a function.
type CategoryRemap struct {
	kind       remapKind
	table      map[string]string
	def        string
	hasDefault bool
	fn         func(string) string
}

// Lookup replaces mapped labels and passes the others through.
func Lookup(table map[string]string) CategoryRemap {
	return CategoryRemap{kind: remapLookup, table: copyStrings(table)}
}

// LookupWithDefault replaces mapped labels and sends every other label to def.
func LookupWithDefault(table map[string]string, def string) CategoryRemap {
	return CategoryRemap{kind: remapLookup, table: copyStrings(table), def: def, hasDefault: true}
}

// Function derives the category by calling fn, which must be total.
func Function(fn func(string) string) CategoryRemap {
	return CategoryRemap{kind: remapFunction, fn: fn}
}

// Apply maps one label.
func (r CategoryRemap) Apply(label string) string {
	switch r.kind {
	case remapLookup:
		if v, ok := r.table[label]; ok {
			return v
		}
		if r.hasDefault {
			return r.def
		}
		return label
	case remapFunction:
		return r.fn(label)
	}
	return label
}

// Valid reports whether the remap was built through one of the constructors.
func (r CategoryRemap) Valid() bool {
	return r.kind == remapLookup || (r.kind == remapFunction && r.fn != nil)
}

type relativeKind int

const (
	relativeShares relativeKind = iota + 1
	relativeReference
)

// Relative normalizes VALUE either to shares within groups or to a fixed
// reference row.
type Relative struct {
	kind relativeKind
	dims []string
	ref  map[string]string
}

// Shares divides every row by the sum over dims, holding the other
// dimensions fixed.
func Shares(dims ...string) *Relative {
	return &Relative{kind: relativeShares, dims: append([]string(nil), dims...)}
}

// Reference divides every row by the row found by fixing the given
// dimensions to the given labels, aligned on the remaining dimensions.
func Reference(ref map[string]string) *Relative {
	return &Relative{kind: relativeReference, ref: copyStrings(ref)}
}

// IsShares reports whether r is in share (list) mode.
func (r *Relative) IsShares() bool { return r.kind == relativeShares }

// Dimensions returns the dimensions r refers to, sorted for reference mode.
func (r *Relative) Dimensions() []string {
	if r.kind == relativeShares {
		return append([]string(nil), r.dims...)
	}
	return sortedKeys(r.ref)
}

// DefaultPeriods maps the model's representative years to the number of
// calendar years they stand for.
func DefaultPeriods() map[string]float64 {
	out := map[string]float64{
		"2015": 6,
		"2021": 2,
		"2023": 2,
		"2060": 1,
	}
	for y := 2025; y <= 2055; y += 5 {
		out[strconv.Itoa(y)] = 5
	}
	return out
}

// PeriodLengths counts, for every representative year, how many calendar
// years map to it.
func PeriodLengths(yearMap map[string]string) map[string]float64 {
	out := make(map[string]float64)
	for _, rep := range yearMap {
		out[rep]++
	}
	return out
}

// PeriodScale annualizes values reported per multi-year period: the factor of
// each representative year is 1/length.
func PeriodScale(dim string, lengths map[string]float64) *Scale {
	factors := make(map[string]float64, len(lengths))
	for label, n := range lengths {
		if n > 0 {
			factors[label] = 1 / n
		}
	}
	return &Scale{Dimension: dim, Factors: factors}
}

// Builder assembles a Config fluently.
type Builder struct {
	cfg Config
}

// NewBuilder starts a config with the given axis dimension(s).
func NewBuilder(x ...string) *Builder {
	return &Builder{cfg: Config{X: append([]string(nil), x...)}}
}

func (b *Builder) XY() *Builder {
	b.cfg.XY = true
	return b
}

func (b *Builder) ZFilter(dim, label string) *Builder {
	if b.cfg.ZFilter == nil {
		b.cfg.ZFilter = make(map[string]string)
	}
	b.cfg.ZFilter[dim] = label
	return b
}

func (b *Builder) FilterIn(dim string, substrings ...string) *Builder {
	if b.cfg.FilterIn == nil {
		b.cfg.FilterIn = make(map[string][]string)
	}
	b.cfg.FilterIn[dim] = append(b.cfg.FilterIn[dim], substrings...)
	return b
}

func (b *Builder) FilterOut(dim string, substrings ...string) *Builder {
	if b.cfg.FilterOut == nil {
		b.cfg.FilterOut = make(map[string][]string)
	}
	b.cfg.FilterOut[dim] = append(b.cfg.FilterOut[dim], substrings...)
	return b
}

func (b *Builder) XScale(s *Scale) *Builder {
	if s == nil {
		b.cfg.XScale = nil
		return b
	}
	factors := make(map[string]float64, len(s.Factors))
	for k, v := range s.Factors {
		factors[k] = v
	}
	b.cfg.XScale = &Scale{Dimension: s.Dimension, Factors: factors}
	return b
}

func (b *Builder) ZGroupBy(dims ...string) *Builder {
	b.cfg.ZGroupBy = append(b.cfg.ZGroupBy, dims...)
	return b
}

func (b *Builder) CGroupBy(dim string, remap CategoryRemap) *Builder {
	b.cfg.CGroupBy = append(b.cfg.CGroupBy, Remap{Dimension: dim, Remap: remap})
	return b
}

func (b *Builder) Shares(dims ...string) *Builder {
	b.cfg.Relative = Shares(dims...)
	return b
}

func (b *Builder) Reference(ref map[string]string) *Builder {
	b.cfg.Relative = Reference(ref)
	return b
}

func (b *Builder) AnChange() *Builder {
	b.cfg.AnChange = true
	return b
}

func (b *Builder) FGroupBy(dims ...string) *Builder {
	b.cfg.FGroupBy = append(b.cfg.FGroupBy, dims...)
	return b
}

func (b *Builder) FFilter(dim, label string) *Builder {
	if b.cfg.FFilter == nil {
		b.cfg.FFilter = make(map[string]string)
	}
	b.cfg.FFilter[dim] = label
	return b
}

func (b *Builder) Cleanup(on bool) *Builder {
	b.cfg.Cleanup = &on
	return b
}

func (b *Builder) ReAgg(mapping map[string]string) *Builder {
	b.cfg.ReAgg = copyStrings(mapping)
	return b
}

func (b *Builder) ZOrder(dim string, labels ...string) *Builder {
	b.cfg.ZOrder = &Order{Dimension: dim, Labels: append([]string(nil), labels...)}
	return b
}

func (b *Builder) Naming(mapping map[string]string) *Builder {
	b.cfg.Naming = copyStrings(mapping)
	return b
}

// Build returns the config. The builder can keep being used; later calls do
// not affect configs already built.
func (b *Builder) Build() Config {
	return b.cfg.clone()
}

func (c Config) clone() Config {
	out := c
	out.X = append([]string(nil), c.X...)
	out.ZFilter = copyStrings(c.ZFilter)
	out.FilterIn = copyLists(c.FilterIn)
	out.FilterOut = copyLists(c.FilterOut)
	out.ZGroupBy = append([]string(nil), c.ZGroupBy...)
	out.CGroupBy = append([]Remap(nil), c.CGroupBy...)
	out.FGroupBy = append([]string(nil), c.FGroupBy...)
	out.FFilter = copyStrings(c.FFilter)
	out.ReAgg = copyStrings(c.ReAgg)
	out.Naming = copyStrings(c.Naming)
	if c.Cleanup != nil {
		on := *c.Cleanup
		out.Cleanup = &on
	}
	if c.ZOrder != nil {
		out.ZOrder = &Order{Dimension: c.ZOrder.Dimension, Labels: append([]string(nil), c.ZOrder.Labels...)}
	}
	return out
}

func copyStrings(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyLists(m map[string][]string) map[string][]string {
	if m == nil {
		return nil
	}
	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
