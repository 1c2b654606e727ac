package charts

import (
	"fmt"

	"github.com/pathways-lab/scenario-explorer/internal/arrange"
	"github.com/pathways-lab/scenario-explorer/internal/results"
)

// Scale modes of a chart definition.
const (
	ScaleNone   = "none"
	ScalePeriod = "period"
)

// Chart is a loaded, validated chart definition.
type Chart struct {
	Name     string
	Title    string
	Kind     string
	Variable string
	XLabel   string
	YLabel   string
	Legend   string
	// Fingerprint is the SHA-256 of the raw YAML file.
	Fingerprint string

	def definition
}

// Options carries what a chart definition refers to but does not contain.
type Options struct {
	// ScaleDimension and Periods back `scale: period`.
	ScaleDimension string
	Periods        map[string]float64
	// Naming is the model-name to display-name table applied unless the
	// definition turns naming off.
	Naming map[string]string
	// Select holds interactive selections; they are merged over the
	// definition's ffilter.
	Select map[string]string
}

// definition is the on-disk YAML shape.
type definition struct {
	Name      string              `yaml:"name"`
	Title     string              `yaml:"title"`
	Kind      string              `yaml:"kind"`
	Variable  string              `yaml:"variable"`
	X         []string            `yaml:"x"`
	XY        bool                `yaml:"xy"`
	Scale     string              `yaml:"scale"`
	ZFilter   map[string]string   `yaml:"zfilter"`
	FilterIn  map[string][]string `yaml:"filter_in"`
	FilterOut map[string][]string `yaml:"filter_out"`
	ZGroupBy  []string            `yaml:"zgroupby"`
	CGroupBy  []remapDef          `yaml:"cgroupby"`
	Relative  *relativeDef        `yaml:"relative"`
	AnChange  bool                `yaml:"an_change"`
	FGroupBy  []string            `yaml:"fgroupby"`
	FFilter   map[string]string   `yaml:"ffilter"`
	Cleanup   *bool               `yaml:"cleanup"`
	ReAgg     map[string]string   `yaml:"reagg"`
	ZOrder    *orderDef           `yaml:"zorder"`
	Naming    *bool               `yaml:"naming"`
	Labels    map[string]string   `yaml:"labels"`
	XLabel    string              `yaml:"x_label"`
	YLabel    string              `yaml:"y_label"`
	Legend    string              `yaml:"legend"`
}

type remapDef struct {
	Dimension string            `yaml:"dimension"`
	Lookup    map[string]string `yaml:"lookup"`
	Default   *string           `yaml:"default"`
	Function  string            `yaml:"function"`
	Args      map[string]any    `yaml:"args"`
}

type relativeDef struct {
	Shares    []string          `yaml:"shares"`
	Reference map[string]string `yaml:"reference"`
}

type orderDef struct {
	Dimension string   `yaml:"dimension"`
	Labels    []string `yaml:"labels"`
}

func (d definition) validate() error {
	if d.Variable == "" {
		return fmt.Errorf("variable must not be empty")
	}
	if len(d.X) == 0 {
		return fmt.Errorf("x must name at least one dimension")
	}
	switch d.Scale {
	case "", ScaleNone, ScalePeriod:
	default:
		return fmt.Errorf("unsupported scale %q (must be %s or %s)", d.Scale, ScaleNone, ScalePeriod)
	}
	for i, r := range d.CGroupBy {
		if r.Dimension == "" {
			return fmt.Errorf("cgroupby[%d]: dimension must not be empty", i)
		}
		if (r.Lookup == nil) == (r.Function == "") {
			return fmt.Errorf("cgroupby[%d]: exactly one of lookup or function is required", i)
		}
		if r.Function != "" {
			if _, err := NewFunction(r.Function, r.Args); err != nil {
				return fmt.Errorf("cgroupby[%d]: %w", i, err)
			}
		}
	}
	if d.Relative != nil && (len(d.Relative.Shares) == 0) == (len(d.Relative.Reference) == 0) {
		return fmt.Errorf("relative: exactly one of shares or reference is required")
	}
	return nil
}

// Config turns the definition into a pipeline configuration.
func (c Chart) Config(opts Options) (arrange.Config, error) {
	d := c.def
	b := arrange.NewBuilder(d.X...)
	if d.XY {
		b.XY()
	}
	for dim, label := range d.ZFilter {
		b.ZFilter(dim, label)
	}
	for dim, subs := range d.FilterIn {
		b.FilterIn(dim, subs...)
	}
	for dim, subs := range d.FilterOut {
		b.FilterOut(dim, subs...)
	}
	if d.Scale == ScalePeriod {
		b.XScale(arrange.PeriodScale(opts.ScaleDimension, opts.Periods))
	}
	if d.ZGroupBy != nil {
		b.ZGroupBy(d.ZGroupBy...)
	}
	for _, r := range d.CGroupBy {
		remap, err := r.remap()
		if err != nil {
			return arrange.Config{}, fmt.Errorf("chart %q: %w", c.Name, err)
		}
		b.CGroupBy(r.Dimension, remap)
	}
	if d.Relative != nil {
		if len(d.Relative.Shares) > 0 {
			b.Shares(d.Relative.Shares...)
		} else {
			b.Reference(d.Relative.Reference)
		}
	}
	if d.AnChange {
		b.AnChange()
	}
	if d.FGroupBy != nil {
		b.FGroupBy(d.FGroupBy...)
	}
	for dim, label := range d.FFilter {
		b.FFilter(dim, label)
	}
	for dim, label := range opts.Select {
		b.FFilter(dim, label)
	}
	if d.Cleanup != nil {
		b.Cleanup(*d.Cleanup)
	}
	if d.ReAgg != nil {
		b.ReAgg(d.ReAgg)
	}
	if d.ZOrder != nil {
		b.ZOrder(d.ZOrder.Dimension, d.ZOrder.Labels...)
	}
	if naming := c.naming(opts.Naming); naming != nil {
		b.Naming(naming)
	}
	return b.Build(), nil
}

// Render arranges the chart's variable from rs.
func (c Chart) Render(rs *results.ResultSet, opts Options) (*arrange.WideTable, error) {
	cfg, err := c.Config(opts)
	if err != nil {
		return nil, err
	}
	return arrange.Arrange(rs, c.Variable, cfg)
}

// naming merges the shared naming table (unless disabled) with the
// definition's own labels, which win.
func (c Chart) naming(shared map[string]string) map[string]string {
	useShared := c.def.Naming == nil || *c.def.Naming
	if (!useShared || len(shared) == 0) && len(c.def.Labels) == 0 {
		return nil
	}
	out := make(map[string]string, len(shared)+len(c.def.Labels))
	if useShared {
		for k, v := range shared {
			out[k] = v
		}
	}
	for k, v := range c.def.Labels {
		out[k] = v
	}
	return out
}

func (r remapDef) remap() (arrange.CategoryRemap, error) {
	if r.Function != "" {
		fn, err := NewFunction(r.Function, r.Args)
		if err != nil {
			return arrange.CategoryRemap{}, err
		}
		return arrange.Function(fn), nil
	}
	if r.Default != nil {
		return arrange.LookupWithDefault(r.Lookup, *r.Default), nil
	}
	return arrange.Lookup(r.Lookup), nil
}
