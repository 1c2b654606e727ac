package projection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pathways-lab/scenario-explorer/internal/arrange"
	"github.com/pathways-lab/scenario-explorer/internal/charts"
	"github.com/pathways-lab/scenario-explorer/internal/metrics"
	"github.com/pathways-lab/scenario-explorer/internal/netzero"
	"github.com/pathways-lab/scenario-explorer/internal/results"
	"github.com/pathways-lab/scenario-explorer/internal/style"
)

const reasonNoData = "no data for the current selection"

var (
	// ErrInvalidQuery marks request validation errors that should return HTTP 400.
	ErrInvalidQuery = errors.New("invalid chart query")

	// ErrNotReady is returned while no result set has been published yet.
	ErrNotReady = errors.New("results not loaded")
)

// Options configures a Service.
type Options struct {
	// ScaleDimension and Periods back charts with `scale: period`.
	ScaleDimension string
	Periods        map[string]float64
	// CacheCapacity bounds the render cache; 0 disables it.
	CacheCapacity int
	// NetZero holds the defaults of the net-zero endpoint.
	NetZeroVariable string
	NetZero         netzero.Options
}

// Service implements the chart query layer on top of the published result
// snapshot.
type Service struct {
	snapshots results.SnapshotReader
	charts    charts.Repository
	style     *style.Style
	opts      Options
	cache     *renderCache
	nowFn     func() time.Time
}

// NewService creates a new projection service. A nil style means no naming
// and no colours.
func NewService(
	snapshots results.SnapshotReader,
	repo charts.Repository,
	st *style.Style,
	opts Options,
) *Service {
	if st == nil {
		st = style.Empty()
	}
	if opts.NetZeroVariable == "" {
		opts.NetZeroVariable = netzero.DefaultVariable
	}

	return &Service{
		snapshots: snapshots,
		charts:    repo,
		style:     st,
		opts:      opts,
		cache:     newRenderCache(opts.CacheCapacity),
		nowFn: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// ListCharts returns the chart catalog, optionally restricted to one variable.
func (s *Service) ListCharts(ctx context.Context, variable string) (*ChartListResponse, error) {
	list, err := s.charts.List(ctx, variable)
	if err != nil {
		return nil, fmt.Errorf("list charts: %w", err)
	}

	out := make([]ChartSummary, 0, len(list))
	for _, c := range list {
		out = append(out, ChartSummary{
			Name:        c.Name,
			Title:       c.Title,
			Kind:        c.Kind,
			Variable:    c.Variable,
			Fingerprint: c.Fingerprint,
		})
	}
	return &ChartListResponse{Charts: out}, nil
}

// RenderChart arranges the named chart against the current snapshot. Each
// select entry has the form DIM:label and overrides the definition's ffilter
// for that dimension.
//
// A chart that does not fit the loaded results is not an error: the
// response comes back with Empty set and a Reason.
func (s *Service) RenderChart(ctx context.Context, name string, selects []string) (*ChartResponse, error) {
	sel, err := parseSelects(selects)
	if err != nil {
		return nil, err
	}

	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	chart, err := s.charts.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	key := cacheKey(chart.Fingerprint, snap.Generation, sel)
	if cached := s.cache.Get(key); cached != nil {
		metrics.RecordCache(true)
		return cached, nil
	}
	if s.cache != nil {
		metrics.RecordCache(false)
	}

	start := time.Now()
	resp, err := s.render(chart, snap, sel)
	if err != nil {
		metrics.RecordRender(chart.Name, metrics.OutcomeError, time.Since(start))
		return nil, err
	}
	outcome := metrics.OutcomeRendered
	if resp.Empty {
		outcome = metrics.OutcomeEmpty
	}
	metrics.RecordRender(chart.Name, outcome, time.Since(start))

	s.cache.Put(key, resp)
	return resp, nil
}

func (s *Service) render(chart *charts.Chart, snap *results.Snapshot, sel map[string]string) (*ChartResponse, error) {
	resp := &ChartResponse{
		Chart:      chart.Name,
		Title:      chart.Title,
		Kind:       chart.Kind,
		Variable:   chart.Variable,
		XLabel:     chart.XLabel,
		YLabel:     chart.YLabel,
		Legend:     chart.Legend,
		Select:     sel,
		ResultSet:  snap.Set.Name(),
		Generation: snap.Generation,
		RenderedAt: s.nowFn(),
	}

	w, err := chart.Render(snap.Set, charts.Options{
		ScaleDimension: s.opts.ScaleDimension,
		Periods:        s.opts.Periods,
		Naming:         s.style.Naming,
		Select:         sel,
	})
	switch {
	case errors.Is(err, arrange.ErrVariableNotFound), errors.Is(err, arrange.ErrConfigurationMismatch):
		slog.Debug("[Projection] Chart does not fit results", "chart", chart.Name, "error", err)
		resp.Empty = true
		resp.Reason = err.Error()
		return resp, nil
	case err != nil:
		return nil, fmt.Errorf("render chart %s: %w", chart.Name, err)
	case w.Empty():
		resp.Empty = true
		resp.Reason = reasonNoData
		return resp, nil
	}

	fillTable(resp, w)
	resp.Colours = s.style.ColoursFor(colourLabels(w))
	resp.ColourStops = s.style.Stops
	return resp, nil
}

func fillTable(resp *ChartResponse, w *arrange.WideTable) {
	resp.Index = w.Index
	resp.ColumnDims = w.ColumnDims
	resp.Columns = make([]string, len(w.Columns))
	for i, c := range w.Columns {
		resp.Columns[i] = c.Name()
	}
	resp.Rows = make([]Row, len(w.Rows))
	for i, r := range w.Rows {
		values := make([]Value, len(r.Values))
		for j, v := range r.Values {
			values[j] = Value(v)
		}
		resp.Rows[i] = Row{Key: r.Key, Values: values}
	}
	if w.XY != nil {
		resp.XY = &XY{X: w.XY.X, Y: w.XY.Y}
	}
}

// colourLabels lists every column name and column label of w.
func colourLabels(w *arrange.WideTable) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(l string) {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	for _, c := range w.Columns {
		add(c.Name())
		for _, l := range c.Labels {
			add(l)
		}
	}
	return out
}

// Variables describes every variable of the current snapshot.
func (s *Service) Variables(_ context.Context) (*VariablesResponse, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	names := snap.Set.Variables()
	out := make([]VariableInfo, 0, len(names))
	for _, name := range names {
		t, _ := snap.Set.Table(name)
		out = append(out, VariableInfo{
			Name:       name,
			Dimensions: t.Dimensions(),
			Rows:       t.Len(),
		})
	}
	return &VariablesResponse{
		ResultSet:  snap.Set.Name(),
		Generation: snap.Generation,
		LoadedAt:   snap.LoadedAt,
		Variables:  out,
	}, nil
}

// NetZeroQuery overrides the configured net-zero defaults. Zero values keep
// the default.
type NetZeroQuery struct {
	Variable  string
	BaseYear  string
	Threshold float64
}

// NetZero reports, per group, the first year the variable falls to the
// threshold share of its base-year value.
func (s *Service) NetZero(_ context.Context, q NetZeroQuery) (*NetZeroResponse, error) {
	if q.Threshold < 0 {
		return nil, invalidQueryf("threshold must not be negative")
	}

	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	opts := s.opts.NetZero
	if opts.Periods == nil {
		opts.Periods = s.opts.Periods
	}
	if q.BaseYear != "" {
		opts.BaseYear = q.BaseYear
	}
	if q.Threshold > 0 {
		opts.Threshold = q.Threshold
	}
	variable := q.Variable
	if variable == "" {
		variable = s.opts.NetZeroVariable
	}

	resp := &NetZeroResponse{
		Variable:   variable,
		BaseYear:   opts.BaseYear,
		Threshold:  opts.Threshold,
		Rows:       []NetZeroRow{},
		ResultSet:  snap.Set.Name(),
		Generation: snap.Generation,
	}
	if resp.BaseYear == "" {
		resp.BaseYear = netzero.DefaultBaseYear
	}
	if resp.Threshold == 0 {
		resp.Threshold = netzero.DefaultThreshold
	}

	t, err := netzero.Analyze(snap.Set, variable, opts)
	switch {
	case errors.Is(err, arrange.ErrVariableNotFound),
		errors.Is(err, arrange.ErrConfigurationMismatch),
		errors.Is(err, netzero.ErrNoBaseYear):
		resp.Empty = true
		resp.Reason = err.Error()
		return resp, nil
	case err != nil:
		return nil, fmt.Errorf("net-zero analysis of %s: %w", variable, err)
	}

	resp.Dimensions = t.Dimensions()
	for _, r := range t.Rows() {
		resp.Rows = append(resp.Rows, NetZeroRow{Group: r.Labels, Year: Value(r.Value)})
	}
	if len(resp.Rows) == 0 {
		resp.Empty = true
		resp.Reason = reasonNoData
	}
	return resp, nil
}

func (s *Service) snapshot() (*results.Snapshot, error) {
	if !s.snapshots.Ready() {
		return nil, ErrNotReady
	}
	snap := s.snapshots.Current()
	if snap == nil || snap.Set == nil {
		return nil, ErrNotReady
	}
	return snap, nil
}

// parseSelects turns DIM:label pairs into an exact-match selection.
func parseSelects(selects []string) (map[string]string, error) {
	if len(selects) == 0 {
		return nil, nil
	}
	sel := make(map[string]string, len(selects))
	for _, raw := range selects {
		dim, label, ok := strings.Cut(raw, ":")
		dim = strings.TrimSpace(dim)
		if !ok || dim == "" || label == "" {
			return nil, invalidQueryf("select %q must have the form DIMENSION:label", raw)
		}
		if _, dup := sel[dim]; dup {
			return nil, invalidQueryf("dimension %s selected more than once", dim)
		}
		sel[dim] = label
	}
	return sel, nil
}

func invalidQueryf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuery, fmt.Sprintf(format, args...))
}
