package arrange

import (
	"math"
	"strings"
	"testing"

	"github.com/pathways-lab/scenario-explorer/internal/core/facttable"
	"github.com/pathways-lab/scenario-explorer/internal/results"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func r(v float64, labels ...string) facttable.Row {
	return facttable.Row{Labels: labels, Value: v}
}

// capacity is a small RUN × REGION × TECHNOLOGY × YEAR table.
func capacity() *facttable.Table {
	return facttable.MustNew([]string{"RUN", "REGION", "TECHNOLOGY", "YEAR"}, []facttable.Row{
		r(10, "S1", "UK", "PV_ROOF", "2020"),
		r(30, "S1", "UK", "WIND_ON", "2020"),
		r(20, "S1", "UK", "PV_ROOF", "2025"),
		r(20, "S1", "UK", "WIND_ON", "2025"),
		r(5, "S1", "FR", "PV_ROOF", "2020"),
		r(8, "S2", "UK", "PV_ROOF", "2020"),
		r(-1e-9, "S2", "UK", "WIND_OFF", "2020"),
	})
}

func resultSet(tables map[string]*facttable.Table) *results.ResultSet {
	return results.NewResultSet("test", tables)
}

func stageNames(cfg Config) []string {
	var out []string
	for _, s := range cfg.Stages() {
		out = append(out, s.Name)
	}
	return out
}

func TestStages_FixedOrder(t *testing.T) {
	// configured in reverse on purpose
	cfg := NewBuilder("YEAR").
		Naming(map[string]string{"a": "b"}).
		ZOrder("TECHNOLOGY", "PV").
		ReAgg(map[string]string{"x": "y"}).
		FFilter("RUN", "S1").
		FGroupBy("YEAR").
		AnChange().
		Shares("TECHNOLOGY").
		CGroupBy("TECHNOLOGY", Lookup(nil)).
		ZGroupBy("TECHNOLOGY").
		XScale(&Scale{Dimension: "YEAR"}).
		FilterOut("TECHNOLOGY", "X").
		ZFilter("REGION", "UK").
		Build()

	require.Equal(t, []string{
		StageZFilter, StageFilter, StageXScale, StageZGroupBy, StageCGroupBy,
		StageRelative, StageAnChange, StageFGroupBy, StageFFilter, StageCleanup,
		StageReAgg, StageZOrder,
	}, stageNames(cfg))
}

func TestStages_OnlyConfiguredOnesRun(t *testing.T) {
	require.Equal(t, []string{StageCleanup}, stageNames(NewBuilder("YEAR").Build()))
	require.Empty(t, stageNames(NewBuilder("YEAR").Cleanup(false).Build()))
}

func TestBuilder_BuildIsImmutable(t *testing.T) {
	b := NewBuilder("YEAR").ZFilter("RUN", "S1")
	first := b.Build()
	b.ZFilter("RUN", "S2").ZFilter("REGION", "UK")

	require.Equal(t, map[string]string{"RUN": "S1"}, first.ZFilter)
}

func TestArrange_VariableNotFound(t *testing.T) {
	w, err := Arrange(resultSet(nil), "Missing", NewBuilder("YEAR").Build())
	require.ErrorIs(t, err, ErrVariableNotFound)
	require.Nil(t, w)
}

func TestArrange_SharesScenario(t *testing.T) {
	tbl := facttable.MustNew([]string{"RUN", "YEAR", "TECHNOLOGY"}, []facttable.Row{
		r(10, "S1", "2020", "A"),
		r(30, "S1", "2020", "B"),
	})
	out, err := Reduce(tbl, NewBuilder("YEAR").Shares("TECHNOLOGY").Build())
	require.NoError(t, err)

	v, _ := out.Value("S1", "2020", "A")
	assert.InDelta(t, 0.25, v, 1e-12)
	v, _ = out.Value("S1", "2020", "B")
	assert.InDelta(t, 0.75, v, 1e-12)
}

func TestArrange_SharesSumToOne(t *testing.T) {
	out, err := Reduce(capacity(), NewBuilder("YEAR").Cleanup(false).Shares("TECHNOLOGY").Build())
	require.NoError(t, err)

	sums := make(map[string]float64)
	for _, row := range out.Rows() {
		// group = everything but TECHNOLOGY
		k := strings.Join([]string{row.Labels[0], row.Labels[1], row.Labels[3]}, "|")
		sums[k] += row.Value
	}
	for k, s := range sums {
		assert.InDelta(t, 1.0, s, 1e-9, k)
	}
}

func TestArrange_AnnualizedChangeScenario(t *testing.T) {
	tbl := facttable.MustNew([]string{"RUN", "YEAR", "TECHNOLOGY"}, []facttable.Row{
		r(150, "S1", "2025", "X"),
		r(100, "S1", "2020", "X"),
		r(7, "S1", "2020", "LONELY"),
	})
	out, err := Reduce(tbl, NewBuilder("YEAR").AnChange().Build())
	require.NoError(t, err)

	require.Equal(t, 1, out.Len())
	require.Equal(t, r(10, "S1", "2025", "X"), out.Row(0))
}

func TestArrange_AnnualizedChangeNeedsNumericYear(t *testing.T) {
	tbl := facttable.MustNew([]string{"YEAR"}, []facttable.Row{r(1, "base"), r(2, "2020")})
	_, err := Reduce(tbl, NewBuilder("YEAR").AnChange().Build())
	require.ErrorIs(t, err, ErrConfigurationMismatch)
}

func TestZFilter(t *testing.T) {
	out, err := Reduce(capacity(), NewBuilder("YEAR").Cleanup(false).ZFilter("RUN", "S1").ZFilter("REGION", "UK").Build())
	require.NoError(t, err)
	require.Equal(t, []string{"TECHNOLOGY", "YEAR"}, out.Dimensions())
	require.Equal(t, 4, out.Len())
	require.NoError(t, out.Validate())
}

func TestConfigurationMismatch(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		stage string
		dim   string
	}{
		{name: "zfilter", cfg: NewBuilder("YEAR").ZFilter("FUEL", "GAS").Build(), stage: StageZFilter, dim: "FUEL"},
		{name: "filter", cfg: NewBuilder("YEAR").FilterIn("FUEL", "GAS").Build(), stage: StageFilter, dim: "FUEL"},
		{name: "xscale", cfg: NewBuilder("YEAR").XScale(&Scale{Dimension: "PERIOD"}).Build(), stage: StageXScale, dim: "PERIOD"},
		{name: "zgroupby", cfg: NewBuilder("YEAR").ZGroupBy("FUEL").Build(), stage: StageZGroupBy, dim: "FUEL"},
		{name: "zgroupby axis", cfg: NewBuilder("PERIOD").ZGroupBy("RUN").Build(), stage: StageZGroupBy, dim: "PERIOD"},
		{name: "cgroupby", cfg: NewBuilder("YEAR").CGroupBy("FUEL", Lookup(nil)).Build(), stage: StageCGroupBy, dim: "FUEL"},
		{name: "relative", cfg: NewBuilder("YEAR").Shares("FUEL").Build(), stage: StageRelative, dim: "FUEL"},
		{name: "fgroupby", cfg: NewBuilder("YEAR").FGroupBy("FUEL").Build(), stage: StageFGroupBy, dim: "FUEL"},
		{name: "ffilter", cfg: NewBuilder("YEAR").FFilter("FUEL", "GAS").Build(), stage: StageFFilter, dim: "FUEL"},
		{name: "zorder", cfg: NewBuilder("YEAR").ZOrder("FUEL", "GAS").Build(), stage: StageZOrder, dim: "FUEL"},
		{name: "reshape", cfg: NewBuilder("PERIOD").Build(), stage: StageReshape, dim: "PERIOD"},
		{name: "zfilter removes a later dimension", cfg: NewBuilder("YEAR").ZFilter("RUN", "S1").FFilter("RUN", "S1").Build(), stage: StageFFilter, dim: "RUN"},
	}

	rs := resultSet(map[string]*facttable.Table{"Capacity": capacity()})
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Arrange(rs, "Capacity", tc.cfg)
			require.ErrorIs(t, err, ErrConfigurationMismatch)

			var se *StageError
			require.ErrorAs(t, err, &se)
			require.Equal(t, tc.stage, se.Stage)
			require.Equal(t, tc.dim, se.Dimension)
		})
	}

	// the result set is untouched by failed calls
	tbl, _ := rs.Table("Capacity")
	require.Equal(t, capacity().Rows(), tbl.Rows())
}

func TestSubstringFilter(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want []string
	}{
		{
			name: "filter in",
			cfg:  NewBuilder("YEAR").FilterIn("TECHNOLOGY", "PV").Build(),
			want: []string{"PV_ROOF"},
		},
		{
			name: "filter out",
			cfg:  NewBuilder("YEAR").FilterOut("TECHNOLOGY", "PV").Build(),
			want: []string{"WIND_OFF", "WIND_ON"},
		},
		{
			name: "in and out on the same dimension",
			cfg:  NewBuilder("YEAR").FilterIn("TECHNOLOGY", "WIND").FilterOut("TECHNOLOGY", "OFF").Build(),
			want: []string{"WIND_ON"},
		},
		{
			name: "any substring admits",
			cfg:  NewBuilder("YEAR").FilterIn("TECHNOLOGY", "ROOF", "_OFF").Build(),
			want: []string{"PV_ROOF", "WIND_OFF"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.cfg
			off := false
			cfg.Cleanup = &off
			out, err := Reduce(capacity(), cfg)
			require.NoError(t, err)
			got, err := out.Distinct("TECHNOLOGY")
			require.NoError(t, err)
			require.ElementsMatch(t, tc.want, got)
		})
	}
}

func TestSubstringFilter_AndAcrossDimensions(t *testing.T) {
	out, err := Reduce(capacity(), NewBuilder("YEAR").Cleanup(false).
		FilterIn("TECHNOLOGY", "PV").FilterOut("REGION", "FR").FilterIn("RUN", "1").Build())
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	for _, row := range out.Rows() {
		require.Equal(t, []string{"S1", "UK", "PV_ROOF"}, row.Labels[:3])
	}
}

func TestXScale_PeriodScale(t *testing.T) {
	tbl := facttable.MustNew([]string{"YEAR"}, []facttable.Row{r(60, "2015"), r(50, "2030"), r(7, "2099")})
	out, err := Reduce(tbl, NewBuilder("YEAR").XScale(PeriodScale("YEAR", DefaultPeriods())).Build())
	require.NoError(t, err)

	v, _ := out.Value("2015")
	assert.InDelta(t, 10, v, 1e-12)
	v, _ = out.Value("2030")
	assert.InDelta(t, 10, v, 1e-12)
	v, _ = out.Value("2099")
	assert.Equal(t, 7.0, v, "labels without a factor stay unscaled")
}

func TestPeriodLengths(t *testing.T) {
	lengths := PeriodLengths(map[string]string{
		"2015": "2015", "2016": "2015", "2017": "2015",
		"2021": "2021", "2022": "2021",
	})
	require.Equal(t, map[string]float64{"2015": 3, "2021": 2}, lengths)
}

func TestZGroupBy_KeepsAxis(t *testing.T) {
	out, err := Reduce(capacity(), NewBuilder("YEAR").Cleanup(false).ZGroupBy("RUN").Build())
	require.NoError(t, err)
	require.Equal(t, []string{"RUN", "YEAR"}, out.Dimensions())

	v, _ := out.Value("S1", "2020")
	assert.InDelta(t, 45, v, 1e-12)
	assert.InDelta(t, capacity().Sum(), out.Sum(), 1e-12)
}

func TestCGroupBy(t *testing.T) {
	lookup := map[string]string{"PV_ROOF": "Solar", "WIND_ON": "Wind"}

	t.Run("lookup passes unmapped labels through", func(t *testing.T) {
		out, err := Reduce(capacity(), NewBuilder("YEAR").Cleanup(false).CGroupBy("TECHNOLOGY", Lookup(lookup)).Build())
		require.NoError(t, err)
		got, _ := out.Distinct("TECHNOLOGY")
		require.ElementsMatch(t, []string{"Solar", "Wind", "WIND_OFF"}, got)
	})

	t.Run("lookup with default", func(t *testing.T) {
		out, err := Reduce(capacity(), NewBuilder("YEAR").Cleanup(false).
			CGroupBy("TECHNOLOGY", LookupWithDefault(lookup, "Other")).Build())
		require.NoError(t, err)
		got, _ := out.Distinct("TECHNOLOGY")
		require.ElementsMatch(t, []string{"Solar", "Wind", "Other"}, got)
	})

	t.Run("function rollup conserves the total", func(t *testing.T) {
		prefix := Function(func(l string) string { return strings.SplitN(l, "_", 2)[0] })
		out, err := Reduce(capacity(), NewBuilder("YEAR").Cleanup(false).CGroupBy("TECHNOLOGY", prefix).Build())
		require.NoError(t, err)
		require.NoError(t, out.Validate())
		require.Equal(t, []string{"RUN", "REGION", "TECHNOLOGY", "YEAR"}, out.Dimensions())
		assert.InDelta(t, capacity().Sum(), out.Sum(), 1e-12)

		v, _ := out.Value("S1", "UK", "WIND", "2020")
		assert.Equal(t, 30.0, v)
		v, _ = out.Value("S2", "UK", "WIND", "2020")
		assert.InDelta(t, -1e-9, v, 1e-15)
	})

	t.Run("zero value remap is rejected", func(t *testing.T) {
		_, err := Reduce(capacity(), Config{CGroupBy: []Remap{{Dimension: "TECHNOLOGY"}}})
		require.ErrorIs(t, err, ErrConfigurationMismatch)
	})
}

func TestRelative_Reference(t *testing.T) {
	tbl := facttable.MustNew([]string{"RUN", "REGION"}, []facttable.Row{
		r(100, "S1", "UK"),
		r(25, "S1", "WALES"),
		r(0, "S2", "UK"),
		r(5, "S2", "WALES"),
		r(3, "S3", "WALES"),
	})
	out, err := Reduce(tbl, NewBuilder("REGION").Cleanup(false).Reference(map[string]string{"REGION": "UK"}).Build())
	require.NoError(t, err)

	v, _ := out.Value("S1", "WALES")
	assert.InDelta(t, 0.25, v, 1e-12)
	v, _ = out.Value("S1", "UK")
	assert.Equal(t, 1.0, v)
	v, _ = out.Value("S2", "WALES")
	assert.True(t, math.IsInf(v, 1), "zero reference gives Inf")
	v, _ = out.Value("S2", "UK")
	assert.True(t, math.IsNaN(v), "0/0 is NaN")
	v, _ = out.Value("S3", "WALES")
	assert.True(t, math.IsNaN(v), "missing reference gives NaN")
}

func TestFGroupBy(t *testing.T) {
	tbl := facttable.MustNew([]string{"YEAR", "TECHNOLOGY"}, []facttable.Row{
		r(3, "2020", "A"),
		r(-7, "2020", "B"),
		r(7, "2020", "C"),
		r(math.NaN(), "2025", "A"),
		r(1, "2025", "B"),
	})
	out, err := Reduce(tbl, NewBuilder("YEAR").Cleanup(false).FGroupBy("YEAR").Build())
	require.NoError(t, err)
	require.Equal(t, []facttable.Row{r(-7, "2020", "B"), r(1, "2025", "B")}, out.Rows())
}

func TestFFilter_KeepsDimensions(t *testing.T) {
	out, err := Reduce(capacity(), NewBuilder("YEAR").Cleanup(false).FFilter("TECHNOLOGY", "WIND_ON").Build())
	require.NoError(t, err)
	require.Equal(t, capacity().Dimensions(), out.Dimensions())
	require.Equal(t, 2, out.Len())
}

func TestCleanup(t *testing.T) {
	t.Run("clamps negatives", func(t *testing.T) {
		out, err := Reduce(capacity(), NewBuilder("YEAR").Build())
		require.NoError(t, err)
		for _, row := range out.Rows() {
			require.GreaterOrEqual(t, row.Value, 0.0)
		}
		v, _ := out.Value("S2", "UK", "WIND_OFF", "2020")
		require.Zero(t, v)
	})

	t.Run("degenerate table becomes empty", func(t *testing.T) {
		tbl := facttable.MustNew([]string{"YEAR"}, []facttable.Row{r(1e-21, "2020"), r(-5, "2025"), r(math.NaN(), "2030")})
		w, err := Arrange(resultSet(map[string]*facttable.Table{"V": tbl}), "V", NewBuilder("YEAR").Build())
		require.NoError(t, err)
		require.True(t, w.Empty())
	})

	t.Run("one large value keeps every row", func(t *testing.T) {
		tbl := facttable.MustNew([]string{"YEAR"}, []facttable.Row{r(1e-21, "2020"), r(2, "2025")})
		out, err := Reduce(tbl, NewBuilder("YEAR").Build())
		require.NoError(t, err)
		require.Equal(t, 2, out.Len())
	})

	t.Run("disabled", func(t *testing.T) {
		out, err := Reduce(capacity(), NewBuilder("YEAR").Cleanup(false).Build())
		require.NoError(t, err)
		v, _ := out.Value("S2", "UK", "WIND_OFF", "2020")
		require.Negative(t, v)
	})
}

func TestReAgg(t *testing.T) {
	out, err := Reduce(capacity(), NewBuilder("YEAR").Cleanup(false).
		ReAgg(map[string]string{"WIND_ON": "WIND", "WIND_OFF": "WIND", "FR": "UK"}).Build())
	require.NoError(t, err)
	require.NoError(t, out.Validate())

	v, _ := out.Value("S1", "UK", "PV_ROOF", "2020")
	assert.Equal(t, 15.0, v)
	assert.InDelta(t, capacity().Sum(), out.Sum(), 1e-12)
}

func TestZOrder(t *testing.T) {
	rs := resultSet(map[string]*facttable.Table{"Capacity": capacity()})
	base := NewBuilder("YEAR").ZFilter("RUN", "S1").ZFilter("REGION", "UK")

	w, err := Arrange(rs, "Capacity", base.ZOrder("TECHNOLOGY", "WIND_ON", "MISSING").Build())
	require.NoError(t, err)
	require.Equal(t, []string{"WIND_ON", "PV_ROOF"}, columnNames(w))

	t.Run("idempotent", func(t *testing.T) {
		tbl, _ := rs.Table("Capacity")
		cfg := base.Build()
		reduced, err := Reduce(tbl, cfg)
		require.NoError(t, err)
		once, err := zorder(reduced, Order{Dimension: "TECHNOLOGY", Labels: []string{"WIND_ON"}}, cfg.X)
		require.NoError(t, err)
		twice, err := zorder(once, Order{Dimension: "TECHNOLOGY", Labels: []string{"WIND_ON"}}, cfg.X)
		require.NoError(t, err)
		require.Equal(t, once.Order("TECHNOLOGY"), twice.Order("TECHNOLOGY"))
		require.Equal(t, once.Rows(), twice.Rows())
	})

	t.Run("defaults to the first non-axis dimension", func(t *testing.T) {
		w, err := Arrange(rs, "Capacity", NewBuilder("YEAR").ZFilter("RUN", "S1").ZFilter("REGION", "UK").ZOrder("", "WIND_ON").Build())
		require.NoError(t, err)
		require.Equal(t, "WIND_ON", w.Columns[0].Name())
	})
}

func columnNames(w *WideTable) []string {
	var out []string
	for _, c := range w.Columns {
		out = append(out, c.Name())
	}
	return out
}

func TestReshape(t *testing.T) {
	rs := resultSet(map[string]*facttable.Table{"Capacity": capacity()})
	w, err := Arrange(rs, "Capacity", NewBuilder("YEAR").Cleanup(false).ZFilter("REGION", "UK").Build())
	require.NoError(t, err)

	require.Equal(t, []string{"YEAR"}, w.Index)
	require.Equal(t, []string{"RUN", "TECHNOLOGY"}, w.ColumnDims)
	require.Equal(t, []string{"S1 / PV_ROOF", "S1 / WIND_ON", "S2 / PV_ROOF", "S2 / WIND_OFF"}, columnNames(w))
	require.Len(t, w.Rows, 2)
	require.Equal(t, []string{"2020"}, w.Rows[0].Key)
	require.Equal(t, []string{"2025"}, w.Rows[1].Key)

	// S2 has no 2025 rows
	col := w.Column(2)
	require.Equal(t, 8.0, col[0])
	require.True(t, math.IsNaN(col[1]))

	long, err := w.Stack()
	require.NoError(t, err)
	require.Equal(t, 6, long.Len(), "missing cells are skipped")
}

func TestReshape_NoColumnDimensions(t *testing.T) {
	tbl := facttable.MustNew([]string{"YEAR"}, []facttable.Row{r(1, "2025"), r(2, "2020")})
	w, err := Arrange(resultSet(map[string]*facttable.Table{"V": tbl}), "V", NewBuilder("YEAR").Build())
	require.NoError(t, err)
	require.Equal(t, []string{facttable.ValueColumn}, columnNames(w))
	require.Equal(t, []float64{2, 1}, w.Column(0))
}

func TestReshape_XY(t *testing.T) {
	tbl := facttable.MustNew([]string{"RUN", "METRIC"}, []facttable.Row{
		r(1, "S1", "COST"),
		r(2, "S1", "EMISSIONS"),
		r(3, "S2", "COST"),
		r(4, "S2", "EMISSIONS"),
	})
	rs := resultSet(map[string]*facttable.Table{"V": tbl})

	w, err := Arrange(rs, "V", NewBuilder("METRIC").XY().Naming(map[string]string{"COST": "Cost"}).Build())
	require.NoError(t, err)
	require.NotNil(t, w.XY)
	require.Equal(t, []string{"Cost"}, w.XY.X)
	require.Equal(t, []string{"EMISSIONS"}, w.XY.Y)
	require.Equal(t, []string{"RUN"}, w.Index)
	require.Equal(t, []string{"Cost", "EMISSIONS"}, columnNames(w))
	require.Equal(t, []float64{1, 2}, w.Rows[0].Values)
	require.Equal(t, []string{"S1"}, w.Rows[0].Key)

	t.Run("needs two row keys", func(t *testing.T) {
		_, err := Arrange(rs, "V", NewBuilder("METRIC").FFilter("METRIC", "COST").XY().Build())
		require.ErrorIs(t, err, ErrConfigurationMismatch)
	})
}

func TestNaming(t *testing.T) {
	rs := resultSet(map[string]*facttable.Table{"Capacity": capacity()})
	w, err := Arrange(rs, "Capacity", NewBuilder("YEAR").
		ZFilter("RUN", "S1").ZFilter("REGION", "UK").
		Naming(map[string]string{"PV_ROOF": "Rooftop PV", "2020": "Base"}).Build())
	require.NoError(t, err)
	require.Equal(t, []string{"Rooftop PV", "WIND_ON"}, columnNames(w))
	require.Equal(t, []string{"Base"}, w.Rows[0].Key)
}

func TestArrange_KeyUniquenessAcrossStages(t *testing.T) {
	cfg := NewBuilder("YEAR").
		FilterOut("REGION", "FR").
		XScale(PeriodScale("YEAR", DefaultPeriods())).
		ZGroupBy("RUN", "TECHNOLOGY").
		CGroupBy("TECHNOLOGY", Function(func(l string) string { return strings.SplitN(l, "_", 2)[0] })).
		ReAgg(map[string]string{"S2": "S1"}).
		Build()

	cur := capacity()
	for _, stage := range cfg.Stages() {
		next, err := stage.Apply(cur)
		require.NoError(t, err, stage.Name)
		require.NoError(t, next.Validate(), stage.Name)
		cur = next
	}
}
