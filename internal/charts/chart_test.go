package charts

import (
	"testing"

	"github.com/pathways-lab/scenario-explorer/internal/core/facttable"
	"github.com/pathways-lab/scenario-explorer/internal/results"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, doc string) *Chart {
	t.Helper()
	c, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.NotNil(t, c)
	return c
}

func TestChartConfig_Translation(t *testing.T) {
	c := parse(t, `
name: heat
variable: ProductionByTechnologyAnnual
x: [YEAR]
scale: period
zfilter: {REGION: UK}
filter_in: {YEAR: [2015, 2025]}
filter_out: {TECHNOLOGY: [RAUP]}
zgroupby: [RUN, TECHNOLOGY]
cgroupby:
  - dimension: TECHNOLOGY
    lookup: {NGBO: Gas}
    default: Other
relative:
  reference: {RUN: S1}
an_change: true
fgroupby: [RUN]
ffilter: {RUN: S2}
cleanup: false
reagg: {RUN: scenarios}
zorder:
  labels: [Gas]
naming: false
labels: {Gas: Natural gas}
`)

	cfg, err := c.Config(Options{ScaleDimension: "YEAR", Periods: map[string]float64{"2015": 5}})
	require.NoError(t, err)

	assert.Equal(t, []string{"YEAR"}, cfg.X)
	assert.Equal(t, map[string]string{"REGION": "UK"}, cfg.ZFilter)
	assert.Equal(t, map[string][]string{"YEAR": {"2015", "2025"}}, cfg.FilterIn)
	assert.Equal(t, map[string][]string{"TECHNOLOGY": {"RAUP"}}, cfg.FilterOut)
	require.NotNil(t, cfg.XScale)
	assert.Equal(t, "YEAR", cfg.XScale.Dimension)
	assert.InDelta(t, 0.2, cfg.XScale.Factors["2015"], 1e-12)
	assert.Equal(t, []string{"RUN", "TECHNOLOGY"}, cfg.ZGroupBy)
	require.Len(t, cfg.CGroupBy, 1)
	assert.Equal(t, "Gas", cfg.CGroupBy[0].Remap.Apply("NGBO"))
	assert.Equal(t, "Other", cfg.CGroupBy[0].Remap.Apply("ASHP"))
	require.NotNil(t, cfg.Relative)
	assert.False(t, cfg.Relative.IsShares())
	assert.True(t, cfg.AnChange)
	assert.Equal(t, []string{"RUN"}, cfg.FGroupBy)
	assert.Equal(t, map[string]string{"RUN": "S2"}, cfg.FFilter)
	assert.False(t, cfg.CleanupEnabled())
	assert.Equal(t, map[string]string{"RUN": "scenarios"}, cfg.ReAgg)
	require.NotNil(t, cfg.ZOrder)
	assert.Empty(t, cfg.ZOrder.Dimension)
	assert.Equal(t, []string{"Gas"}, cfg.ZOrder.Labels)
	assert.Equal(t, map[string]string{"Gas": "Natural gas"}, cfg.Naming)
}

func TestChartConfig_MinimalSkipsStages(t *testing.T) {
	c := parse(t, "name: m\nvariable: V\nx: [YEAR]\n")
	cfg, err := c.Config(Options{})
	require.NoError(t, err)

	assert.Nil(t, cfg.XScale)
	assert.Nil(t, cfg.Relative)
	assert.Nil(t, cfg.ZOrder)
	assert.Nil(t, cfg.Naming)
	assert.True(t, cfg.CleanupEnabled())
}

func TestChartConfig_Naming(t *testing.T) {
	shared := map[string]string{"NGBO": "Gas boiler", "ASHP": "Heat pump"}

	tests := []struct {
		name string
		doc  string
		want map[string]string
	}{
		{
			name: "shared by default",
			doc:  "name: n\nvariable: V\nx: [YEAR]\n",
			want: shared,
		},
		{
			name: "labels override shared",
			doc:  "name: n\nvariable: V\nx: [YEAR]\nlabels: {ASHP: ASHP}\n",
			want: map[string]string{"NGBO": "Gas boiler", "ASHP": "ASHP"},
		},
		{
			name: "disabled",
			doc:  "name: n\nvariable: V\nx: [YEAR]\nnaming: false\n",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := parse(t, tt.doc).Config(Options{Naming: shared})
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Naming)
		})
	}
}

func TestChart_Render(t *testing.T) {
	c := parse(t, costChart)

	table := facttable.MustNew([]string{"RUN", "TECHNOLOGY", "YEAR"}, []facttable.Row{
		{Labels: []string{"S1", "BEHOUSE", "2025"}, Value: 1},
		{Labels: []string{"S1", "TDISEL", "2025"}, Value: 3},
		{Labels: []string{"S1", "TTRAEL", "2025"}, Value: 4},
	})
	rs := results.NewResultSet("test", map[string]*facttable.Table{"TotalDiscountedCost": table})

	w, err := c.Render(rs, Options{})
	require.NoError(t, err)
	require.Len(t, w.Rows, 1)

	byName := make(map[string]float64)
	for j, col := range w.Columns {
		byName[col.Name()] = w.Rows[0].Values[j]
	}
	assert.InDelta(t, 0.125, byName["S1 / "+SectorHeatEfficiency], 1e-12)
	assert.InDelta(t, 0.875, byName["S1 / "+SectorTransmission], 1e-12)
}

func TestCostSector(t *testing.T) {
	tests := []struct {
		tech string
		want string
	}{
		{"DHWDIS01", SectorHeatDistribution},
		{"BERAUP", SectorHeatDistribution},
		{"BEHOUSE", SectorHeatEfficiency},
		{"NGDD01", SectorHeatGeneration},
		{"ASDNDO", SectorHeatGeneration},
		{"DHPLANT", SectorDistrictHeating},
		{"ELSDIS", SectorDistrictHeating},
		{"ELTDIS", SectorTransmission},
		{"ELTTRA", SectorTransmission},
		{"NGSNAT", SectorSupply},
		{"H2SEXT", SectorSupply},
		{"NGBSSNAT", SectorOthers},
		{"PVROOF", SectorOthers},
		{"", SectorOthers},
	}
	for _, tt := range tests {
		t.Run(tt.tech, func(t *testing.T) {
			assert.Equal(t, tt.want, CostSector(tt.tech))
		})
	}
}

func TestPrefixFunction(t *testing.T) {
	fn, err := NewFunction("prefix", map[string]any{"length": 4})
	require.NoError(t, err)
	assert.Equal(t, "NGBO", fn("NGBO01"))
	assert.Equal(t, "UK", fn("UK"))

	_, err = NewFunction("prefix", map[string]any{"length": "four"})
	require.Error(t, err)
	_, err = NewFunction("prefix", nil)
	require.Error(t, err)
}

func TestChartConfig_SelectOverridesFFilter(t *testing.T) {
	c := parse(t, "name: s\nvariable: V\nx: [YEAR]\nffilter: {RUN: S1, REGION: UK}\n")
	cfg, err := c.Config(Options{Select: map[string]string{"RUN": "S2"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"RUN": "S2", "REGION": "UK"}, cfg.FFilter)
}
