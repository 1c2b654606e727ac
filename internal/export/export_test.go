package export

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/pathways-lab/scenario-explorer/internal/arrange"
	"github.com/pathways-lab/scenario-explorer/internal/charts"
	"github.com/pathways-lab/scenario-explorer/internal/core/facttable"
	"github.com/pathways-lab/scenario-explorer/internal/core/storage"
	storagemocks "github.com/pathways-lab/scenario-explorer/internal/mocks/storage"
	"github.com/pathways-lab/scenario-explorer/internal/results"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func chart(t *testing.T, doc string) charts.Chart {
	t.Helper()
	c, err := charts.Parse([]byte(doc))
	require.NoError(t, err)
	return *c
}

func resultSet() *results.ResultSet {
	capacity := facttable.MustNew([]string{"RUN", "TECHNOLOGY", "YEAR"}, []facttable.Row{
		{Labels: []string{"S1", "PV", "2025"}, Value: 10},
		{Labels: []string{"S1", "WIND", "2030"}, Value: 4},
		{Labels: []string{"S1", "PV", "2030"}, Value: 12.5},
	})
	return results.NewResultSet("aggregation_of_runs", map[string]*facttable.Table{"Capacity": capacity})
}

type recordingSink struct {
	got []Rendering
	err error
}

func (s *recordingSink) Write(_ context.Context, r Rendering) error {
	s.got = append(s.got, r)
	return s.err
}

func TestRun(t *testing.T) {
	list := []charts.Chart{
		chart(t, "name: capacity\nvariable: Capacity\nx: [YEAR]\n"),
		chart(t, "name: missing_variable\nvariable: Emissions\nx: [YEAR]\n"),
		chart(t, "name: missing_dimension\nvariable: Capacity\nx: [REGION]\n"),
		chart(t, "name: nothing_left\nvariable: Capacity\nx: [YEAR]\nzfilter: {RUN: S9}\n"),
	}
	sink := &recordingSink{}

	sum, err := Run(context.Background(), resultSet(), list, charts.Options{}, sink)
	require.NoError(t, err)

	assert.Equal(t, Summary{Written: 1, Skipped: 2, Empty: 1}, sum)
	require.Len(t, sink.got, 1)
	assert.Equal(t, "capacity", sink.got[0].Chart.Name)
	assert.Equal(t, "aggregation_of_runs", sink.got[0].ResultSet)
}

func TestRun_SinkErrorAborts(t *testing.T) {
	list := []charts.Chart{
		chart(t, "name: a\nvariable: Capacity\nx: [YEAR]\n"),
		chart(t, "name: b\nvariable: Capacity\nx: [YEAR]\n"),
	}
	boom := errors.New("disk full")
	sink := &recordingSink{err: boom}

	sum, err := Run(context.Background(), resultSet(), list, charts.Options{}, sink)
	require.ErrorIs(t, err, boom)
	assert.Zero(t, sum.Written)
	assert.Len(t, sink.got, 1)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, resultSet(), []charts.Chart{chart(t, "name: a\nvariable: Capacity\nx: [YEAR]\n")}, charts.Options{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestCSVSink_WritesLongFormSkippingMissingCells(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	c := chart(t, "name: capacity by tech\nvariable: Capacity\nx: [YEAR]\n")
	w, err := c.Render(resultSet(), charts.Options{})
	require.NoError(t, err)

	err = CSVSink{Dir: dir}.Write(context.Background(), Rendering{Chart: c, Table: w})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "capacity_by_tech.csv"))
	require.NoError(t, err)
	// (2025, WIND) is missing in the pivot and must not be written.
	assert.Equal(t,
		"YEAR,RUN,TECHNOLOGY,VALUE\n"+
			"2025,S1,PV,10\n"+
			"2030,S1,PV,12.5\n"+
			"2030,S1,WIND,4\n",
		string(data))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "a_b_c.csv", FileName("a/b c"))
}

func TestCells(t *testing.T) {
	w := &arrange.WideTable{
		Index:      []string{"YEAR"},
		ColumnDims: []string{"RUN"},
		Columns:    []arrange.Column{{Labels: []string{"S1"}}, {Labels: []string{"S2"}}},
		Rows: []arrange.WideRow{
			{Key: []string{"2025"}, Values: []float64{1, math.NaN()}},
		},
	}
	cells := Cells(w)
	require.Len(t, cells, 2)
	assert.Equal(t, storage.Cell{Row: "2025", Column: "S1", Value: 1}, cells[0])
	assert.Equal(t, "S2", cells[1].Column)
	assert.True(t, math.IsNaN(cells[1].Value))
}

func TestStoreSink(t *testing.T) {
	c := chart(t, "name: capacity\nvariable: Capacity\nx: [YEAR]\n")
	w, err := c.Render(resultSet(), charts.Options{})
	require.NoError(t, err)

	store := storagemocks.NewExportStore(t)
	store.EXPECT().SaveExport(mock.Anything, mock.MatchedBy(func(e *storage.Export) bool {
		return e.Chart == "capacity" &&
			e.Fingerprint == c.Fingerprint &&
			e.ResultSet == "aggregation_of_runs" &&
			len(e.Cells) == 4
	})).Return(nil).Once()

	err = StoreSink{Store: store}.Write(context.Background(), Rendering{Chart: c, ResultSet: "aggregation_of_runs", Table: w})
	require.NoError(t, err)
}
