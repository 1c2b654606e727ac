// Package export renders every configured chart against a result set and
// hands the tables to one or more sinks (CSV files, the Postgres store).
package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pathways-lab/scenario-explorer/internal/arrange"
	"github.com/pathways-lab/scenario-explorer/internal/charts"
	"github.com/pathways-lab/scenario-explorer/internal/core/facttable"
	"github.com/pathways-lab/scenario-explorer/internal/core/storage"
	"github.com/pathways-lab/scenario-explorer/internal/results"
)

const rowKeySep = " / "

// Rendering is one chart arranged against one result set.
type Rendering struct {
	Chart     charts.Chart
	ResultSet string
	Table     *arrange.WideTable
}

// Sink receives renderings.
type Sink interface {
	Write(ctx context.Context, r Rendering) error
}

// Summary counts the outcome of a Run.
type Summary struct {
	Written int
	// Skipped charts refer to a variable or dimension the result set lacks.
	Skipped int
	// Empty charts arranged to a degenerate table and were not written.
	Empty int
}

// Run renders every chart with its default parameters and writes each
// non-empty table to all sinks. A chart that does not fit the result set is
// skipped with a warning; a sink failure aborts the run.
func Run(ctx context.Context, rs *results.ResultSet, list []charts.Chart, opts charts.Options, sinks ...Sink) (Summary, error) {
	var sum Summary
	for _, c := range list {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		w, err := c.Render(rs, opts)
		if errors.Is(err, arrange.ErrVariableNotFound) || errors.Is(err, arrange.ErrConfigurationMismatch) {
			slog.Warn("[Export] Skipping chart", "chart", c.Name, "error", err)
			sum.Skipped++
			continue
		}
		if err != nil {
			return sum, fmt.Errorf("render chart %s: %w", c.Name, err)
		}
		if w.Empty() {
			slog.Info("[Export] Chart has no data", "chart", c.Name)
			sum.Empty++
			continue
		}

		r := Rendering{Chart: c, ResultSet: rs.Name(), Table: w}
		for _, s := range sinks {
			if err := s.Write(ctx, r); err != nil {
				return sum, fmt.Errorf("export chart %s: %w", c.Name, err)
			}
		}
		sum.Written++
	}

	slog.Info("[Export] Completed",
		"result_set", rs.Name(),
		"written", sum.Written,
		"skipped", sum.Skipped,
		"empty", sum.Empty,
	)
	return sum, nil
}

// CSVSink writes each rendering in long form to <Dir>/<chart>.csv, one row
// per non-missing cell.
type CSVSink struct {
	Dir string
}

func (s CSVSink) Write(_ context.Context, r Rendering) error {
	long, err := r.Table.Stack()
	if err != nil {
		return fmt.Errorf("stack %s: %w", r.Chart.Name, err)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	path := filepath.Join(s.Dir, FileName(r.Chart.Name))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteCSV(f, long); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	slog.Debug("[Export] Wrote CSV", "chart", r.Chart.Name, "path", path, "rows", long.Len())
	return nil
}

// FileName maps a chart name to its CSV file name.
func FileName(chart string) string {
	return strings.NewReplacer("/", "_", `\`, "_", " ", "_").Replace(chart) + ".csv"
}

// WriteCSV writes t with a header of its dimensions plus VALUE.
func WriteCSV(out io.Writer, t *facttable.Table) error {
	w := csv.NewWriter(out)
	header := append(t.Dimensions(), facttable.ValueColumn)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range t.Rows() {
		rec := append(r.Labels, strconv.FormatFloat(r.Value, 'g', -1, 64))
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// StoreSink persists renderings through an ExportStore.
type StoreSink struct {
	Store storage.ExportStore
}

func (s StoreSink) Write(ctx context.Context, r Rendering) error {
	return s.Store.SaveExport(ctx, &storage.Export{
		Chart:       r.Chart.Name,
		Fingerprint: r.Chart.Fingerprint,
		ResultSet:   r.ResultSet,
		Cells:       Cells(r.Table),
	})
}

// Cells flattens a wide table into row/column/value cells.
func Cells(w *arrange.WideTable) []storage.Cell {
	out := make([]storage.Cell, 0, len(w.Rows)*len(w.Columns))
	for _, row := range w.Rows {
		key := strings.Join(row.Key, rowKeySep)
		for j, v := range row.Values {
			out = append(out, storage.Cell{Row: key, Column: w.Columns[j].Name(), Value: v})
		}
	}
	return out
}
