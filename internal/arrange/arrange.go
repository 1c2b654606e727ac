// Package arrange reduces one fact table of a result set to a chart-ready
// wide table through a fixed sequence of optional stages.
package arrange

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/pathways-lab/scenario-explorer/internal/core/facttable"
	"github.com/pathways-lab/scenario-explorer/internal/results"
)

// Arrange looks up variable in rs, reduces it with cfg and pivots it into a
// wide table. A degenerate result is an empty table, not an error.
// Arrange does not modify rs and is safe for concurrent use.
func Arrange(rs *results.ResultSet, variable string, cfg Config) (*WideTable, error) {
	t, ok := rs.Table(variable)
	if !ok {
		slog.Warn("[Arrange] Variable not found", "variable", variable, "result_set", rs.Name())
		return nil, fmt.Errorf("%w: %q", ErrVariableNotFound, variable)
	}

	reduced, err := Reduce(t, cfg)
	if err != nil {
		slog.Warn("[Arrange] Pipeline failed", "variable", variable, "error", err)
		return nil, err
	}

	w, err := reshape(reduced, cfg.X, cfg.XY)
	if err != nil {
		slog.Warn("[Arrange] Pipeline failed", "variable", variable, "error", err)
		return nil, err
	}
	if cfg.Naming != nil {
		w.rename(cfg.Naming)
	}

	slog.Debug("[Arrange] Arranged",
		"variable", variable,
		"rows", len(w.Rows),
		"columns", len(w.Columns),
		"empty", w.Empty(),
	)
	return w, nil
}

// Reduce runs the long-form stages of cfg on t and returns the reduced table.
func Reduce(t *facttable.Table, cfg Config) (*facttable.Table, error) {
	cur := t
	for _, stage := range cfg.Stages() {
		next, err := stage.Apply(cur)
		if err != nil {
			var se *StageError
			if errors.As(err, &se) {
				return nil, err
			}
			return nil, &StageError{Stage: stage.Name, Err: err}
		}
		slog.Debug("[Arrange] Stage applied", "stage", stage.Name, "rows_in", cur.Len(), "rows_out", next.Len())
		cur = next
	}
	return cur, nil
}
