package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/pathways-lab/scenario-explorer/internal/core/storage"
)

const (
	queryTablesExist = `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_name = 'chart_exports'
		)
	`

	queryInsertExport = `
		INSERT INTO chart_exports (id, chart_name, fingerprint, result_set, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	queryInsertCell = `
		INSERT INTO chart_cells (export_id, row_key, column_key, value)
		VALUES ($1, $2, $3, $4)
	`

	queryLatestExport = `
		SELECT id, chart_name, fingerprint, result_set, created_at
		FROM chart_exports
		WHERE chart_name = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	querySelectCells = `
		SELECT row_key, column_key, value
		FROM chart_cells
		WHERE export_id = $1
		ORDER BY cell_seq ASC
	`
)

// ExportAdapter implements storage.ExportStore using PostgreSQL.
// An export row and its cells are written in a single transaction.
type ExportAdapter struct {
	db    *sql.DB
	nowFn func() time.Time
}

var _ storage.ExportStore = (*ExportAdapter)(nil)

// NewExportAdapter creates an ExportAdapter sharing the given connection.
func NewExportAdapter(db *sql.DB) *ExportAdapter {
	return &ExportAdapter{
		db: db,
		nowFn: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// SaveExport inserts the export header and every finite cell. NaN and Inf
// cells are not stored.
func (a *ExportAdapter) SaveExport(ctx context.Context, e *storage.Export) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = a.nowFn()
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("chart export: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, queryInsertExport,
		e.ID,
		e.Chart,
		e.Fingerprint,
		e.ResultSet,
		e.CreatedAt,
	); err != nil {
		return fmt.Errorf("chart export: insert %s: %w", e.Chart, err)
	}

	cellStmt, err := tx.PrepareContext(ctx, queryInsertCell)
	if err != nil {
		return fmt.Errorf("chart export: prepare cell insert: %w", err)
	}
	defer cellStmt.Close()

	written := 0
	for _, c := range e.Cells {
		if math.IsNaN(c.Value) || math.IsInf(c.Value, 0) {
			continue
		}
		if _, err := cellStmt.ExecContext(ctx, e.ID, c.Row, c.Column, c.Value); err != nil {
			return fmt.Errorf("chart export: insert cell (%s, %s): %w", c.Row, c.Column, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("chart export: commit: %w", err)
	}

	slog.Info("[ExportAdapter] Flushed",
		"chart", e.Chart,
		"export_id", e.ID,
		"cells", written,
		"skipped", len(e.Cells)-written,
	)
	return nil
}

// LatestExport returns the most recent export of chart with its cells.
// Returns storage.ErrNotFound if the chart was never exported.
func (a *ExportAdapter) LatestExport(ctx context.Context, chart string) (*storage.Export, error) {
	var e storage.Export
	err := a.db.QueryRowContext(ctx, queryLatestExport, chart).Scan(
		&e.ID,
		&e.Chart,
		&e.Fingerprint,
		&e.ResultSet,
		&e.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, chart)
	}
	if err != nil {
		return nil, fmt.Errorf("latest export: %w", err)
	}

	rows, err := a.db.QueryContext(ctx, querySelectCells, e.ID)
	if err != nil {
		return nil, fmt.Errorf("latest export: load cells: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c storage.Cell
		if err := rows.Scan(&c.Row, &c.Column, &c.Value); err != nil {
			return nil, fmt.Errorf("latest export: scan cell: %w", err)
		}
		e.Cells = append(e.Cells, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("latest export: iterate cells: %w", err)
	}
	return &e, nil
}
