package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no export exists for the requested chart.
var ErrNotFound = errors.New("export not found")

// Cell is one value of a rendered chart: row key and column name joined
// for display.
type Cell struct {
	Row    string
	Column string
	Value  float64
}

// Export is one persisted chart rendering.
type Export struct {
	ID          uuid.UUID
	Chart       string
	Fingerprint string
	ResultSet   string
	CreatedAt   time.Time
	Cells       []Cell
}

// ExportStore persists chart renderings.
type ExportStore interface {
	// SaveExport writes the export and its cells atomically. It assigns ID and
	// CreatedAt when they are unset.
	SaveExport(ctx context.Context, e *Export) error

	// LatestExport returns the most recent export of chart, cells included.
	LatestExport(ctx context.Context, chart string) (*Export, error)
}
