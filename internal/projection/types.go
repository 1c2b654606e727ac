package projection

import (
	"math"
	"strconv"
	"time"

	"github.com/pathways-lab/scenario-explorer/internal/style"
)

// Value is a table cell. Missing and undefined cells (NaN, ±Inf) encode as
// JSON null.
type Value float64

func (v Value) MarshalJSON() ([]byte, error) {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, f, 'g', -1, 64), nil
}

// ChartSummary is one catalog entry.
type ChartSummary struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Kind        string `json:"kind,omitempty"`
	Variable    string `json:"variable"`
	Fingerprint string `json:"fingerprint"`
}

// ChartListResponse is the response of GET /v1/charts.
type ChartListResponse struct {
	Charts []ChartSummary `json:"charts"`
}

// Row is one row of a rendered chart.
type Row struct {
	Key    []string `json:"key"`
	Values []Value  `json:"values"`
}

// XY names the series of a scatter-style chart.
type XY struct {
	X []string `json:"x"`
	Y []string `json:"y"`
}

// ChartResponse is a rendered chart. When Empty is set the chart produced no
// data for the loaded results and Reason says why; the table fields are then
// left out.
type ChartResponse struct {
	Chart       string             `json:"chart"`
	Title       string             `json:"title"`
	Kind        string             `json:"kind,omitempty"`
	Variable    string             `json:"variable"`
	XLabel      string             `json:"x_label,omitempty"`
	YLabel      string             `json:"y_label,omitempty"`
	Legend      string             `json:"legend,omitempty"`
	Select      map[string]string  `json:"select,omitempty"`
	Empty       bool               `json:"empty"`
	Reason      string             `json:"reason,omitempty"`
	Index       []string           `json:"index,omitempty"`
	ColumnDims  []string           `json:"column_dims,omitempty"`
	Columns     []string           `json:"columns,omitempty"`
	Rows        []Row              `json:"rows,omitempty"`
	XY          *XY                `json:"xy,omitempty"`
	Colours     map[string]string  `json:"colours,omitempty"`
	ColourStops []style.ColourStop `json:"colour_stops,omitempty"`
	ResultSet   string             `json:"result_set"`
	Generation  uint64             `json:"generation"`
	RenderedAt  time.Time          `json:"rendered_at"`
}

// VariableInfo describes one variable of the loaded result set.
type VariableInfo struct {
	Name       string   `json:"name"`
	Dimensions []string `json:"dimensions"`
	Rows       int      `json:"rows"`
}

// VariablesResponse is the response of GET /v1/variables.
type VariablesResponse struct {
	ResultSet  string         `json:"result_set"`
	Generation uint64         `json:"generation"`
	LoadedAt   time.Time      `json:"loaded_at"`
	Variables  []VariableInfo `json:"variables"`
}

// NetZeroRow is the first year one group reaches the threshold.
type NetZeroRow struct {
	Group []string `json:"group"`
	Year  Value    `json:"year"`
}

// NetZeroResponse is the response of GET /v1/netzero.
type NetZeroResponse struct {
	Variable   string       `json:"variable"`
	BaseYear   string       `json:"base_year"`
	Threshold  float64      `json:"threshold"`
	Dimensions []string     `json:"dimensions,omitempty"`
	Rows       []NetZeroRow `json:"rows"`
	Empty      bool         `json:"empty"`
	Reason     string       `json:"reason,omitempty"`
	ResultSet  string       `json:"result_set"`
	Generation uint64       `json:"generation"`
}
