// Package style loads the display tables shared by all charts: the model
// name to display name table and the colour allocation of a palette/theme.
package style

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Column headers of the style CSV files.
const (
	colNameInModel = "NAME_IN_MODEL"
	colName        = "NAME"
	colPalette     = "PALETTE"
	colPCCode      = "PC_CODE"
	colColourCode  = "COLOUR_CODE"
	colTheme       = "THEME"
	colArtefact    = "ARTEFACT"

	// baseCode marks the palette entry used at the bottom of a continuous scale.
	baseCode = -1
)

// Options selects the style files and the palette/theme to use.
type Options struct {
	NamingFile     string
	PaletteFile    string
	AllocationFile string
	Palette        string
	Theme          string
	// Continuous builds colour stops instead of an artefact allocation.
	Continuous bool
}

// ColourStop is one point of a continuous colour scale.
type ColourStop struct {
	Position float64 `json:"position"`
	Colour   string  `json:"colour"`
}

// Style is the loaded, read-only display configuration.
type Style struct {
	// Naming maps model names to display names.
	Naming map[string]string
	// Colours maps a display artefact name to a colour code.
	Colours map[string]string
	// Stops is set in continuous mode.
	Stops []ColourStop
}

// Empty returns a style without names or colours.
func Empty() *Style {
	return &Style{Naming: map[string]string{}, Colours: map[string]string{}}
}

// Load reads the configured files. An empty path skips that table.
func Load(opts Options) (*Style, error) {
	s := Empty()

	if opts.NamingFile != "" {
		naming, err := LoadNaming(opts.NamingFile)
		if err != nil {
			return nil, err
		}
		s.Naming = naming
	}

	if opts.PaletteFile == "" {
		slog.Info("[Style] Loaded", "names", len(s.Naming), "colours", 0)
		return s, nil
	}
	palette, err := loadPalette(opts.PaletteFile, opts.Palette)
	if err != nil {
		return nil, err
	}

	if opts.Continuous {
		s.Stops = continuousStops(palette)
	} else if opts.AllocationFile != "" {
		s.Colours, err = loadAllocation(opts.AllocationFile, opts.Theme, palette, s.Naming)
		if err != nil {
			return nil, err
		}
	}

	slog.Info("[Style] Loaded",
		"names", len(s.Naming),
		"colours", len(s.Colours),
		"stops", len(s.Stops),
		"palette", opts.Palette,
		"theme", opts.Theme,
	)
	return s, nil
}

// ColoursFor returns the colours of the given display labels that have one.
func (s *Style) ColoursFor(labels []string) map[string]string {
	out := make(map[string]string)
	for _, l := range labels {
		if c, ok := s.Colours[l]; ok {
			out[l] = c
		}
	}
	return out
}

// LoadNaming reads a NAME_IN_MODEL,NAME table.
func LoadNaming(path string) (map[string]string, error) {
	rows, err := readTable(path, colNameInModel, colName)
	if err != nil {
		return nil, err
	}
	naming := make(map[string]string, len(rows))
	for _, r := range rows {
		naming[r[0]] = r[1]
	}
	return naming, nil
}

type paletteEntry struct {
	code   int
	colour string
}

// loadPalette reads the entries of one palette, sorted by PC_CODE.
func loadPalette(path, palette string) ([]paletteEntry, error) {
	rows, err := readTable(path, colPalette, colPCCode, colColourCode)
	if err != nil {
		return nil, err
	}
	var out []paletteEntry
	for i, r := range rows {
		if r[0] != palette {
			continue
		}
		code, err := strconv.Atoi(r[1])
		if err != nil {
			return nil, fmt.Errorf("%s: row %d: invalid %s %q", path, i+2, colPCCode, r[1])
		}
		out = append(out, paletteEntry{code: code, colour: r[2]})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: palette %q not found", path, palette)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].code < out[j].code })
	return out, nil
}

// loadAllocation joins the theme's artefact allocation with the palette on
// PC_CODE. Artefacts are renamed to their display names first; artefacts
// whose code is not in the palette get no colour.
func loadAllocation(path, theme string, palette []paletteEntry, naming map[string]string) (map[string]string, error) {
	rows, err := readTable(path, colTheme, colArtefact, colPCCode)
	if err != nil {
		return nil, err
	}
	byCode := make(map[int]string, len(palette))
	for _, p := range palette {
		byCode[p.code] = p.colour
	}
	out := make(map[string]string)
	for i, r := range rows {
		if r[0] != theme {
			continue
		}
		code, err := strconv.Atoi(r[2])
		if err != nil {
			return nil, fmt.Errorf("%s: row %d: invalid %s %q", path, i+2, colPCCode, r[2])
		}
		colour, ok := byCode[code]
		if !ok {
			continue
		}
		artefact := r[1]
		if display, ok := naming[artefact]; ok {
			artefact = display
		}
		out[artefact] = colour
	}
	return out, nil
}

// continuousStops puts the base colour at 0 and spreads the rest evenly
// over [0.001, 1].
func continuousStops(palette []paletteEntry) []ColourStop {
	var stops []ColourStop
	var rest []string
	for _, p := range palette {
		if p.code == baseCode {
			stops = append(stops, ColourStop{Position: 0, Colour: p.colour})
			continue
		}
		rest = append(rest, p.colour)
	}
	const lo, hi = 0.001, 1.0
	for i, c := range rest {
		pos := lo
		switch {
		case len(rest) > 1 && i == len(rest)-1:
			pos = hi
		case len(rest) > 1:
			pos = lo + (hi-lo)*float64(i)/float64(len(rest)-1)
		}
		stops = append(stops, ColourStop{Position: pos, Colour: c})
	}
	return stops
}

// readTable reads a CSV file with a header row and returns the requested
// columns of every data row.
func readTable(path string, columns ...string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open style table: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: reading header: %w", path, err)
	}
	pos := make([]int, len(columns))
	for i, c := range columns {
		pos[i] = -1
		for j, h := range header {
			if strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) == c {
				pos[i] = j
				break
			}
		}
		if pos[i] < 0 {
			return nil, fmt.Errorf("%s: missing column %s", path, c)
		}
	}

	var out [][]string
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: line %d: %w", path, line, err)
		}
		row := make([]string, len(pos))
		for i, p := range pos {
			if p >= len(rec) {
				return nil, fmt.Errorf("%s: line %d: missing column %s", path, line, columns[i])
			}
			row[i] = strings.TrimSpace(rec[p])
		}
		out = append(out, row)
	}
	return out, nil
}
