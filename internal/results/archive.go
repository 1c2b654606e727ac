package results

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	coreagg "github.com/pathways-lab/scenario-explorer/internal/core/aggregation"
	"github.com/pathways-lab/scenario-explorer/internal/core/facttable"
	"golang.org/x/sync/errgroup"
)

const descriptorName = "datapackage.json"

// Selection restricts which resources of a package are read.
// An empty Include means every resource.
type Selection struct {
	Include []string
	Exclude []string
}

func (s Selection) allows(title string) bool {
	for _, e := range s.Exclude {
		if e == title {
			return false
		}
	}
	if len(s.Include) == 0 {
		return true
	}
	for _, i := range s.Include {
		if i == title {
			return true
		}
	}
	return false
}

// descriptor is the on-disk datapackage.json shape.
type descriptor struct {
	Name      string     `json:"name"`
	Resources []resource `json:"resources"`
}

type resource struct {
	Title  string `json:"title"`
	Path   string `json:"path"`
	Schema struct {
		PrimaryKey primaryKey `json:"primaryKey"`
	} `json:"schema"`
}

// primaryKey accepts either a single column name or a list.
type primaryKey []string

func (pk *primaryKey) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*pk = primaryKey{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("primaryKey must be a string or list of strings: %w", err)
	}
	*pk = many
	return nil
}

// ArchivePaths resolves path to the result archives it designates: the file
// itself, or every .zip in the directory in sorted name order.
func ArchivePaths(path string) ([]string, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s does not exist", ErrNoDataFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("result path: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("reading result dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".zip") {
			continue
		}
		out = append(out, filepath.Join(path, e.Name()))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no archives in %s", ErrNoDataFound, path)
	}
	sort.Strings(out)
	return out, nil
}

// ReadPackages reads every archive designated by path. Archives are parsed
// concurrently by at most workers goroutines; the result keeps path order.
func ReadPackages(ctx context.Context, path string, sel Selection, workers int) ([]RunPackage, error) {
	paths, err := ArchivePaths(path)
	if err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = 1
	}

	slog.Info("[Results] Loading result archives", "path", path, "archives", len(paths))

	packages := make([]RunPackage, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			pkg, err := ReadPackage(p, sel)
			if err != nil {
				return err
			}
			packages[i] = pkg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.Info("[Results] Loaded result archives", "archives", len(packages))
	return packages, nil
}

// ReadPackage reads one zipped data package.
func ReadPackage(path string, sel Selection) (RunPackage, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return RunPackage{}, fmt.Errorf("open archive %s: %w", path, err)
	}
	defer zr.Close()

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	descFile, ok := files[descriptorName]
	if !ok {
		return RunPackage{}, fmt.Errorf("archive %s: missing %s", path, descriptorName)
	}
	var desc descriptor
	if err := decodeJSON(descFile, &desc); err != nil {
		return RunPackage{}, fmt.Errorf("archive %s: %s: %w", path, descriptorName, err)
	}

	pkg := RunPackage{Name: desc.Name, Tables: make(map[string]*facttable.Table)}
	for _, r := range desc.Resources {
		if !sel.allows(r.Title) {
			continue
		}
		f, ok := files[r.Path]
		if !ok {
			return RunPackage{}, fmt.Errorf("archive %s: resource %q: missing file %s", path, r.Title, r.Path)
		}
		t, err := readResource(f, r.Schema.PrimaryKey)
		if err != nil {
			return RunPackage{}, fmt.Errorf("archive %s: resource %q: %w", path, r.Title, err)
		}
		pkg.Tables[r.Title] = t
	}

	slog.Debug("[Results] Read package", "archive", path, "name", pkg.Name, "resources", len(pkg.Tables))
	return pkg, nil
}

func decodeJSON(f *zip.File, v any) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return json.NewDecoder(rc).Decode(v)
}

func readResource(f *zip.File, key primaryKey) (*facttable.Table, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	r := csv.NewReader(rc)
	r.ReuseRecord = true
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}
	valueCol, ok := col[facttable.ValueColumn]
	if !ok {
		return nil, fmt.Errorf("header has no %s column", facttable.ValueColumn)
	}
	pos := make([]int, len(key))
	for i, k := range key {
		p, ok := col[k]
		if !ok {
			return nil, fmt.Errorf("header has no primary key column %q", k)
		}
		pos[i] = p
	}

	var rows []facttable.Row
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		v, err := parseCell(rec[valueCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		labels := make([]string, len(pos))
		for i, p := range pos {
			labels[i] = rec[p]
		}
		rows = append(rows, facttable.Row{Labels: labels, Value: v})
	}

	return facttable.New(key, rows)
}

// parseCell reads a VALUE cell. Empty cells are missing values (NaN).
func parseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	if d, ok := coreagg.ParseValue(s); ok {
		return d.InexactFloat64(), nil
	}
	// nan, inf and friends
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", facttable.ValueColumn, s)
	}
	return f, nil
}
