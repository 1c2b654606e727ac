package charts

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrChartNotFound is returned when no chart has the requested name.
var ErrChartNotFound = errors.New("chart not found")

// Repository gives access to chart definitions.
type Repository interface {
	// Get returns the chart with the given name.
	Get(ctx context.Context, name string) (*Chart, error)

	// List returns all charts, optionally only those of one variable, sorted by name.
	List(ctx context.Context, variable string) ([]Chart, error)
}

// FileSystemRepository loads chart definitions from *.yaml files in a
// directory. Each file holds exactly one chart. Definitions are loaded once
// at startup.
type FileSystemRepository struct {
	dir    string
	charts map[string]Chart
}

// NewFileSystemRepository creates a repository and eagerly loads every chart
// in dir. A malformed or invalid file fails the whole load.
func NewFileSystemRepository(dir string) (*FileSystemRepository, error) {
	repo := &FileSystemRepository{
		dir:    dir,
		charts: make(map[string]Chart),
	}
	if err := repo.load(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *FileSystemRepository) load() error {
	info, err := os.Stat(r.dir)
	if os.IsNotExist(err) {
		return nil // no chart directory, zero charts configured
	}
	if err != nil {
		return fmt.Errorf("chart dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("chart path %q is not a directory", r.dir)
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("reading chart dir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() || (!strings.HasSuffix(e.Name(), ".yaml") && !strings.HasSuffix(e.Name(), ".yml")) {
			continue
		}

		path := filepath.Join(r.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading chart file %s: %w", path, err)
		}

		chart, err := Parse(data)
		if err != nil {
			return fmt.Errorf("chart file %s: %w", path, err)
		}
		if chart == nil {
			continue // empty or comment-only file
		}
		if _, exists := r.charts[chart.Name]; exists {
			return fmt.Errorf("chart %q: duplicate chart name (check multiple YAML files)", chart.Name)
		}
		r.charts[chart.Name] = *chart
	}
	return nil
}

// Parse decodes and validates one chart definition. It returns nil, nil for
// a document without a name.
func Parse(data []byte) (*Chart, error) {
	var def definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parsing chart: %w", err)
	}
	if def.Name == "" {
		return nil, nil
	}
	if err := def.validate(); err != nil {
		return nil, fmt.Errorf("chart %q: %w", def.Name, err)
	}
	if def.Title == "" {
		def.Title = def.Name
	}
	return &Chart{
		Name:        def.Name,
		Title:       def.Title,
		Kind:        def.Kind,
		Variable:    def.Variable,
		XLabel:      def.XLabel,
		YLabel:      def.YLabel,
		Legend:      def.Legend,
		Fingerprint: fmt.Sprintf("%x", sha256.Sum256(data)),
		def:         def,
	}, nil
}

// Get returns the chart with the given name.
func (r *FileSystemRepository) Get(_ context.Context, name string) (*Chart, error) {
	chart, ok := r.charts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrChartNotFound, name)
	}
	return &chart, nil
}

// List returns all charts sorted by name, optionally filtered by variable.
func (r *FileSystemRepository) List(_ context.Context, variable string) ([]Chart, error) {
	out := make([]Chart, 0, len(r.charts))
	for _, chart := range r.charts {
		if variable != "" && chart.Variable != variable {
			continue
		}
		out = append(out, chart)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Len returns the number of loaded charts.
func (r *FileSystemRepository) Len() int { return len(r.charts) }
