package results

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pathways-lab/scenario-explorer/internal/metrics"
)

// Source yields run packages and a stamp that changes whenever they do.
type Source interface {
	Read(ctx context.Context) ([]RunPackage, error)
	Stamp() (string, error)
}

// DirSource reads result archives from a file or directory.
type DirSource struct {
	Path      string
	Selection Selection
	Workers   int
	// Aliases are added to every package's run alias table.
	Aliases map[string]string
}

// Read reads all archives under Path.
func (d DirSource) Read(ctx context.Context) ([]RunPackage, error) {
	packages, err := ReadPackages(ctx, d.Path, d.Selection, d.Workers)
	if err != nil {
		return nil, err
	}
	if len(d.Aliases) > 0 {
		for i := range packages {
			if packages[i].Aliases == nil {
				packages[i].Aliases = make(map[string]string, len(d.Aliases))
			}
			for k, v := range d.Aliases {
				packages[i].Aliases[k] = v
			}
		}
	}
	return packages, nil
}

// Stamp fingerprints archive names, sizes and modification times.
func (d DirSource) Stamp() (string, error) {
	paths, err := ArchivePaths(d.Path)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", p, err)
		}
		fmt.Fprintf(h, "%s|%d|%d\n", p, info.Size(), info.ModTime().UnixNano())
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// noDataStamp stands in for the stamp while the result path holds no archives.
const noDataStamp = "no-data"

// Reloader periodically re-reads a Source and publishes the merged result
// set to a Store. A failed read or merge keeps the previous snapshot.
type Reloader struct {
	interval   time.Duration
	source     Source
	aggregator *Aggregator
	store      *Store

	lastStamp string
}

// NewReloader creates a reloader. An interval <= 0 disables periodic reloads;
// Start then loads once and waits for cancellation.
func NewReloader(interval time.Duration, source Source, aggregator *Aggregator, store *Store) *Reloader {
	return &Reloader{
		interval:   interval,
		source:     source,
		aggregator: aggregator,
		store:      store,
	}
}

// Start loads immediately, then on every tick until ctx is cancelled.
func (r *Reloader) Start(ctx context.Context) error {
	slog.Info("[Reloader] Starting result reloader", "interval", r.interval)

	if _, err := r.Reload(ctx); err != nil {
		slog.Error("[Reloader] Initial load failed", "error", err)
	}

	if r.interval <= 0 {
		<-ctx.Done()
		slog.Info("[Reloader] Stopping (context cancelled)")
		return nil
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := r.Reload(ctx); err != nil {
				slog.Error("[Reloader] Reload failed, keeping previous results", "error", err)
			}
		case <-ctx.Done():
			slog.Info("[Reloader] Stopping (context cancelled)")
			return nil
		}
	}
}

// Reload re-reads the source if its stamp changed and publishes the merged
// set. It reports whether a new snapshot was published.
func (r *Reloader) Reload(ctx context.Context) (bool, error) {
	published, err := r.reload(ctx)
	switch {
	case err != nil:
		metrics.RecordReload("error", 0, 0)
	case published:
		snap := r.store.Current()
		metrics.RecordReload("published", snap.Generation, snap.Set.Len())
	default:
		metrics.RecordReload("unchanged", 0, 0)
	}
	return published, err
}

func (r *Reloader) reload(ctx context.Context) (bool, error) {
	stamp, err := r.source.Stamp()
	noData := errors.Is(err, ErrNoDataFound)
	if err != nil && !noData {
		return false, fmt.Errorf("stamp results: %w", err)
	}
	if noData {
		stamp = noDataStamp
	}
	if stamp == r.lastStamp && r.store.Current() != nil {
		slog.Debug("[Reloader] Results unchanged", "stamp", stamp)
		return false, nil
	}

	var packages []RunPackage
	if !noData {
		packages, err = r.source.Read(ctx)
		if err != nil && !errors.Is(err, ErrNoDataFound) {
			return false, fmt.Errorf("read results: %w", err)
		}
	}
	set, err := r.aggregator.Load(packages)
	if err != nil && !errors.Is(err, ErrNoDataFound) {
		return false, fmt.Errorf("merge results: %w", err)
	}
	if errors.Is(err, ErrNoDataFound) {
		slog.Warn("[Reloader] No result data found, publishing an empty result set")
	}

	snap := r.store.Publish(set)
	r.lastStamp = stamp
	slog.Info("[Reloader] Published results",
		"name", set.Name(),
		"variables", set.Len(),
		"generation", snap.Generation,
	)
	return true, nil
}
