package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pathways-lab/scenario-explorer/internal/charts"
	corecfg "github.com/pathways-lab/scenario-explorer/internal/core/config"
	"github.com/pathways-lab/scenario-explorer/internal/netzero"
	"github.com/pathways-lab/scenario-explorer/internal/projection"
	"github.com/pathways-lab/scenario-explorer/internal/results"
	"github.com/pathways-lab/scenario-explorer/internal/style"
)

// app is everything a command needs once config, style and results are loaded.
type app struct {
	cfg      *corecfg.Config
	style    *style.Style
	store    *results.Store
	reloader *results.Reloader
	service  *projection.Service
}

// newApp loads config and style and wires the result store, reloader and
// projection service. Results are not read yet.
func newApp() (*app, error) {
	cfg, err := corecfg.Load(configPath)
	if err != nil {
		return nil, err
	}
	slog.Debug("[Explorer] Loaded config", "config", cfg)

	st, err := style.Load(style.Options{
		NamingFile:     cfg.Style.NamingFile,
		PaletteFile:    cfg.Style.PaletteFile,
		AllocationFile: cfg.Style.AllocationFile,
		Palette:        cfg.Style.Palette,
		Theme:          cfg.Style.Theme,
		Continuous:     cfg.Style.Continuous,
	})
	if err != nil {
		return nil, fmt.Errorf("load style: %w", err)
	}

	aggregator, err := results.NewAggregator(cfg.Results.MergeOperator)
	if err != nil {
		return nil, err
	}
	source := results.DirSource{
		Path: cfg.Results.Path,
		Selection: results.Selection{
			Include: cfg.Results.Include,
			Exclude: cfg.Results.Exclude,
		},
		Workers: cfg.Results.Workers,
		Aliases: cfg.Results.RunAliases,
	}
	store := results.NewStore()

	periods := cfg.Scale.EffectivePeriods()
	service := projection.NewService(store, cfg.ChartLoading.Repository, st, projection.Options{
		ScaleDimension:  cfg.Scale.Dimension,
		Periods:         periods,
		CacheCapacity:   cfg.Cache.Capacity,
		NetZeroVariable: cfg.NetZero.Variable,
		NetZero: netzero.Options{
			YearDimension: cfg.Scale.Dimension,
			BaseYear:      cfg.NetZero.BaseYear,
			Threshold:     cfg.NetZero.Threshold,
			Periods:       periods,
		},
	})

	return &app{
		cfg:      cfg,
		style:    st,
		store:    store,
		reloader: results.NewReloader(cfg.Results.ReloadInterval, source, aggregator, store),
		service:  service,
	}, nil
}

// load reads the results once and publishes them.
func (a *app) load(ctx context.Context) (*results.Snapshot, error) {
	if _, err := a.reloader.Reload(ctx); err != nil {
		return nil, err
	}
	return a.store.Current(), nil
}

// chartOptions returns the options charts are rendered with outside the API.
func (a *app) chartOptions() charts.Options {
	return charts.Options{
		ScaleDimension: a.cfg.Scale.Dimension,
		Periods:        a.cfg.Scale.EffectivePeriods(),
		Naming:         a.style.Naming,
	}
}
