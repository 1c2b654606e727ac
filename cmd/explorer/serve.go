package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pathways-lab/scenario-explorer/internal/core/storage/postgres"
	"github.com/pathways-lab/scenario-explorer/internal/migrations"
	"github.com/pathways-lab/scenario-explorer/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP query API",
	Long: `Run the HTTP query API. Results are loaded at startup and re-read whenever
the archives change (see results.reload_interval).`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	// 1. Load configuration, style and chart definitions
	a, err := newApp()
	if err != nil {
		return err
	}
	cfg := a.cfg
	slog.Info("[Explorer] Loaded config",
		"results", cfg.Results.Path,
		"charts", cfg.ChartLoading.Repository.Len(),
		"reload_interval", cfg.Results.ReloadInterval,
	)

	// 2. Initialize Storage (PostgreSQL, optional)
	var db *sql.DB
	if cfg.Database.DSN != "" {
		dbAdapter, err := postgres.NewAdapter(cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
		if err != nil {
			return err
		}
		defer dbAdapter.Close()

		// 2.1. Run Database Migrations
		if err := migrations.RunMigrations(dbAdapter.DB(), cfg.Database.AutoMigrate); err != nil {
			return err
		}
		db = dbAdapter.DB()
	} else {
		slog.Info("[Explorer] No database configured, health check skips it")
	}

	// 3. Initialize Server
	srv := server.New(cfg.Server.Addr(), a.store, db, cfg.Server.Mode)
	a.service.RegisterRoutes(srv.Engine)

	// 4. Start Services
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	go func() {
		if err := a.reloader.Start(ctx); err != nil {
			slog.Error("[Explorer] Reloader stopped with error", "error", err)
		}
	}()

	// Signal handler → triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		select {
		case <-quit:
			slog.Info("[Explorer] Signal received, shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		return err
	}

	slog.Info("[Explorer] Shutdown complete")
	return nil
}
