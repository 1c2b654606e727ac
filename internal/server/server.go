package server

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pathways-lab/scenario-explorer/internal/metrics"
	"github.com/pathways-lab/scenario-explorer/internal/results"
)

type Server struct {
	Engine    *gin.Engine
	Addr      string
	snapshots results.SnapshotReader
	db        *sql.DB
}

// New creates the HTTP server with /health and /metrics. db may be nil when
// no export database is configured.
func New(addr string, snapshots results.SnapshotReader, db *sql.DB, mode string) *Server {
	// Set Gin mode based on configuration
	if mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), metrics.Middleware())
	if mode == "debug" {
		r.Use(gin.Logger())
	}

	s := &Server{
		Engine:    r,
		Addr:      addr,
		snapshots: snapshots,
		db:        db,
	}

	r.GET("/health", s.healthHandler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return s
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	body := gin.H{"status": "healthy"}

	if !s.snapshots.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "results not loaded",
		})
		return
	}
	snap := s.snapshots.Current()
	body["result_set"] = snap.Set.Name()
	body["generation"] = snap.Generation
	body["loaded_at"] = snap.LoadedAt

	if s.db != nil {
		if err := s.db.PingContext(ctx); err != nil {
			slog.Error("[Server] Health check failed: database unreachable", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database unreachable",
			})
			return
		}
		body["database"] = "connected"
	}

	c.JSON(http.StatusOK, body)
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.Addr,
		Handler: s.Engine,
	}

	slog.Info("[Server] Starting HTTP Server...", "address", s.Addr)

	go func() {
		<-ctx.Done()
		slog.Info("[Server] Stopping HTTP Server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("[Server] HTTP Server forced to shutdown", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
