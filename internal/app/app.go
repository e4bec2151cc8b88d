// Package app initializes and orchestrates the main components of the
// PR Sentinel application: the webhook server, the review worker pool,
// and their backing connections.
package app

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/revware/pr-sentinel/internal/config"
	"github.com/revware/pr-sentinel/internal/db"
	"github.com/revware/pr-sentinel/internal/jobs"
	"github.com/revware/pr-sentinel/internal/server"
)

// App holds the main application components.
type App struct {
	cfg     *config.Config
	server  *server.Server
	workers *jobs.WorkerPool
	dbConn  *db.DB
	redis   *redis.Client
	logger  *slog.Logger
}

// NewApp assembles the application from already-constructed components.
func NewApp(cfg *config.Config, srv *server.Server, workers *jobs.WorkerPool, dbConn *db.DB, redisClient *redis.Client, logger *slog.Logger) *App {
	return &App{
		cfg:     cfg,
		server:  srv,
		workers: workers,
		dbConn:  dbConn,
		redis:   redisClient,
		logger:  logger,
	}
}

// Start launches the worker pool and runs the HTTP server. It blocks
// until the server stops.
func (a *App) Start(ctx context.Context) error {
	a.logger.Info("starting PR Sentinel",
		"server_port", a.cfg.Server.Port,
		"max_workers", a.cfg.Review.MaxWorkers,
		"stream", a.cfg.Redis.Stream,
	)

	a.workers.Start(ctx)

	if err := a.server.Start(); err != nil {
		a.logger.Error("failed to start HTTP server", "error", err)
		return err
	}
	return nil
}

// Stop shuts down the application cleanly: the HTTP server first so no
// new events arrive, then the workers, then the connections.
func (a *App) Stop() error {
	a.logger.Info("shutting down PR Sentinel services")

	serverErr := a.server.Stop()
	if serverErr != nil {
		a.logger.Error("error during HTTP server shutdown", "error", serverErr)
		// Continue to stop other components even if the server failed.
	}

	a.workers.Stop()

	a.logger.Info("closing redis connection")
	if err := a.redis.Close(); err != nil {
		a.logger.Error("error closing redis connection", "error", err)
	}

	a.logger.Info("closing database connection")
	if err := a.dbConn.Close(); err != nil {
		a.logger.Error("error closing database", "error", err)
	}

	if serverErr != nil {
		a.logger.Error("PR Sentinel stopped with errors", "error", serverErr)
		return serverErr
	}

	a.logger.Info("PR Sentinel stopped successfully")
	return nil
}
