// Package application wires configuration, the database pool and the
// ingestion pipeline together for the server and the CLI.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ulule/limiter/v3"

	"github.com/JonMunkholm/custingest/internal/config"
	"github.com/JonMunkholm/custingest/internal/core"
	"github.com/JonMunkholm/custingest/internal/store"
	"github.com/JonMunkholm/custingest/internal/web"
)

// App holds the long-lived pieces of one process.
type App struct {
	Config      *config.Config
	Pool        *pgxpool.Pool
	Store       *store.Postgres
	Limiter     *core.IngestLimiter
	Coordinator *core.Coordinator
}

// Open connects to the database and builds the ingestion pipeline.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	pool, err := connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	st := store.New(pool)
	limiter := core.NewIngestLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)
	coord := core.NewCoordinator(st, core.Options{
		BatchSize:    cfg.Upload.BatchSize,
		Workers:      cfg.Upload.Workers,
		BatchTimeout: cfg.Upload.BatchTimeout,
		Policy:       cfg.Upload.Policy(),
		Limiter:      limiter,
	})

	return &App{
		Config:      cfg,
		Pool:        pool,
		Store:       st,
		Limiter:     limiter,
		Coordinator: coord,
	}, nil
}

func connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}

// Close releases the database pool.
func (a *App) Close() {
	a.Pool.Close()
}

// Serve runs the HTTP server until ctx is cancelled, then waits for
// running uploads before shutting down.
func (a *App) Serve(ctx context.Context) error {
	var rateStore limiter.Store
	if a.Config.Rate.Enabled {
		rs := web.NewRateStore(ctx, a.Config.Rate)
		defer func() {
			if err := rs.Close(); err != nil {
				slog.Warn("close rate limit store", "error", err)
			}
		}()
		rateStore = rs
	}
	server := web.NewServer(a.Coordinator, a.Store, a.Config, rateStore)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	if active := a.Limiter.Active(); active > 0 {
		slog.Info("waiting for uploads to complete", "active", active)
		if err := a.Limiter.WaitForDrain(shutdownCtx); err != nil {
			slog.Warn("uploads did not complete in time", "error", err)
		} else {
			slog.Info("all uploads completed")
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
