// Package app wires configuration, storage, breed lookup and the engine
// into a ready-to-serve application.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"spyagency/internal/breeds"
	"spyagency/internal/config"
	"spyagency/internal/db"
	"spyagency/internal/engine"
	"spyagency/internal/logger"
	"spyagency/internal/metrics"
	"spyagency/internal/migrate"
)

// App holds the long-lived dependencies of a running service.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	DB       *sql.DB
	Dialect  db.Dialect
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Engine   engine.Engine

	closers []func()
}

// Options tweak Bootstrap; zero values pick production defaults.
type Options struct {
	Logger   *slog.Logger
	Registry *prometheus.Registry
	// SkipMigrations leaves the schema untouched (e.g. for `migrate down`).
	SkipMigrations bool
}

// Bootstrap opens the database, applies pending migrations and builds the
// engine with the configured breed validator.
func Bootstrap(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	a := &App{Config: cfg, Logger: opts.Logger, Registry: opts.Registry}
	if a.Logger == nil {
		a.Logger = logger.New(cfg.Logging)
	}
	if a.Registry == nil {
		a.Registry = prometheus.NewRegistry()
	}
	a.Metrics = metrics.New(a.Registry)

	conn, dialect, err := db.Open(ctx, db.Config{
		Driver:       cfg.Database.Driver,
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
	})
	if err != nil {
		return nil, err
	}
	a.DB, a.Dialect = conn, dialect
	a.closers = append(a.closers, func() { conn.Close() })

	if !opts.SkipMigrations {
		applied, err := migrate.Migrate(ctx, conn, dialect)
		if err != nil {
			a.Close()
			return nil, err
		}
		if len(applied) > 0 {
			a.Logger.Info("migrations applied", "versions", applied, "dialect", string(dialect))
		}
	}

	validator, err := a.breedValidator()
	if err != nil {
		a.Close()
		return nil, err
	}

	e := engine.New(conn, dialect, validator)
	e.Logger = a.Logger
	e.Metrics = a.Metrics
	a.Engine = e
	return a, nil
}

func (a *App) breedValidator() (breeds.Validator, error) {
	bc := a.Config.Breeds
	if len(bc.Static) > 0 {
		a.Logger.Info("using static breed list", "count", len(bc.Static))
		return breeds.NewStatic(bc.Static...), nil
	}
	api, err := breeds.NewCatAPI(breeds.Options{
		URL:             bc.URL,
		APIKey:          bc.APIKey,
		Timeout:         bc.Timeout,
		CacheTTL:        bc.CacheTTL,
		BreakerFailures: bc.BreakerFailures,
		BreakerTimeout:  bc.BreakerTimeout,
		Metrics:         a.Metrics,
		Logger:          a.Logger,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, api.Close)
	return api, nil
}

// Close releases resources in reverse acquisition order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
