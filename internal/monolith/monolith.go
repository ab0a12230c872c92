// Package monolith holds the shared infrastructure every bounded context
// starts against, and runs the contexts in order.
package monolith

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fd1az/swap-quoter/internal/asset"
	"github.com/fd1az/swap-quoter/internal/config"
	"github.com/fd1az/swap-quoter/internal/di"
	"github.com/fd1az/swap-quoter/internal/health"
	"github.com/fd1az/swap-quoter/internal/logger"
	"github.com/fd1az/swap-quoter/internal/metrics"
)

// Monolith is what a module sees at startup.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	DB() *pgxpool.Pool
	AssetRegistry() *asset.Registry
	Instruments() *metrics.Instruments
	Health() *health.Server
	Services() di.ServiceRegistry
}

// Module is one bounded context.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

type app struct {
	cfg         *config.Config
	log         logger.LoggerInterface
	db          *pgxpool.Pool
	assets      *asset.Registry
	instruments *metrics.Instruments
	health      *health.Server
	container   di.Container
	modules     []Module
}

// New opens the database pool and seeds the container with the shared
// services. The pool connects lazily: an unreachable database shows up in
// the "database" health check.
func New(ctx context.Context, cfg *config.Config, log logger.LoggerInterface, instruments *metrics.Instruments, hs *health.Server) (*app, error) {
	db, err := openPool(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:         cfg,
		log:         log,
		db:          db,
		assets:      asset.DefaultRegistry(),
		instruments: instruments,
		health:      hs,
		container:   di.NewContainer(),
	}
	for name, svc := range map[string]any{
		"config":        cfg,
		"logger":        log,
		"db":            db,
		"assetRegistry": a.assets,
		"instruments":   instruments,
	} {
		a.container.Register(name, svc)
	}

	hs.RegisterCheck("database", func(ctx context.Context) (bool, string) {
		if err := db.Ping(ctx); err != nil {
			return false, err.Error()
		}
		return true, ""
	})
	return a, nil
}

func openPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	db, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create database pool: %w", err)
	}
	return db, nil
}

func (a *app) Config() *config.Config            { return a.cfg }
func (a *app) Logger() logger.LoggerInterface    { return a.log }
func (a *app) DB() *pgxpool.Pool                 { return a.db }
func (a *app) AssetRegistry() *asset.Registry    { return a.assets }
func (a *app) Instruments() *metrics.Instruments { return a.instruments }
func (a *app) Health() *health.Server            { return a.health }
func (a *app) Services() di.ServiceRegistry      { return a.container }

// Register adds modules and lets each register its services. Modules start
// in the order they were registered, so dependencies go first.
func (a *app) Register(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return fmt.Errorf("register %T: %w", m, err)
		}
		a.modules = append(a.modules, m)
	}
	return nil
}

// Start runs every registered module's startup, stopping at the first
// failure.
func (a *app) Start(ctx context.Context) error {
	for _, m := range a.modules {
		if err := m.Startup(ctx, a); err != nil {
			return fmt.Errorf("start %T: %w", m, err)
		}
	}
	return nil
}

// Close releases the database pool.
func (a *app) Close() {
	a.db.Close()
}

// OnShutdown runs release, in order, once ctx is done. Modules use it to
// stop the background work they start.
func OnShutdown(ctx context.Context, release ...func()) {
	go func() {
		<-ctx.Done()
		for _, fn := range release {
			fn()
		}
	}()
}
