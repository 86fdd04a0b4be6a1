package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/dinesync/dinesync/internal/config"
	"github.com/dinesync/dinesync/internal/device"
	"github.com/dinesync/dinesync/internal/engine"
	"github.com/dinesync/dinesync/internal/model"
	"github.com/dinesync/dinesync/internal/remote"
	"github.com/dinesync/dinesync/internal/remote/pg"
)

// app bundles the wired-up engine and everything that must be torn down
// after a command finishes.
type app struct {
	cfg    config.Config
	eng    *engine.Engine
	dev    *device.Store
	closer func()
}

// newApp wires config, device store, remote backend, and engine for a
// command invocation. The backend is Postgres when postgres_dsn is set,
// otherwise the in-process demo store.
func newApp(ctx context.Context, opts *RootOptions, role model.Role) (*app, error) {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	cfg := config.Default()
	if opts.Config != "" {
		var err error
		cfg, err = config.Load(opts.Config)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load config", err)
		}
	}

	dev, err := device.Open(cfg.DevicePath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open device store", err)
	}

	var (
		store   remote.Store
		cleanup = func() {}
	)
	if cfg.PostgresDSN != "" {
		pgStore, err := pg.Connect(ctx, cfg.PostgresDSN, log)
		if err != nil {
			dev.Close()
			return nil, WrapExitError(ExitCommandError, "failed to connect remote store", err)
		}
		store = pgStore
		cleanup = pgStore.Close
	} else {
		mem := remote.NewMemoryStore()
		mem.Seed(nil, nil, model.Settings{
			VenueLat:        cfg.Venue.Lat,
			VenueLng:        cfg.Venue.Lng,
			GeofenceRadiusM: cfg.Venue.RadiusM,
			ContactPhone:    cfg.Venue.ContactPhone,
		})
		store = mem
	}

	eng := engine.New(store, dev,
		engine.WithLogger(log),
		engine.WithRole(role),
		engine.WithCooldown(cfg.Cooldown()),
		engine.WithPendingExpiry(cfg.PendingExpiry()),
		engine.WithSensorTimeout(cfg.SensorTimeout()),
	)
	if err := eng.Start(ctx); err != nil {
		cleanup()
		dev.Close()
		return nil, WrapExitError(ExitCommandError, "failed to start engine", err)
	}

	return &app{
		cfg: cfg,
		eng: eng,
		dev: dev,
		closer: func() {
			eng.Close()
			cleanup()
			dev.Close()
		},
	}, nil
}

func (a *app) close() { a.closer() }
