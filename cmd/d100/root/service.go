package root

import (
	"context"
	"fmt"
	"os"

	"github.com/okian/defend100/internal/adapters/repository"
	app "github.com/okian/defend100/internal/app"
	"github.com/okian/defend100/internal/config"
	"github.com/okian/defend100/pkg/logger"
)

// initLogger sends service logs to stderr; quiet unless verbose.
func initLogger(cfg *config.Config, verbose bool) error {
	if err := logger.Init(logger.WithOutput(os.Stderr), logger.WithFormat(cfg.LogFormat)); err != nil {
		return err
	}
	if verbose {
		return logger.SetLevelString(cfg.LogLevel)
	}
	return logger.SetLevelString("warn")
}

// openService loads configuration, opens the configured store and starts
// the service. cleanup drains pending writes and closes the store.
func openService(ctx context.Context, g *globals) (*app.Service, func() error, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := initLogger(cfg, g.verbose); err != nil {
		return nil, nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}
	store, err := repository.Open(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s storage: %w", cfg.StorageDriver, err)
	}

	svc := app.New(
		app.WithLogger(logger.Named("d100")),
		app.WithStore(store),
		app.WithLocation(loc),
		app.WithWriterCount(cfg.WriterCount),
		app.WithQueueSize(cfg.WriteQueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
	)
	if err := svc.Start(ctx); err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	cleanup := func() error {
		return svc.Stop(context.WithoutCancel(ctx))
	}
	return svc, cleanup, nil
}

// withService runs fn against a started service and stops it afterwards,
// reporting the stop error when fn succeeded.
func withService(ctx context.Context, g *globals, fn func(*app.Service) error) (err error) {
	svc, cleanup, err := openService(ctx, g)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := cleanup(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(svc)
}
