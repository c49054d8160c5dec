package EmbedDB

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/nickyhof/EmbedDB/config"
	"github.com/nickyhof/EmbedDB/db"
	"github.com/nickyhof/EmbedDB/migrate"
	"github.com/nickyhof/EmbedDB/ps"
)

// Instance owns an engine, the adapter bound to it and, once opened, a
// shadow engine.
type Instance struct {
	Engine  *ps.Instance
	Adapter *db.Adapter
	Shadow  *ps.Instance

	config *config.Config
	logger *slog.Logger
}

// Open starts the engine described by cfg and applies its migrations. A
// nil cfg uses config.Default.
func Open(ctx context.Context, cfg *config.Config) (*Instance, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	engine, err := ps.Open(ctx, ps.Options{DataDir: cfg.DataDir, Logger: logger})
	if err != nil {
		return nil, err
	}

	if cfg.Migrations.Source != "" {
		if err := applyMigrations(ctx, engine, cfg, logger); err != nil {
			engine.Close()
			return nil, err
		}
	}

	return &Instance{
		Engine:  engine,
		Adapter: db.NewAdapter(engine, db.Options{SchemaName: cfg.Schema, Logger: logger}),
		config:  cfg,
		logger:  logger,
	}, nil
}

func applyMigrations(ctx context.Context, engine *ps.Instance, cfg *config.Config, logger *slog.Logger) error {
	source, err := migrate.Open(ctx, cfg.Migrations.Source, cfg.MigrateOptions())
	if err != nil {
		return err
	}
	applied, err := migrate.Apply(ctx, engine, source, logger)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	logger.Info("migrations up to date", "applied", len(applied))
	return nil
}

// OpenShadow starts the in-memory shadow engine the migration tool uses to
// diff schemas. It is closed together with the instance.
func (instance *Instance) OpenShadow(ctx context.Context) (*ps.Instance, error) {
	if instance.Shadow != nil {
		return instance.Shadow, nil
	}
	shadow, err := ps.Open(ctx, ps.Options{
		DataDir: ps.MemoryDataDir,
		Logger:  instance.logger.With("engine", "shadow"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open shadow engine: %w", err)
	}
	instance.Shadow = shadow
	return shadow, nil
}

// Transaction starts a transaction at the configured isolation level.
func (instance *Instance) Transaction(ctx context.Context) (*db.Transaction, error) {
	isolation, err := instance.config.Isolation()
	if err != nil {
		return nil, err
	}
	txCtx, err := instance.Adapter.TransactionContext(ctx)
	if err != nil {
		return nil, err
	}
	return txCtx.StartTransaction(ctx, isolation)
}

// Config returns the configuration the instance was opened with.
func (instance *Instance) Config() *config.Config {
	return instance.config
}

// Close shuts down every engine the instance owns. Open transactions are
// aborted.
func (instance *Instance) Close() error {
	var errs []error
	if instance.Shadow != nil {
		errs = append(errs, instance.Shadow.Close())
	}
	errs = append(errs, instance.Engine.Close())
	return errors.Join(errs...)
}
