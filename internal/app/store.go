// Package app wires the storage backend selected by configuration.
package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"homescope/server/config"
	"homescope/server/internal/database"
	"homescope/server/internal/storage"
	"homescope/server/internal/storage/postgres"
)

// OpenStore connects to the configured database and applies migrations.
func OpenStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (storage.PropertyStore, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		logger.WithField("path", cfg.Database.Path).Info("Using SQLite database")
		db, err := database.NewDatabase(cfg.Database.Path, logger)
		if err != nil {
			return nil, err
		}
		if err := db.RunMigrations(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return db, nil

	case "postgres":
		logger.Info("Using PostgreSQL database")
		pool, err := postgres.NewPool(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return postgres.NewPropertyStore(pool), nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}
