// Package db opens the theme store selected by configuration.
package db

import (
	"context"
	"fmt"
	"log/slog"

	"themeboard/internal/cache"
	"themeboard/internal/config"
	"themeboard/internal/store/badger"
	"themeboard/internal/store/blob"
	"themeboard/internal/store/postgres"
	"themeboard/internal/store/sqlite"
	"themeboard/internal/theme"
)

// Open connects the configured backend and brings its schema up to date.
func Open(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (theme.Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	driver := cfg.ResolvedDriver()
	log := logger.With("driver", driver)

	var (
		st  theme.Store
		err error
	)
	switch driver {
	case config.DriverSQLite:
		st, err = sqlite.Open(ctx, cfg.SQLitePath, log)
	case config.DriverPostgres:
		st, err = postgres.Open(ctx, cfg.PostgresDSN, log)
	case config.DriverBadger:
		st, err = badger.Open(cfg.BadgerDir, log)
	case config.DriverBlob:
		st, err = blob.New(blob.NewFileBlob(cfg.BlobPath, log), cache.NewTTL[*blob.Document](cfg.CacheTTL), log)
	case config.DriverEdgeConfig:
		var b *blob.EdgeConfigBlob
		b, err = blob.NewEdgeConfigBlob(blob.EdgeConfigOptions{
			BaseURL:         cfg.EdgeConfigBaseURL,
			ID:              cfg.EdgeConfigID,
			Token:           cfg.EdgeConfigToken,
			Key:             cfg.EdgeConfigKey,
			WritesPerSecond: cfg.EdgeWritesPerSecond,
		})
		if err == nil {
			st, err = blob.New(b, cache.NewTTL[*blob.Document](cfg.CacheTTL), log)
		}
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", driver, err)
	}

	log.Info("theme store ready")
	return st, nil
}
