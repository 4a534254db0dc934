// File: cmd/service.go
// Composition root: wires config, stores, and the companion engine.
package cmd

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/solivara/vigil/internal/companion"
	"github.com/solivara/vigil/internal/config"
	"github.com/solivara/vigil/internal/store"
)

// buildCompanion assembles the engine from the validated configuration.
// The returned cleanup releases the archive pool, if one was opened.
func buildCompanion(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*companion.Engine, func(), error) {
	dataDir, err := store.ResolveDataDir(cfg.Store().DataDir)
	if err != nil {
		return nil, nil, err
	}
	snapshots, err := store.NewSnapshot(dataDir, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open snapshot store: %w", err)
	}

	opts := []companion.Option{}
	cleanup := func() {}

	if cfg.Store().Archive.Enabled {
		pool, err := pgxpool.New(ctx, cfg.Store().Archive.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open archive pool: %w", err)
		}
		archive, err := store.NewArchive(ctx, pool, logger)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to connect mission archive: %w", err)
		}
		opts = append(opts, companion.WithArchive(archive))
		cleanup = pool.Close
	}

	eng, err := companion.New(cfg, logger, snapshots, opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return eng, cleanup, nil
}
