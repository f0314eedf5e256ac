package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/agenthands/ctreview/internal/config"
)

// Open builds the configured backend, wrapped with the configured
// per-operation timeout.
func Open(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (Backend, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return nil, err
	}

	var s Backend
	switch cfg.Backend {
	case config.BackendSQLite:
		s, err = OpenSQLite(SQLiteConfig{
			Path:     cfg.SQLite.Path,
			PoolSize: cfg.SQLite.PoolSize,
			Logger:   logger,
		})
	case config.BackendMemgraph:
		var d *MemgraphDriver
		d, err = NewMemgraphDriver(ctx, cfg.Memgraph.URI, cfg.Memgraph.User, cfg.Memgraph.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Memgraph: %w", err)
		}
		logger.Info("connected to memgraph", "uri", cfg.Memgraph.URI)
		mg := NewMemgraph(d, logger)
		if err := mg.BuildIndices(ctx); err != nil {
			mg.Close()
			return nil, err
		}
		s = mg
	case config.BackendMemory:
		logger.Warn("using in-memory result store; results are lost on restart")
		s = NewMemory()
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return WithTimeout(s, timeout), nil
}
