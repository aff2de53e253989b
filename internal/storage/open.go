package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/claude/coachwizard/internal/config"
	"github.com/claude/coachwizard/internal/session"
	"github.com/redis/go-redis/v9"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the session factory selected by cfg.Store.Driver. The returned
// closer releases the underlying connection.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (session.Factory, io.Closer, error) {
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		s, err := OpenSQLite(cfg.Store.Dir)
		if err != nil {
			return nil, nil, err
		}
		logger.Debug("session store opened", "driver", "sqlite", "dir", cfg.Store.Dir)
		return s, s, nil

	case config.DriverPostgres:
		dsn := cfg.Database.DSN()
		if err := RunMigrations(dsn); err != nil {
			return nil, nil, fmt.Errorf("migrations: %w", err)
		}
		db, err := New(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		logger.Info("session store opened", "driver", "postgres", "host", cfg.Database.Host)
		return db, closerFunc(func() error { db.Close(); return nil }), nil

	case config.DriverRedis:
		r, err := NewRedis(ctx, &redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Store.KeyPrefix)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("session store opened", "driver", "redis", "addr", cfg.Redis.Addr)
		return r, r, nil

	case config.DriverMemory:
		return session.NewMemory(), nopCloser{}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
