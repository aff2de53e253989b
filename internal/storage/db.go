package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/claude/coachwizard/internal/session"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps a pgxpool.Pool and stores wizard sessions in PostgreSQL.
// Used by gateway deployments that run more than one instance.
type DB struct {
	Pool *pgxpool.Pool
}

// Compile-time check: *DB satisfies session.Factory.
var _ session.Factory = (*DB)(nil)

// New creates a new DB with a connection pool.
func New(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &DB{Pool: pool}, nil
}

// Close closes the connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}

// RunMigrations applies all pending embedded migrations.
func RunMigrations(dsn string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Scope returns the session store for one namespace.
func (db *DB) Scope(namespace string) session.Store {
	return &pgStore{db: db, ns: namespace}
}

type pgStore struct {
	db *DB
	ns string
}

func (s *pgStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.Pool.QueryRow(ctx,
		`SELECT value FROM wizard_sessions WHERE namespace = $1 AND key = $2`,
		s.ns, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading session key %s: %w", key, err)
	}
	return value, true, nil
}

func (s *pgStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO wizard_sessions (namespace, key, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (namespace, key) DO UPDATE
			SET value = EXCLUDED.value, updated_at = NOW()
	`, s.ns, key, value)
	if err != nil {
		return fmt.Errorf("writing session key %s: %w", key, err)
	}
	return nil
}

func (s *pgStore) Replace(ctx context.Context, kv map[string]string) error {
	return pgx.BeginFunc(ctx, s.db.Pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM wizard_sessions WHERE namespace = $1`, s.ns); err != nil {
			return fmt.Errorf("clearing session: %w", err)
		}
		batch := &pgx.Batch{}
		for key, value := range kv {
			batch.Queue(`INSERT INTO wizard_sessions (namespace, key, value) VALUES ($1, $2, $3)`, s.ns, key, value)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("writing session: %w", err)
		}
		return nil
	})
}

func (s *pgStore) Clear(ctx context.Context) error {
	if _, err := s.db.Pool.Exec(ctx, `DELETE FROM wizard_sessions WHERE namespace = $1`, s.ns); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}
