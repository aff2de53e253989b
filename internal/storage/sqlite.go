package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/claude/coachwizard/internal/session"
	_ "modernc.org/sqlite"
)

// SQLite keeps wizard sessions in a local state file, surviving restarts the
// way browser local storage survives page loads.
type SQLite struct {
	db *sql.DB
}

// Compile-time check: *SQLite satisfies session.Factory.
var _ session.Factory = (*SQLite)(nil)

// OpenSQLite opens (or creates) the SQLite state database at dir/state.db.
func OpenSQLite(dir string) (*SQLite, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "state.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}
	// One writer at a time; avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS wizard_state (
		namespace  TEXT NOT NULL,
		key        TEXT NOT NULL,
		value      TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (namespace, key)
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating state table: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the state database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Scope returns the session store for one namespace.
func (s *SQLite) Scope(namespace string) session.Store {
	return &sqliteStore{db: s.db, ns: namespace}
}

type sqliteStore struct {
	db *sql.DB
	ns string
}

func (s *sqliteStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM wizard_state WHERE namespace = ? AND key = ?`,
		s.ns, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading state key %s: %w", key, err)
	}
	return value, true, nil
}

func (s *sqliteStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO wizard_state (namespace, key, value) VALUES (?, ?, ?)`,
		s.ns, key, value,
	)
	if err != nil {
		return fmt.Errorf("writing state key %s: %w", key, err)
	}
	return nil
}

func (s *sqliteStore) Replace(ctx context.Context, kv map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning state transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM wizard_state WHERE namespace = ?`, s.ns); err != nil {
		return fmt.Errorf("clearing state: %w", err)
	}
	for key, value := range kv {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO wizard_state (namespace, key, value) VALUES (?, ?, ?)`,
			s.ns, key, value,
		); err != nil {
			return fmt.Errorf("writing state key %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing state: %w", err)
	}
	return nil
}

func (s *sqliteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM wizard_state WHERE namespace = ?`, s.ns); err != nil {
		return fmt.Errorf("clearing state: %w", err)
	}
	return nil
}
