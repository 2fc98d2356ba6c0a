// internal/pkg/storage/postgres.go
package storage

import (
	"context"
	"errors"
	"fmt"

	xerrors "voucher-portal/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Querier is the subset of *pgxpool.Pool the store needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresStore struct {
	db    Querier
	table string
}

// NewPostgresStore keeps values in the given table, one row per (scope, key).
func NewPostgresStore(db Querier, table string) *PostgresStore {
	if table == "" {
		table = "portal_storage"
	}
	return &PostgresStore{db: db, table: pq.QuoteIdentifier(table)}
}

// EnsureSchema creates the storage table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			scope      TEXT NOT NULL,
			key        TEXT NOT NULL,
			value      TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (scope, key)
		)
	`, s.table)

	if _, err := s.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create storage table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, scope, key string) (string, error) {
	query := fmt.Sprintf(`SELECT value FROM %s WHERE scope = $1 AND key = $2`, s.table)

	var value string
	err := s.db.QueryRow(ctx, query, scope, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", xerrors.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

func (s *PostgresStore) Set(ctx context.Context, scope, key, value string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (scope, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (scope, key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = NOW()
	`, s.table)

	if _, err := s.db.Exec(ctx, query, scope, key, value); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, scope string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE scope = $1 AND key = ANY($2)`, s.table)

	if _, err := s.db.Exec(ctx, query, scope, keys); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}
