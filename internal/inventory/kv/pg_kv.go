package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	getQuery = `SELECT value FROM kv_store WHERE key = $1`
	setQuery = `INSERT INTO kv_store (key, value, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
)

// PgStorage implements Storage on top of the kv_store table in PostgreSQL.
type PgStorage struct {
	db *pgxpool.Pool
}

// NewPgStorage creates a new Storage backed by a PostgreSQL connection pool.
func NewPgStorage(dbp *pgxpool.Pool) *PgStorage {
	return &PgStorage{db: dbp}
}

// Get retrieves the value stored under key.
// Returns ErrKeyNotFound if no row exists for key.
func (p *PgStorage) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	if err := p.db.QueryRow(ctx, getQuery, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to get key %q: %w", key, err)
	}
	return []byte(value), nil
}

// Set upserts the value stored under key in a single statement.
func (p *PgStorage) Set(ctx context.Context, key string, value []byte) error {
	if _, err := p.db.Exec(ctx, setQuery, key, string(value)); err != nil {
		return fmt.Errorf("failed to set key %q: %w", key, err)
	}
	return nil
}
