package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// catalogSchema is shared by the postgres and sqlite backends.
const catalogSchema = `CREATE TABLE IF NOT EXISTS catalog_entries (
	catalog TEXT NOT NULL,
	name    TEXT NOT NULL,
	value   TEXT NOT NULL,
	PRIMARY KEY (catalog, name)
)`

// PostgresBackend stores one catalog in the catalog_entries table.
type PostgresBackend struct {
	pool    *pgxpool.Pool
	catalog string
}

// NewPostgresBackend returns a backend for the named catalog.
func NewPostgresBackend(pool *pgxpool.Pool, catalog string) *PostgresBackend {
	return &PostgresBackend{pool: pool, catalog: catalog}
}

// EnsurePostgresSchema creates the catalog_entries table if needed.
func EnsurePostgresSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, catalogSchema); err != nil {
		return fmt.Errorf("create catalog schema: %w", err)
	}
	return nil
}

// ReadAll implements Backend.
func (b *PostgresBackend) ReadAll(ctx context.Context) (map[string]json.RawMessage, error) {
	rows, err := b.pool.Query(ctx,
		`SELECT name, value FROM catalog_entries WHERE catalog = $1`, b.catalog)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", b.catalog, err)
	}
	defer rows.Close()

	entries := map[string]json.RawMessage{}
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scan %s: %w", b.catalog, err)
		}
		entries[name] = json.RawMessage(value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", b.catalog, err)
	}
	return entries, nil
}

// WriteAll implements Backend. The catalog is replaced in one transaction.
func (b *PostgresBackend) WriteAll(ctx context.Context, entries map[string]json.RawMessage) error {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	if _, err := tx.Exec(ctx, `DELETE FROM catalog_entries WHERE catalog = $1`, b.catalog); err != nil {
		return fmt.Errorf("clear %s: %w", b.catalog, err)
	}
	for _, name := range sortedNames(entries) {
		if _, err := tx.Exec(ctx,
			`INSERT INTO catalog_entries (catalog, name, value) VALUES ($1, $2, $3)`,
			b.catalog, name, string(entries[name]),
		); err != nil {
			return fmt.Errorf("insert %s entry %q: %w", b.catalog, name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// PoolOptions configures OpenPostgres.
type PoolOptions struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// OpenPostgres connects a pool, pings it and ensures the schema exists.
func OpenPostgres(ctx context.Context, url string, opts PoolOptions) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if opts.MaxConns > 0 {
		poolConfig.MaxConns = opts.MaxConns
	}
	poolConfig.MinConns = opts.MinConns
	if opts.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := EnsurePostgresSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
