package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	_ "modernc.org/sqlite"
)

// SQLiteBackend stores one catalog in the catalog_entries table of a
// local SQLite database.
type SQLiteBackend struct {
	db      *sql.DB
	catalog string
}

// NewSQLiteBackend returns a backend for the named catalog.
func NewSQLiteBackend(db *sql.DB, catalog string) *SQLiteBackend {
	return &SQLiteBackend{db: db, catalog: catalog}
}

// OpenSQLite opens (creating if needed) the database at path and ensures
// the schema exists.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		slog.Debug("failed to set sqlite busy_timeout", "error", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		slog.Debug("failed to set sqlite journal_mode=WAL", "error", err)
	}

	if _, err := db.ExecContext(ctx, catalogSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create catalog schema: %w", err)
	}
	return db, nil
}

// ReadAll implements Backend.
func (b *SQLiteBackend) ReadAll(ctx context.Context) (map[string]json.RawMessage, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT name, value FROM catalog_entries WHERE catalog = ?`, b.catalog)
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
func (b *SQLiteBackend) WriteAll(ctx context.Context, entries map[string]json.RawMessage) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // No-op if already committed

	if _, err := tx.ExecContext(ctx, `DELETE FROM catalog_entries WHERE catalog = ?`, b.catalog); err != nil {
		return fmt.Errorf("clear %s: %w", b.catalog, err)
	}
	for _, name := range sortedNames(entries) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO catalog_entries (catalog, name, value) VALUES (?, ?, ?)`,
			b.catalog, name, string(entries[name]),
		); err != nil {
			return fmt.Errorf("insert %s entry %q: %w", b.catalog, name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func sortedNames(entries map[string]json.RawMessage) []string {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
