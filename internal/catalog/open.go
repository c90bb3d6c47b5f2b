package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/JonMunkholm/countonsheep/internal/config"
)

// Stores bundles both catalogs over the configured backend.
type Stores struct {
	Explorers *Explorers
	Tools     *Tools

	close func()
}

// Close releases any database handle held by the stores.
func (s *Stores) Close() {
	if s.close != nil {
		s.close()
	}
}

// Open builds the explorer and tool catalogs for the configured backend.
func Open(ctx context.Context, cfg *config.Config) (*Stores, error) {
	switch strings.ToLower(cfg.Catalog.Backend) {
	case config.BackendFile, "":
		slog.Info("catalog backend", "backend", config.BackendFile,
			"explorers", cfg.Catalog.ExplorersFile, "tools", cfg.Catalog.ToolsFile)
		return &Stores{
			Explorers: NewExplorers(NewFileBackend(cfg.Catalog.ExplorersFile)),
			Tools:     NewTools(NewFileBackend(cfg.Catalog.ToolsFile)),
		}, nil

	case config.BackendSQLite:
		db, err := OpenSQLite(ctx, cfg.Catalog.SQLitePath)
		if err != nil {
			return nil, err
		}
		slog.Info("catalog backend", "backend", config.BackendSQLite, "path", cfg.Catalog.SQLitePath)
		return &Stores{
			Explorers: NewExplorers(NewSQLiteBackend(db, "explorers")),
			Tools:     NewTools(NewSQLiteBackend(db, "tools")),
			close:     func() { db.Close() },
		}, nil

	case config.BackendPostgres:
		pool, err := OpenPostgres(ctx, cfg.Database.URL, PoolOptions{
			MaxConns:        int32(cfg.Database.MaxConns),
			MinConns:        int32(cfg.Database.MinConns),
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("catalog backend", "backend", config.BackendPostgres, "database", databaseName(cfg.Database.URL))
		return &Stores{
			Explorers: NewExplorers(NewPostgresBackend(pool, "explorers")),
			Tools:     NewTools(NewPostgresBackend(pool, "tools")),
			close:     pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown catalog backend %q", cfg.Catalog.Backend)
	}
}

// databaseName extracts the database name from a connection URL without
// exposing credentials.
func databaseName(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}
