package catalog

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memBackend is an in-memory Backend for exercising Catalog logic.
type memBackend struct {
	entries map[string]json.RawMessage
	writes  int
}

func (m *memBackend) ReadAll(context.Context) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out, nil
}

func (m *memBackend) WriteAll(_ context.Context, entries map[string]json.RawMessage) error {
	m.entries = entries
	m.writes++
	return nil
}

func names[V any](entries []Entry[V]) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func TestExplorers_CaseInsensitiveReplace(t *testing.T) {
	ctx := context.Background()
	backend := &memBackend{}
	explorers := NewExplorers(backend)

	require.NoError(t, explorers.Put(ctx, "Chain", "https://old.example.com"))
	require.NoError(t, explorers.Put(ctx, "chain", "https://new.example.com"))

	entries, err := explorers.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "chain", entries[0].Name)
	assert.Equal(t, "https://new.example.com", entries[0].Value)
}

func TestList_SortedCaseInsensitively(t *testing.T) {
	ctx := context.Background()
	explorers := NewExplorers(&memBackend{})

	for _, name := range []string{"solana", "Bitcoin", "ethereum", "Avalanche"} {
		require.NoError(t, explorers.Put(ctx, name, "https://"+name+".example.com"))
	}

	entries, err := explorers.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Avalanche", "Bitcoin", "ethereum", "solana"}, names(entries))
}

func TestPut_Validation(t *testing.T) {
	ctx := context.Background()
	backend := &memBackend{}
	explorers := NewExplorers(backend)
	tools := NewTools(backend)

	tests := []struct {
		name string
		put  func() error
	}{
		{"empty name", func() error { return explorers.Put(ctx, "  ", "https://example.com") }},
		{"empty url", func() error { return explorers.Put(ctx, "Chain", "") }},
		{"relative url", func() error { return explorers.Put(ctx, "Chain", "/explorer") }},
		{"ftp url", func() error { return explorers.Put(ctx, "Chain", "ftp://example.com") }},
		{"no host", func() error { return explorers.Put(ctx, "Chain", "https://") }},
		{"tool without description", func() error {
			return tools.Put(ctx, "Tool", Tool{URL: "https://example.com"})
		}},
		{"tool bad url", func() error {
			return tools.Put(ctx, "Tool", Tool{URL: "example.com", Description: "d"})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.put()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
	assert.Zero(t, backend.writes, "rejected entries must not be written")
}

func TestPut_TrimsName(t *testing.T) {
	ctx := context.Background()
	explorers := NewExplorers(&memBackend{})

	require.NoError(t, explorers.Put(ctx, "  Chain  ", "https://example.com"))

	e, ok, err := explorers.Get(ctx, "CHAIN")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Chain", e.Name)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	explorers := NewExplorers(&memBackend{})
	require.NoError(t, explorers.Put(ctx, "Chain", "https://example.com"))

	removed, err := explorers.Delete(ctx, "chain")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = explorers.Delete(ctx, "chain")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestFileBackend_JSONCompatible(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tools.json")
	tools := NewTools(NewFileBackend(path))

	// Missing file is created empty.
	entries, err := tools.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))

	require.NoError(t, tools.Put(ctx, "Graph", Tool{URL: "https://graph.example.com/?a=1&b=2", Description: "Charts <fast>"}))
	require.NoError(t, tools.Put(ctx, "Abacus", Tool{URL: "https://abacus.example.com", Description: "Counting"}))

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	want := `{
    "Abacus": {
        "url": "https://abacus.example.com",
        "description": "Counting"
    },
    "Graph": {
        "url": "https://graph.example.com/?a=1&b=2",
        "description": "Charts <fast>"
    }
}
`
	assert.Equal(t, want, string(data))

	// A second backend on the same file sees the same records.
	reopened := NewTools(NewFileBackend(path))
	entries, err = reopened.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Abacus", "Graph"}, names(entries))
	assert.Equal(t, "Counting", entries[0].Value.Description)
}

func TestFileBackend_ReadsExistingExplorers(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "block_explorers.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"Bitcoin": "https://mempool.space"}`), 0o644))

	explorers := NewExplorers(NewFileBackend(path))
	entries, err := explorers.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, Entry[string]{Name: "Bitcoin", Value: "https://mempool.space"}, entries[0])
}

func TestFileBackend_YAML(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tools.yaml")
	tools := NewTools(NewFileBackend(path))

	require.NoError(t, tools.Put(ctx, "Graph", Tool{URL: "https://graph.example.com", Description: "Charts"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Graph:")
	assert.Contains(t, string(data), "url: https://graph.example.com")

	entries, err := NewTools(NewFileBackend(path)).List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, Tool{URL: "https://graph.example.com", Description: "Charts"}, entries[0].Value)
}

func TestFileBackend_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "block_explorers.json")
	require.NoError(t, os.WriteFile(path, []byte(`[1, 2`), 0o644))

	_, err := NewExplorers(NewFileBackend(path)).List(context.Background())
	require.Error(t, err)
}

func TestFileBackend_NoTempFilesLeft(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	explorers := NewExplorers(NewFileBackend(filepath.Join(dir, "block_explorers.json")))

	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, explorers.Put(ctx, name, "https://example.com/"+name))
	}

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "block_explorers.json", files[0].Name())
}

func TestSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	explorers := NewExplorers(NewSQLiteBackend(db, "explorers"))
	tools := NewTools(NewSQLiteBackend(db, "tools"))

	require.NoError(t, explorers.Put(ctx, "Chain", "https://old.example.com"))
	require.NoError(t, explorers.Put(ctx, "chain", "https://new.example.com"))
	require.NoError(t, tools.Put(ctx, "Graph", Tool{URL: "https://graph.example.com", Description: "Charts"}))

	entries, err := explorers.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "chain", entries[0].Name)

	// Catalogs sharing a database stay separate.
	toolEntries, err := tools.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Graph"}, names(toolEntries))
}

func TestPostgresBackend(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := OpenPostgres(ctx, url, PoolOptions{MaxConns: 2})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	catalogName := "test_explorers_" + filepath.Base(t.TempDir())
	explorers := NewExplorers(NewPostgresBackend(pool, catalogName))
	t.Cleanup(func() {
		pool.Exec(context.Background(), `DELETE FROM catalog_entries WHERE catalog = $1`, catalogName)
	})

	require.NoError(t, explorers.Put(ctx, "Chain", "https://old.example.com"))
	require.NoError(t, explorers.Put(ctx, "chain", "https://new.example.com"))

	entries, err := explorers.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "https://new.example.com", entries[0].Value)
}
