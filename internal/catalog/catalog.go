// Package catalog stores the flat name -> value lists shown next to the
// pipeline: blockchain explorers and general tools.
//
// A catalog is read and written as a whole through a Backend. Names are
// unique case-insensitively; putting a name that differs only in case
// replaces the old record and keeps the new spelling.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
)

// ErrInvalid is returned when an entry fails validation.
var ErrInvalid = errors.New("invalid catalog entry")

// Backend persists one catalog as raw JSON values keyed by name.
type Backend interface {
	ReadAll(ctx context.Context) (map[string]json.RawMessage, error)
	WriteAll(ctx context.Context, entries map[string]json.RawMessage) error
}

// Entry is one named catalog record.
type Entry[V any] struct {
	Name  string `json:"name"`
	Value V      `json:"value"`
}

// Catalog is a typed view over a Backend.
type Catalog[V any] struct {
	name     string
	backend  Backend
	validate func(V) error

	mu sync.Mutex
}

// New creates a catalog. validate may be nil.
func New[V any](name string, backend Backend, validate func(V) error) *Catalog[V] {
	return &Catalog[V]{name: name, backend: backend, validate: validate}
}

// Name returns the catalog name, e.g. "explorers".
func (c *Catalog[V]) Name() string { return c.name }

// List returns all entries sorted case-insensitively by name.
func (c *Catalog[V]) List(ctx context.Context) ([]Entry[V], error) {
	raw, err := c.backend.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.name, err)
	}

	entries := make([]Entry[V], 0, len(raw))
	for name, data := range raw {
		var v V
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decode %s entry %q: %w", c.name, name, err)
		}
		entries = append(entries, Entry[V]{Name: name, Value: v})
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := strings.ToLower(entries[i].Name), strings.ToLower(entries[j].Name)
		if a == b {
			return entries[i].Name < entries[j].Name
		}
		return a < b
	})
	return entries, nil
}

// Get returns the entry whose name matches case-insensitively.
func (c *Catalog[V]) Get(ctx context.Context, name string) (Entry[V], bool, error) {
	entries, err := c.List(ctx)
	if err != nil {
		return Entry[V]{}, false, err
	}
	name = strings.TrimSpace(name)
	for _, e := range entries {
		if strings.EqualFold(e.Name, name) {
			return e, true, nil
		}
	}
	return Entry[V]{}, false, nil
}

// Put adds or replaces an entry. Any existing entry whose name differs only
// in case is removed.
func (c *Catalog[V]) Put(ctx context.Context, name string, v V) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if c.validate != nil {
		if err := c.validate(v); err != nil {
			return err
		}
	}
	data, err := marshalValue(v)
	if err != nil {
		return fmt.Errorf("encode %s entry %q: %w", c.name, name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := c.backend.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("read %s: %w", c.name, err)
	}
	for existing := range raw {
		if strings.EqualFold(existing, name) {
			delete(raw, existing)
		}
	}
	raw[name] = data

	if err := c.backend.WriteAll(ctx, raw); err != nil {
		return fmt.Errorf("write %s: %w", c.name, err)
	}
	return nil
}

// Delete removes the entry whose name matches case-insensitively.
// It reports whether anything was removed.
func (c *Catalog[V]) Delete(ctx context.Context, name string) (bool, error) {
	name = strings.TrimSpace(name)

	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := c.backend.ReadAll(ctx)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", c.name, err)
	}
	removed := false
	for existing := range raw {
		if strings.EqualFold(existing, name) {
			delete(raw, existing)
			removed = true
		}
	}
	if !removed {
		return false, nil
	}
	if err := c.backend.WriteAll(ctx, raw); err != nil {
		return false, fmt.Errorf("write %s: %w", c.name, err)
	}
	return true, nil
}

// marshalValue encodes v without escaping HTML characters, so URLs with
// query strings stay readable in the stored files.
func marshalValue(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Explorers maps a blockchain name to its explorer URL.
type Explorers = Catalog[string]

// NewExplorers creates the block explorer catalog.
func NewExplorers(backend Backend) *Explorers {
	return New("explorers", backend, func(u string) error {
		return ValidateURL(u)
	})
}

// Tool is a tools catalog value. The JSON shape matches tools.json.
type Tool struct {
	URL         string `json:"url" yaml:"url"`
	Description string `json:"description" yaml:"description"`
}

// Tools maps a tool name to its link and description.
type Tools = Catalog[Tool]

// NewTools creates the tools catalog.
func NewTools(backend Backend) *Tools {
	return New("tools", backend, func(t Tool) error {
		if err := ValidateURL(t.URL); err != nil {
			return err
		}
		if strings.TrimSpace(t.Description) == "" {
			return fmt.Errorf("%w: description is required", ErrInvalid)
		}
		return nil
	})
}

// ValidateURL requires an absolute http or https URL with a host.
func ValidateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("%w: url is required", ErrInvalid)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: url must use http or https", ErrInvalid)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: url must include a host", ErrInvalid)
	}
	return nil
}
