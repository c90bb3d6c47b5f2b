package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileBackend keeps a catalog in a single JSON or YAML file. The format is
// picked by extension (.yaml/.yml for YAML, anything else JSON). JSON output
// uses 4-space indentation and sorted keys so the files stay diffable.
type FileBackend struct {
	path string
	yaml bool
}

// NewFileBackend returns a backend for path. The file is created with an
// empty object on first use.
func NewFileBackend(path string) *FileBackend {
	ext := strings.ToLower(filepath.Ext(path))
	return &FileBackend{path: path, yaml: ext == ".yaml" || ext == ".yml"}
}

// Path returns the backing file path.
func (b *FileBackend) Path() string { return b.path }

// ReadAll implements Backend.
func (b *FileBackend) ReadAll(ctx context.Context) (map[string]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := b.ensure(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(b.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", b.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]json.RawMessage{}, nil
	}

	if b.yaml {
		return decodeYAML(b.path, data)
	}

	entries := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", b.path, err)
	}
	return entries, nil
}

// WriteAll implements Backend. The file is replaced atomically.
func (b *FileBackend) WriteAll(ctx context.Context, entries map[string]json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var data []byte
	var err error
	if b.yaml {
		data, err = encodeYAML(entries)
	} else {
		data, err = encodeJSON(entries)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", b.path, err)
	}
	return writeAtomic(b.path, data)
}

func (b *FileBackend) ensure() error {
	_, err := os.Stat(b.path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", b.path, err)
	}
	if dir := filepath.Dir(b.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	empty := []byte("{}\n")
	return writeAtomic(b.path, empty)
}

func encodeJSON(entries map[string]json.RawMessage) ([]byte, error) {
	if entries == nil {
		entries = map[string]json.RawMessage{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeYAML(path string, data []byte) (map[string]json.RawMessage, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	entries := make(map[string]json.RawMessage, len(doc))
	for name, v := range doc {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("parse %s: entry %q: %w", path, name, err)
		}
		entries[name] = raw
	}
	return entries, nil
}

func encodeYAML(entries map[string]json.RawMessage) ([]byte, error) {
	doc := make(map[string]any, len(entries))
	for name, raw := range entries {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("entry %q: %w", name, err)
		}
		doc[name] = v
	}
	return yaml.Marshal(doc)
}

// writeAtomic writes data to a temp file next to path and renames it over
// path, so readers never see a partial file.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file for %s: %w", path, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
