// Package gallery lists and serves the downloadable template files kept in
// a directory.
package gallery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// ErrNotFound is returned by Open for names that are not in the listing.
var ErrNotFound = errors.New("template not found")

// File describes one template file.
type File struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// HumanSize renders the size for display, e.g. "12 kB".
func (f File) HumanSize() string {
	return humanize.Bytes(uint64(f.Size))
}

// Age renders the modification time relative to now, e.g. "3 days ago".
func (f File) Age() string {
	return humanize.Time(f.ModTime)
}

// Gallery is a cached listing of a template directory.
type Gallery struct {
	dir  string
	exts []string

	mu     sync.Mutex
	cached []File
	valid  bool
}

// New creates a gallery over dir listing files with one of exts
// (case-insensitive, with or without the leading dot). No extensions means
// every regular file is listed.
func New(dir string, exts []string) *Gallery {
	norm := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		norm = append(norm, ext)
	}
	return &Gallery{dir: dir, exts: norm}
}

// Dir returns the template directory.
func (g *Gallery) Dir() string { return g.dir }

// Match reports whether path has a listed extension.
func (g *Gallery) Match(path string) bool {
	if len(g.exts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range g.exts {
		if ext == allowed {
			return true
		}
	}
	return false
}

// List returns the template files sorted by name. A missing directory is
// an empty gallery.
func (g *Gallery) List() ([]File, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.valid {
		return append([]File(nil), g.cached...), nil
	}

	files, err := g.scan()
	if err != nil {
		return nil, err
	}
	g.cached = files
	g.valid = true
	return append([]File(nil), files...), nil
}

// Invalidate drops the cached listing. The next List rescans the directory.
func (g *Gallery) Invalidate() {
	g.mu.Lock()
	g.valid = false
	g.cached = nil
	g.mu.Unlock()
}

func (g *Gallery) scan() ([]File, error) {
	entries, err := os.ReadDir(g.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []File{}, nil
		}
		return nil, fmt.Errorf("read templates directory: %w", err)
	}

	files := make([]File, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !g.Match(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		files = append(files, File{
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Open returns the named template for reading. Only names present in the
// listing are accepted, so paths cannot escape the directory.
func (g *Gallery) Open(name string) (*os.File, File, error) {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return nil, File{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	files, err := g.List()
	if err != nil {
		return nil, File{}, err
	}
	for _, f := range files {
		if f.Name != name {
			continue
		}
		fh, err := os.Open(filepath.Join(g.dir, f.Name))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				g.Invalidate()
				return nil, File{}, fmt.Errorf("%w: %q", ErrNotFound, name)
			}
			return nil, File{}, fmt.Errorf("open template: %w", err)
		}
		return fh, f, nil
	}
	return nil, File{}, fmt.Errorf("%w: %q", ErrNotFound, name)
}
