package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/countonsheep/internal/logging"
)

// Unit is a named transform: an ordered pipeline of bound steps loaded from
// a manifest file. A unit whose manifest failed validation keeps the failure
// in Err and cannot be executed.
type Unit struct {
	Name        string
	Path        string
	Format      string
	Description string
	Err         error

	steps []boundStep
}

type boundStep struct {
	name string
	fn   StepFunc
}

// StepNames returns the names of the unit's steps in execution order.
func (u *Unit) StepNames() []string {
	names := make([]string, len(u.steps))
	for i, s := range u.steps {
		names[i] = s.name
	}
	return names
}

// Valid reports whether the unit can be executed.
func (u *Unit) Valid() bool { return u.Err == nil }

// UnitInfo is the display/API view of a unit.
type UnitInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Format      string   `json:"format"`
	Steps       []string `json:"steps"`
	Valid       bool     `json:"valid"`
	Error       string   `json:"error,omitempty"`
}

// Info returns the display view of u.
func (u *Unit) Info() UnitInfo {
	info := UnitInfo{
		Name:        u.Name,
		Description: u.Description,
		Format:      u.Format,
		Steps:       u.StepNames(),
		Valid:       u.Valid(),
	}
	if u.Err != nil {
		info.Error = u.Err.Error()
	}
	return info
}

// BuildUnit binds a decoded manifest against the step registry.
// The returned unit is always non-nil; validation failures are in Err.
func BuildUnit(name string, m *Manifest) *Unit {
	u := &Unit{Name: name, Description: m.Description}
	if len(m.Steps) == 0 {
		u.Err = errors.New("manifest declares no steps")
		return u
	}

	for i, ms := range m.Steps {
		def, ok := LookupStep(ms.Name)
		if !ok {
			u.Err = fmt.Errorf("step %d: unknown step %q", i+1, ms.Name)
			u.steps = nil
			return u
		}
		fn, err := def.Factory(ms.Args)
		if err != nil {
			u.Err = fmt.Errorf("step %d (%s): %w", i+1, ms.Name, err)
			u.steps = nil
			return u
		}
		if fn == nil {
			u.Err = fmt.Errorf("step %d (%s): factory returned no function", i+1, ms.Name)
			u.steps = nil
			return u
		}
		u.steps = append(u.steps, boundStep{name: ms.Name, fn: fn})
	}
	return u
}

// UnitResolver resolves unit names for Execute.
type UnitResolver interface {
	Lookup(name string) (*Unit, bool)
}

// UnitRegistry holds the units discovered in a manifest directory.
// Units are validated when the directory is (re)loaded, not when executed.
type UnitRegistry struct {
	dir string

	mu       sync.RWMutex
	units    map[string]*Unit
	loadedAt time.Time
}

// NewUnitRegistry creates an empty registry for dir. Call Reload to populate it.
func NewUnitRegistry(dir string) *UnitRegistry {
	return &UnitRegistry{
		dir:   dir,
		units: make(map[string]*Unit),
	}
}

// Dir returns the manifest directory.
func (r *UnitRegistry) Dir() string { return r.dir }

// DiscoverUnitFiles lists manifest files directly inside dir, keyed by unit
// name (file name minus extension). A missing directory yields an empty set.
func DiscoverUnitFiles(dir string) (map[string][]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string][]string{}, nil
		}
		return nil, fmt.Errorf("read transforms directory: %w", err)
	}

	found := make(map[string][]string)
	for _, entry := range entries {
		if !entry.Type().IsRegular() || ManifestFormat(entry.Name()) == "" {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		if name == "" {
			continue
		}
		found[name] = append(found[name], filepath.Join(dir, entry.Name()))
	}
	return found, nil
}

// Reload re-reads the manifest directory and replaces the registered units.
// On error the previous set is kept.
func (r *UnitRegistry) Reload(ctx context.Context) error {
	logger := logging.FromContext(ctx)

	files, err := DiscoverUnitFiles(r.dir)
	if err != nil {
		return err
	}

	units := make(map[string]*Unit, len(files))
	for name, paths := range files {
		units[name] = loadUnit(name, paths)
		if u := units[name]; !u.Valid() {
			logger.Warn("transform unit is malformed", "unit", name, "path", u.Path, "error", u.Err)
		}
	}

	r.mu.Lock()
	r.units = units
	r.loadedAt = time.Now()
	r.mu.Unlock()

	logger.Info("transform units loaded", "dir", r.dir, "count", len(units))
	return nil
}

func loadUnit(name string, paths []string) *Unit {
	sort.Strings(paths)
	if len(paths) > 1 {
		return &Unit{
			Name: name,
			Path: paths[0],
			Err:  fmt.Errorf("ambiguous unit: defined by %s", strings.Join(paths, ", ")),
		}
	}

	path := paths[0]
	format := ManifestFormat(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return &Unit{Name: name, Path: path, Format: format, Err: fmt.Errorf("read manifest: %w", err)}
	}

	m, err := ParseManifest(filepath.Base(path), format, data)
	if err != nil {
		return &Unit{Name: name, Path: path, Format: format, Err: err}
	}

	u := BuildUnit(name, m)
	u.Path = path
	u.Format = format
	return u
}

// Lookup returns a unit by name.
func (r *UnitRegistry) Lookup(name string) (*Unit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.units[name]
	return u, ok
}

// Names returns the discovered unit names, sorted.
func (r *UnitRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.units))
	for name := range r.units {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Units returns display info for every discovered unit, sorted by name.
func (r *UnitRegistry) Units() []UnitInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]UnitInfo, 0, len(r.units))
	for _, u := range r.units {
		infos = append(infos, u.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Len returns the number of discovered units.
func (r *UnitRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.units)
}

// LoadedAt returns when the registry was last reloaded.
func (r *UnitRegistry) LoadedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loadedAt
}
