package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/JonMunkholm/countonsheep/internal/logging"
)

// DefaultDebounce collapses bursts of file events (editor saves, copies).
const DefaultDebounce = 250 * time.Millisecond

// DirWatcher calls OnChange after files in a directory are created,
// modified, removed or renamed. Events are debounced so a burst produces
// one call. If the directory does not exist yet its parent is watched until
// it appears.
type DirWatcher struct {
	Dir      string
	Debounce time.Duration
	Match    func(path string) bool // nil matches every file
	OnChange func(ctx context.Context)

	mu      sync.Mutex
	pending bool
	lastAt  time.Time
	changes int
}

// NewDirWatcher creates a watcher for dir.
func NewDirWatcher(dir string, onChange func(ctx context.Context)) *DirWatcher {
	return &DirWatcher{
		Dir:      dir,
		Debounce: DefaultDebounce,
		OnChange: onChange,
	}
}

// Changes returns how many times OnChange has fired.
func (w *DirWatcher) Changes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.changes
}

// Run watches until ctx is cancelled. It returns nil on cancellation.
func (w *DirWatcher) Run(ctx context.Context) error {
	logger := logging.FromContext(ctx).With("dir", w.Dir)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Clean(w.Dir)
	watchingDir, err := w.add(fw, dir)
	if err != nil {
		return err
	}
	if watchingDir {
		logger.Info("watching directory")
	} else {
		logger.Info("directory missing, watching parent")
	}

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	ticker := time.NewTicker(debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !watchingDir {
				if filepath.Clean(event.Name) != dir || !event.Has(fsnotify.Create) {
					continue
				}
				if err := fw.Add(dir); err != nil {
					logger.Warn("watch directory failed", "error", err)
					continue
				}
				_ = fw.Remove(filepath.Dir(dir))
				watchingDir = true
				logger.Info("directory appeared, watching")
				w.mark()
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if w.Match != nil && !w.Match(event.Name) {
				continue
			}
			logger.Debug("directory event", "op", event.Op.String(), "path", event.Name)
			w.mark()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "error", err)

		case <-ticker.C:
			if w.due(debounce) && w.OnChange != nil {
				w.OnChange(ctx)
			}
		}
	}
}

// add watches dir, or its parent when dir does not exist.
func (w *DirWatcher) add(fw *fsnotify.Watcher, dir string) (bool, error) {
	if _, err := os.Stat(dir); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return false, fmt.Errorf("stat %s: %w", dir, err)
		}
		if err := fw.Add(filepath.Dir(dir)); err != nil {
			return false, fmt.Errorf("watch %s: %w", filepath.Dir(dir), err)
		}
		return false, nil
	}
	if err := fw.Add(dir); err != nil {
		return false, fmt.Errorf("watch %s: %w", dir, err)
	}
	return true, nil
}

func (w *DirWatcher) mark() {
	w.mu.Lock()
	w.pending = true
	w.lastAt = time.Now()
	w.mu.Unlock()
}

// due reports whether a pending change has been quiet for d, clearing it.
func (w *DirWatcher) due(d time.Duration) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.pending || time.Since(w.lastAt) < d {
		return false
	}
	w.pending = false
	w.changes++
	return true
}
