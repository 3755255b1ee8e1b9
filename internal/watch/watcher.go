// Package watch turns file system changes under a source tree into debounced
// rebuild signals.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when Config.Debounce is zero.
const DefaultDebounce = 500 * time.Millisecond

// Config configures a Watcher.
type Config struct {
	// Root is the directory watched recursively.
	Root string
	// Debounce is the quiet period after the last change before a signal
	// is emitted.
	Debounce time.Duration
	// Extensions lists the file extensions that trigger a rebuild.
	// Empty means .md and .markdown.
	Extensions []string
	// ExcludeDirs lists directory paths that are never watched, such as the
	// public directory when it lives inside Root.
	ExcludeDirs []string
}

// Change is one debounced batch of file changes.
type Change struct {
	// Paths holds the changed files relative to Root, in no particular order.
	Paths []string
}

// Watcher watches a source tree and emits a Change per quiet period.
type Watcher struct {
	root       string
	debounce   time.Duration
	extensions map[string]bool
	excludes   map[string]bool
	fsw        *fsnotify.Watcher
	logger     *slog.Logger

	mu      sync.Mutex
	pending map[string]struct{}

	changes chan Change
}

// New creates a Watcher. Call Start to begin watching.
func New(cfg Config, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	exts := cfg.Extensions
	if len(exts) == 0 {
		exts = []string{".md", ".markdown"}
	}
	extensions := make(map[string]bool, len(exts))
	for _, ext := range exts {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extensions[strings.ToLower(ext)] = true
	}

	excludes := make(map[string]bool, len(cfg.ExcludeDirs))
	for _, dir := range cfg.ExcludeDirs {
		if abs, err := filepath.Abs(dir); err == nil {
			excludes[abs] = true
		}
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		fsw.Close()
		return nil, err
	}

	return &Watcher{
		root:       root,
		debounce:   debounce,
		extensions: extensions,
		excludes:   excludes,
		fsw:        fsw,
		logger:     logger,
		pending:    make(map[string]struct{}),
		changes:    make(chan Change, 1),
	}, nil
}

// Changes returns the channel of debounced changes. It is closed when the
// watcher stops.
func (w *Watcher) Changes() <-chan Change {
	return w.changes
}

// Start adds watches for the tree and processes events until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addRecursive(w.root); err != nil {
		return err
	}
	go w.run(ctx)

	w.logger.Info("watching for changes", "root", w.root, "debounce", w.debounce)
	return nil
}

// Stop releases the underlying watcher.
func (w *Watcher) Stop() error {
	return w.fsw.Close()
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.skipDir(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn("failed to watch directory", "path", path, "error", err)
			return nil
		}
		w.logger.Debug("watching directory", "path", path)
		return nil
	})
}

// skipDir reports whether the directory at path is hidden or excluded.
func (w *Watcher) skipDir(path string) bool {
	if path != w.root && strings.HasPrefix(filepath.Base(path), ".") {
		return true
	}
	abs, err := filepath.Abs(path)
	return err == nil && w.excludes[abs]
}

// relevant reports whether a change to path should trigger a rebuild.
func (w *Watcher) relevant(path string) bool {
	if !w.extensions[strings.ToLower(filepath.Ext(path))] {
		return false
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	for dir := filepath.Dir(path); len(dir) > len(w.root); dir = filepath.Dir(dir) {
		if w.skipDir(dir) {
			return false
		}
	}
	return true
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.changes)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if w.handle(event) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)

		case <-timer.C:
			if !w.flush() {
				timer.Reset(w.debounce)
			}
		}
	}
}

// handle records event and reports whether it is a relevant change.
func (w *Watcher) handle(event fsnotify.Event) bool {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.skipDir(event.Name) {
				if err := w.addRecursive(event.Name); err != nil {
					w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
				}
			}
			return false
		}
	}
	if event.Op == fsnotify.Chmod || !w.relevant(event.Name) {
		return false
	}

	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		rel = event.Name
	}

	w.mu.Lock()
	w.pending[filepath.ToSlash(rel)] = struct{}{}
	w.mu.Unlock()

	w.logger.Debug("change detected", "path", rel, "op", event.Op.String())
	return true
}

// flush emits the pending paths as one Change. It returns false when the
// previous Change has not been consumed yet; the paths then stay pending.
func (w *Watcher) flush() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) == 0 {
		return true
	}

	change := Change{Paths: make([]string, 0, len(w.pending))}
	for p := range w.pending {
		change.Paths = append(change.Paths, p)
	}

	select {
	case w.changes <- change:
		w.pending = make(map[string]struct{})
		return true
	default:
		return false
	}
}
