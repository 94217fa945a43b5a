package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/albertocavalcante/buildsize/cmd/buildsize/internal/sources"
	"github.com/albertocavalcante/buildsize/internal/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when Config.Debounce is not positive.
const DefaultDebounce = 300 * time.Millisecond

// BuildFunc runs one build and emit and reports what it produced.
type BuildFunc func(ctx context.Context) (Summary, error)

// Config configures the watcher.
type Config struct {
	// Root is the project directory. Paths in events are reported relative
	// to it.
	Root string
	// Dirs are the watched directories relative to Root. Empty means Root.
	Dirs []string
	// Exclude lists slash-separated paths relative to Root that are never
	// watched, typically the output directory.
	Exclude []string
	// Kinds filters which source kinds trigger a rebuild. Empty means all.
	Kinds []string

	Debounce time.Duration
	Verbose  bool
	NoColor  bool
	JSON     bool
	Writer   io.Writer

	Build BuildFunc
}

// Watcher rebuilds the bundle whenever a watched source file changes.
type Watcher struct {
	config     Config
	fsWatcher  *fsnotify.Watcher
	debouncer  *Debouncer
	logger     *Logger
	extensions map[string]bool
	ignoreDirs map[string]bool
	exclude    map[string]bool

	ctx       context.Context
	fileCount int

	// buildMu prevents overlapping builds.
	buildMu sync.Mutex
}

// New creates a watcher. Call Close when done.
func New(cfg Config) (*Watcher, error) {
	if cfg.Build == nil {
		return nil, errors.New("watch: no build function")
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	exclude := make(map[string]bool, len(cfg.Exclude))
	for _, p := range cfg.Exclude {
		exclude[filepath.ToSlash(filepath.Clean(p))] = true
	}

	return &Watcher{
		config:    cfg,
		fsWatcher: fsWatcher,
		logger: NewLogger(LoggerConfig{
			Writer:  cfg.Writer,
			Verbose: cfg.Verbose,
			NoColor: cfg.NoColor,
			JSON:    cfg.JSON,
		}),
		extensions: sources.ExtensionSet(cfg.Kinds),
		ignoreDirs: sources.IgnoreDirSet(nil),
		exclude:    exclude,
	}, nil
}

// Logger returns the output logger, mainly for inspecting stats.
func (w *Watcher) Logger() *Logger { return w.logger }

// Run builds once, then rebuilds on every debounced batch of changes until
// ctx is cancelled. A failing build is reported and watching continues.
func (w *Watcher) Run(ctx context.Context) error {
	w.ctx = ctx

	window := w.config.Debounce
	if window <= 0 {
		window = DefaultDebounce
	}
	w.debouncer = NewDebouncer(window, w.rebuild)
	defer w.debouncer.Stop()

	dirs := w.config.Dirs
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	for _, dir := range dirs {
		if err := w.addRecursive(filepath.Join(w.config.Root, filepath.FromSlash(dir))); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	w.logger.Ready(w.fileCount, dirs, w.config.Root)
	w.rebuild(nil)

	for {
		select {
		case <-ctx.Done():
			w.logger.Shutdown()
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error(err)
		}
	}
}

// skipDir reports whether the directory at path is never watched. The
// watched roots themselves are only skipped when explicitly excluded.
func (w *Watcher) skipDir(path string, isRoot bool) bool {
	if rel, err := filepath.Rel(w.config.Root, path); err == nil && w.exclude[filepath.ToSlash(rel)] {
		return true
	}
	return !isRoot && sources.IsIgnoredDir(filepath.Base(path), w.ignoreDirs)
}

// addRecursive adds root and all its subdirectories to the watcher.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				if w.config.Verbose {
					w.logger.Error(fmt.Errorf("permission denied: %s", path))
				}
				return nil
			}
			w.logger.Error(fmt.Errorf("walk error at %s: %w", path, err))
			return nil
		}

		if !d.IsDir() {
			if w.extensions[filepath.Ext(path)] {
				w.fileCount++
			}
			return nil
		}

		if w.skipDir(path, path == root) {
			return filepath.SkipDir
		}

		if err := w.fsWatcher.Add(path); err != nil {
			if isWatchLimitError(err) {
				return fmt.Errorf("%w at %s: %v\n"+
					"Increase limit with: sudo sysctl fs.inotify.max_user_watches=524288",
					ErrWatchLimitReached, path, err)
			}
			if w.config.Verbose {
				w.logger.Error(fmt.Errorf("failed to watch %s: %w", path, err))
			}
		}
		return nil
	})
}

// isWatchLimitError checks if an error is due to inotify watch limits.
func isWatchLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "no space left on device") ||
		strings.Contains(errStr, "too many open files")
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if w.skipDir(path, false) {
				return
			}
			if err := w.addRecursive(path); err != nil {
				w.logger.Error(fmt.Errorf("failed to watch new directory %s: %w", path, err))
			}
			return
		}
	}

	if !w.extensions[filepath.Ext(path)] {
		return
	}

	var change ChangeType
	switch {
	case event.Has(fsnotify.Create):
		change = ChangeAdded
	case event.Has(fsnotify.Write):
		change = ChangeModified
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		change = ChangeDeleted
	default:
		return // chmod
	}

	rel, err := filepath.Rel(w.config.Root, path)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	w.logger.FileChanged(rel, change)
	w.debouncer.Add(rel)
}

// rebuild runs the build function for a batch of changed paths. A nil
// batch is the initial build.
func (w *Watcher) rebuild(paths []string) {
	if w.ctx != nil && w.ctx.Err() != nil {
		return
	}

	w.buildMu.Lock()
	defer w.buildMu.Unlock()

	slices.Sort(paths)
	w.logger.Rebuilding(paths)

	ctx := w.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	summary, err := w.config.Build(ctx)
	if err != nil {
		w.logger.Error(err)
		return
	}
	log.Component("watch").Debug("rebuild finished", "changes", len(paths), "duration", time.Since(start))
	w.logger.Built(summary)
}

// Close closes the watcher and releases resources.
func (w *Watcher) Close() error {
	if w.fsWatcher != nil {
		return w.fsWatcher.Close()
	}
	return nil
}

// ErrWatchLimitReached is returned when the OS watch limit is exceeded.
var ErrWatchLimitReached = errors.New("filesystem watch limit reached")
