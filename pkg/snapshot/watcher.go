package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"log/slog"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/gnana997/uifind/pkg/component"
)

// ReloadCallback receives the result of every snapshot reload. On success
// tree is the freshly built tree; on failure (parse error, validation
// error, file removed) tree is nil and err describes the problem. Callbacks
// run on the watcher's timer goroutines and must not block for long.
type ReloadCallback func(path string, tree *component.Tree, err error)

// WatchOptions configures snapshot watching behavior.
type WatchOptions struct {
	// DebounceMs groups rapid changes to the same file into a single
	// reload. Default: 200ms.
	DebounceMs int

	// Include globs select which files are snapshots, matched against
	// paths relative to the watch root. Empty uses
	// DefaultIncludePatterns. Ignored when watching a single file.
	Include []string

	// Ignore globs suppress events, matched like Include.
	Ignore []string
}

// DefaultWatchOptions returns recommended watch options.
func DefaultWatchOptions() WatchOptions {
	return WatchOptions{
		DebounceMs: 200,
		Include:    DefaultIncludePatterns,
		Ignore: []string{
			"**/*.swp",
			"**/*.tmp",
			"**/*~",
		},
	}
}

// Watcher watches snapshot files and rebuilds their trees on change.
//
// Rapid successive writes are debounced per path, so editors that write in
// several syscalls trigger one reload. Removed or renamed files are
// reported through the callback with an error.
type Watcher struct {
	watcher  *fsnotify.Watcher
	loader   *Loader
	logger   *slog.Logger
	options  WatchOptions
	callback ReloadCallback

	// Set by Start: the watch root and, when watching a single file
	// rather than a directory, that file's cleaned path.
	root       string
	singleFile string

	// Debouncing
	debounceTimers map[string]*time.Timer
	debounceMu     sync.Mutex

	// Lifecycle
	stopChan chan struct{}
	stopped  bool
	mu       sync.Mutex
}

// NewWatcher creates a snapshot watcher delivering reloads to callback.
func NewWatcher(loader *Loader, options WatchOptions, callback ReloadCallback, logger *slog.Logger) *Watcher {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		panic(fmt.Sprintf("failed to create file watcher: %v", err))
	}

	if logger == nil {
		logger = slog.Default()
	}
	if options.DebounceMs == 0 {
		options.DebounceMs = 200 // Default debounce
	}
	if len(options.Include) == 0 {
		options.Include = DefaultIncludePatterns
	}

	return &Watcher{
		watcher:        watcher,
		loader:         loader,
		logger:         logger,
		options:        options,
		callback:       callback,
		debounceTimers: make(map[string]*time.Timer),
		stopChan:       make(chan struct{}),
	}
}

// Start begins watching path, which may be a single snapshot file or a
// directory tree of snapshots. Runs in a background goroutine until Stop.
func (w *Watcher) Start(path string) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return fmt.Errorf("watcher already stopped")
	}
	w.mu.Unlock()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve watch path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("failed to stat watch path: %w", err)
	}

	if !info.IsDir() {
		// fsnotify delivers reliably for directories; watch the parent
		// and filter events down to the one file.
		w.singleFile = filepath.Clean(abs)
		w.root = filepath.Dir(abs)
		if err := w.watcher.Add(w.root); err != nil {
			return fmt.Errorf("failed to watch %s: %w", w.root, err)
		}
	} else {
		w.root = abs
		if err := w.watcher.Add(abs); err != nil {
			return fmt.Errorf("failed to watch %s: %w", abs, err)
		}

		// Walk directory tree and add subdirectories.
		err = filepath.Walk(abs, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil // Continue on error
			}
			if info.IsDir() {
				if w.shouldIgnore(path) {
					return filepath.SkipDir
				}
				if err := w.watcher.Add(path); err != nil {
					w.logger.Warn("failed to watch directory", "path", path, "error", err)
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to setup watches: %w", err)
		}
	}

	w.logger.Info("snapshot watcher started", "root", w.root)

	go w.eventLoop()

	return nil
}

// Stop stops the watcher. Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}

	w.stopped = true
	close(w.stopChan)

	// Cancel all debounce timers
	w.debounceMu.Lock()
	for _, timer := range w.debounceTimers {
		timer.Stop()
	}
	w.debounceTimers = make(map[string]*time.Timer)
	w.debounceMu.Unlock()

	err := w.watcher.Close()
	w.logger.Info("snapshot watcher stopped")
	return err
}

// eventLoop is the main event processing loop.
func (w *Watcher) eventLoop() {
	for {
		select {
		case <-w.stopChan:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("snapshot watcher error", "error", err)
		}
	}
}

// handleEvent processes a file system event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	filePath := filepath.Clean(event.Name)

	if w.singleFile != "" {
		if filePath != w.singleFile {
			return
		}
	} else {
		if w.shouldIgnore(filePath) {
			return
		}
		if !w.matchesInclude(filePath) {
			return
		}
	}

	w.logger.Debug("snapshot event", "op", event.Op.String(), "file", filePath)

	switch {
	case event.Op&fsnotify.Write == fsnotify.Write:
		w.debounceReload(filePath)

	case event.Op&fsnotify.Create == fsnotify.Create:
		w.debounceReload(filePath)

	case event.Op&fsnotify.Remove == fsnotify.Remove:
		w.removeSnapshot(filePath)

	case event.Op&fsnotify.Rename == fsnotify.Rename:
		w.removeSnapshot(filePath)
	}
}

// debounceReload schedules a reload after the debounce delay. When several
// events for the same file arrive within the window, only the last one
// triggers a rebuild.
func (w *Watcher) debounceReload(filePath string) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	// Cancel existing timer if any
	if timer, exists := w.debounceTimers[filePath]; exists {
		timer.Stop()
	}

	w.debounceTimers[filePath] = time.AfterFunc(
		time.Duration(w.options.DebounceMs)*time.Millisecond,
		func() {
			w.reload(filePath)

			// Clean up timer
			w.debounceMu.Lock()
			delete(w.debounceTimers, filePath)
			w.debounceMu.Unlock()
		},
	)
}

// reload rebuilds one snapshot and reports the result.
func (w *Watcher) reload(filePath string) {
	w.logger.Debug("reloading snapshot", "file", filePath)

	// The event already told us the file changed; drop cached state
	// rather than trusting mtime granularity.
	w.loader.Invalidate(filePath)

	tree, err := w.loader.Load(filePath)
	if err != nil {
		w.logger.Warn("failed to reload snapshot", "file", filePath, "error", err)
	} else {
		w.logger.Debug("snapshot reloaded", "file", filePath)
	}
	w.callback(filePath, tree, err)
}

// removeSnapshot reports a removed file and drops its cached state.
func (w *Watcher) removeSnapshot(filePath string) {
	w.logger.Debug("snapshot removed", "file", filePath)

	w.debounceMu.Lock()
	if timer, exists := w.debounceTimers[filePath]; exists {
		timer.Stop()
		delete(w.debounceTimers, filePath)
	}
	w.debounceMu.Unlock()

	w.loader.Invalidate(filePath)
	w.callback(filePath, nil, fmt.Errorf("snapshot removed: %s", filePath))
}

// matchesInclude checks a path against the include globs.
func (w *Watcher) matchesInclude(path string) bool {
	relPath, err := filepath.Rel(w.root, path)
	if err != nil {
		relPath = path
	}
	relPath = filepath.ToSlash(relPath)

	for _, pattern := range w.options.Include {
		if matched, _ := doublestar.PathMatch(pattern, relPath); matched {
			return true
		}
	}
	return false
}

// shouldIgnore checks if a path should be ignored.
func (w *Watcher) shouldIgnore(path string) bool {
	relPath, err := filepath.Rel(w.root, path)
	if err != nil {
		relPath = path
	}
	relPath = filepath.ToSlash(relPath)

	for _, pattern := range w.options.Ignore {
		if matched, _ := doublestar.PathMatch(pattern, relPath); matched {
			return true
		}
	}

	// Ignore common build/dependency directories
	base := filepath.Base(path)
	switch base {
	case "node_modules", ".git", "dist", "build", ".next":
		return true
	}

	return false
}

// WatcherStats contains snapshot watcher statistics.
type WatcherStats struct {
	PendingReloads int
	IsRunning      bool
}

// GetStats returns watcher statistics.
func (w *Watcher) GetStats() WatcherStats {
	w.debounceMu.Lock()
	pendingReloads := len(w.debounceTimers)
	w.debounceMu.Unlock()

	w.mu.Lock()
	running := !w.stopped
	w.mu.Unlock()

	return WatcherStats{
		PendingReloads: pendingReloads,
		IsRunning:      running,
	}
}
