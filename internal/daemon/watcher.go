// Package daemon provides the crossship watch daemon: it re-runs the
// build stages of the pipeline whenever the definition or a lifecycle
// script changes. Watch runs never deploy.
package daemon

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileEvent is a debounced change notification for a watched file.
type FileEvent struct {
	Path      string
	Timestamp time.Time
}

// WatcherConfig configures which files re-trigger the pipeline.
type WatcherConfig struct {
	// Root is the pipeline root directory, watched recursively.
	Root string
	// Patterns are base-name globs that trigger a re-run.
	Patterns []string
	// IgnorePatterns are path components that are never watched.
	IgnorePatterns []string
	// Debounce coalesces rapid events per path.
	Debounce time.Duration
}

// DefaultWatcherConfig watches the pipeline definition and the ci/
// lifecycle scripts, ignoring build output and VCS state.
func DefaultWatcherConfig(root string) *WatcherConfig {
	return &WatcherConfig{
		Root:     root,
		Patterns: []string{"crossship.yml", "*.sh"},
		IgnorePatterns: []string{
			".git",
			"build",
			"dist",
			"target",
			"node_modules",
		},
		Debounce: 200 * time.Millisecond,
	}
}

// Watcher emits debounced FileEvents for relevant changes under the root.
type Watcher struct {
	config  *WatcherConfig
	watcher *fsnotify.Watcher
	events  chan FileEvent
	errors  chan error
	done    chan struct{}
	mu      sync.RWMutex
	running bool

	pending   map[string]*time.Timer
	pendingMu sync.Mutex
}

// NewWatcher creates a new file watcher.
func NewWatcher(config *WatcherConfig) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		config:  config,
		watcher: fsWatcher,
		events:  make(chan FileEvent, 100),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
		pending: make(map[string]*time.Timer),
	}, nil
}

// Start begins watching for file changes.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.addRecursive(w.config.Root); err != nil {
		return err
	}

	go w.processEvents(ctx)
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	w.running = false
	close(w.done)

	return w.watcher.Close()
}

// Events returns the channel of debounced file events.
func (w *Watcher) Events() <-chan FileEvent {
	return w.events
}

// Errors returns the channel of watcher errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// IsRunning reports whether the watcher is active.
func (w *Watcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// addRecursive registers the root and every non-ignored subdirectory.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		for _, pattern := range w.config.IgnorePatterns {
			if matched, _ := filepath.Match(pattern, info.Name()); matched {
				return filepath.SkipDir
			}
		}
		return w.watcher.Add(path)
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
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
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if !w.matchesPattern(event.Name) || w.shouldIgnore(event.Name) {
		return
	}
	w.debounce(FileEvent{Path: event.Name, Timestamp: time.Now()})
}

// debounce coalesces rapid events for the same path.
func (w *Watcher) debounce(event FileEvent) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	if timer, ok := w.pending[event.Path]; ok {
		timer.Stop()
	}

	w.pending[event.Path] = time.AfterFunc(w.config.Debounce, func() {
		w.pendingMu.Lock()
		delete(w.pending, event.Path)
		w.pendingMu.Unlock()

		select {
		case w.events <- event:
		default:
			// Channel full, drop event
		}
	})
}

func (w *Watcher) matchesPattern(path string) bool {
	if len(w.config.Patterns) == 0 {
		return true
	}
	base := filepath.Base(path)
	for _, pattern := range w.config.Patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

func (w *Watcher) shouldIgnore(path string) bool {
	for _, part := range strings.Split(path, string(filepath.Separator)) {
		for _, pattern := range w.config.IgnorePatterns {
			if matched, _ := filepath.Match(pattern, part); matched {
				return true
			}
		}
	}
	return false
}
