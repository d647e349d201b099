// Package watcher triggers re-syncs when the manifest or its documents change.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/manifest"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher watches the manifest file and the directories of its declared
// documents. Any relevant change schedules one debounced onSync call, so a
// burst of writes produces a single re-sync.
type Watcher struct {
	manifestPath string
	debounce     time.Duration
	onSync       func()

	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	timer    *time.Timer
	watched  map[string]bool // directories added to fsnotify
	docPaths map[string]bool // cleaned document paths from the manifest
	done     chan struct{}
	started  bool
	stopOnce sync.Once
	logger   *zap.Logger // optional; when set, logs debug events
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for debug output (events, refreshes, triggers).
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce overrides the debounce interval.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher for the manifest at manifestPath. onSync is
// called after changes settle.
func NewWatcher(manifestPath string, onSync func(), opts ...Option) *Watcher {
	w := &Watcher{
		manifestPath: filepath.Clean(manifestPath),
		debounce:     defaultDebounce,
		onSync:       onSync,
		watched:      make(map[string]bool),
		docPaths:     make(map[string]bool),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.started = true
	if err := w.refreshLocked(); err != nil {
		_ = w.watcher.Close()
		w.watcher = nil
		w.started = false
		w.mu.Unlock()
		return err
	}
	if w.logger != nil {
		w.logger.Debug("watcher starting", zap.String("manifest", w.manifestPath))
	}
	w.mu.Unlock()
	go w.run(ctx)
	return nil
}

// refreshLocked reloads the manifest and re-derives the watched directory set.
// A manifest that momentarily fails to parse keeps the previous set.
func (w *Watcher) refreshLocked() error {
	dirs := map[string]bool{filepath.Dir(w.manifestPath): true}
	docs, err := manifest.Load(w.manifestPath)
	if err == nil {
		manifestDir := filepath.Dir(w.manifestPath)
		w.docPaths = make(map[string]bool, len(docs))
		for _, doc := range docs {
			path := doc.Path
			if !filepath.IsAbs(path) {
				path = filepath.Join(manifestDir, path)
			}
			path = filepath.Clean(path)
			w.docPaths[path] = true
			dirs[filepath.Dir(path)] = true
		}
	} else if len(w.watched) == 0 {
		// Initial load must succeed; later refreshes tolerate a manifest
		// caught mid-write.
		return err
	}

	for dir := range dirs {
		if w.watched[dir] {
			continue
		}
		if err := w.watcher.Add(dir); err != nil {
			if w.logger != nil {
				w.logger.Debug("watcher failed to add directory", zap.String("path", dir), zap.Error(err))
			}
			continue
		}
		w.watched[dir] = true
	}
	for dir := range w.watched {
		if dirs[dir] {
			continue
		}
		_ = w.watcher.Remove(dir)
		delete(w.watched, dir)
	}
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil && w.logger != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	path := filepath.Clean(ev.Name)

	w.mu.Lock()
	relevant := path == w.manifestPath || w.docPaths[path]
	if path == w.manifestPath {
		// The document set may have changed with the manifest.
		_ = w.refreshLocked()
	}
	w.mu.Unlock()

	if !relevant {
		return
	}
	if w.logger != nil {
		w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	}
	w.scheduleSync()
}

// scheduleSync resets the debounce timer so only the last event in a burst fires.
func (w *Watcher) scheduleSync() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if w.logger != nil {
			w.logger.Debug("watcher triggering sync")
		}
		if w.onSync != nil {
			w.onSync()
		}
	})
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
