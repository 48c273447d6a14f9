// Package watch observes a project tree with fsnotify and turns bursts
// of filesystem events into debounced update batches.
package watch

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Options configures a Watcher.
type Options struct {
	// Debounce is the quiet period after the last event before OnBatch
	// fires. Zero picks a sensible default.
	Debounce time.Duration

	// SkipDir reports whether a directory should not be watched,
	// typically state dirs, VCS metadata, and ignored paths.
	SkipDir func(path string) bool

	// Relevant reports whether a changed file matters at all. Events on
	// files it rejects are dropped before debouncing.
	Relevant func(path string) bool

	// OnBatch receives the deduplicated set of changed paths. Batches
	// are serialized: a batch arriving while one is being processed is
	// queued and delivered afterwards, merged with later events.
	OnBatch func(paths []string)

	Logger *slog.Logger
}

// Watcher watches a directory tree recursively.
type Watcher struct {
	root     string
	fsw      *fsnotify.Watcher
	debounce *Debouncer
	opts     Options
	log      *slog.Logger

	mu       sync.Mutex
	dirty    map[string]struct{}
	inFlight bool
	queued   bool

	done chan struct{}
}

// New creates a Watcher rooted at root. Call Start to begin watching.
func New(root string, opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 200 * time.Millisecond
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Watcher{
		root:     root,
		fsw:      fsw,
		debounce: NewDebouncer(opts.Debounce),
		opts:     opts,
		log:      log,
		dirty:    make(map[string]struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start registers the tree and begins dispatching events.
func (w *Watcher) Start() error {
	if err := w.addRecursive(w.root); err != nil {
		return err
	}
	go w.loop()
	return nil
}

// Close stops watching. Pending batches are dropped.
func (w *Watcher) Close() error {
	w.debounce.Cancel()
	err := w.fsw.Close()
	<-w.done
	return err
}

// addRecursive registers dir and every non-skipped subdirectory.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if w.opts.SkipDir != nil && w.opts.SkipDir(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.log.Warn("watch directory", "path", path, "error", err)
		}
		return nil
	})
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	// New directories need watches of their own before events inside
	// them can be seen.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if w.opts.SkipDir == nil || !w.opts.SkipDir(event.Name) {
				_ = w.addRecursive(event.Name)
			}
			return
		}
	}
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return
	}
	if w.opts.Relevant != nil && !w.opts.Relevant(event.Name) {
		return
	}

	w.mu.Lock()
	w.dirty[event.Name] = struct{}{}
	w.mu.Unlock()

	w.debounce.Trigger(w.dispatch)
}

// dispatch hands the dirty set to OnBatch, keeping at most one batch in
// flight. Events landing during a run are queued for a follow-up batch.
func (w *Watcher) dispatch() {
	w.mu.Lock()
	if w.inFlight {
		w.queued = true
		w.mu.Unlock()
		return
	}
	paths := w.takeDirtyLocked()
	if len(paths) == 0 {
		w.mu.Unlock()
		return
	}
	w.inFlight = true
	w.mu.Unlock()

	go func() {
		for {
			w.opts.OnBatch(paths)

			w.mu.Lock()
			w.queued = false
			paths = w.takeDirtyLocked()
			if len(paths) == 0 {
				w.inFlight = false
				w.mu.Unlock()
				return
			}
			w.mu.Unlock()
		}
	}()
}

func (w *Watcher) takeDirtyLocked() []string {
	paths := make([]string, 0, len(w.dirty))
	for p := range w.dirty {
		paths = append(paths, p)
	}
	w.dirty = make(map[string]struct{})
	return paths
}
