package lodestar

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jpaulson/lodestar/internal/watch"
)

// Watch runs continuous incremental updates until ctx is cancelled.
// Filesystem event bursts are debounced; at most one update cycle runs
// at a time, with events arriving mid-cycle folded into the next one.
// Each completed cycle is passed to onUpdate, which may be nil.
func (ix *Index) Watch(ctx context.Context, onUpdate func(*UpdateReport)) error {
	stateDir := ix.cfg.ResolveStateDir(ix.root)

	w, err := watch.New(ix.root, watch.Options{
		Debounce: ix.cfg.Watch.Debounce,
		Logger:   ix.log,
		SkipDir: func(path string) bool {
			name := filepath.Base(path)
			if path != ix.root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return true
			}
			return path == stateDir
		},
		Relevant: func(path string) bool {
			rel, ok := ix.relPath(path)
			if !ok {
				return false
			}
			// Deleted files can't be stat'ed or language-sniffed by
			// extension alone, so indexable covers both cases.
			return ix.indexable(rel)
		},
		OnBatch: func(paths []string) {
			// The diff pass re-derives the change set from disk, so the
			// event batch only acts as a trigger.
			report, err := ix.UpdateIncrementally(ctx)
			if err != nil {
				ix.log.Error("incremental update", "error", err)
				return
			}
			ix.log.Debug("watch cycle", "events", len(paths), "updated", len(report.UpdatedFiles))
			if onUpdate != nil {
				onUpdate(report)
			}
		},
	})
	if err != nil {
		return fmt.Errorf("lodestar: watch: %w", err)
	}
	if err := w.Start(); err != nil {
		return fmt.Errorf("lodestar: watch: %w", err)
	}
	<-ctx.Done()
	return w.Close()
}
