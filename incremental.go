package lodestar

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jpaulson/lodestar/internal/store"
)

// changeSet is the diff pass's classification of the project tree
// against the cached fingerprints.
type changeSet struct {
	added    []string
	modified []string
	deleted  []string
}

func (c changeSet) empty() bool {
	return len(c.added) == 0 && len(c.modified) == 0 && len(c.deleted) == 0
}

// UpdateIncrementally diffs the tree against the cached fingerprints
// and reanalyzes only what changed: new and modified files always, plus
// the direct importers of any module whose public API signature
// changed, wave by wave while signatures keep changing. A body-only
// edit to one file reparses exactly that file.
func (ix *Index) UpdateIncrementally(ctx context.Context) (*UpdateReport, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	start := time.Now()

	report := &UpdateReport{ID: uuid.NewString()}
	defer ix.setState(StateClean)

	ix.setState(StateScanning)
	paths, err := ix.scan()
	if err != nil {
		return nil, fmt.Errorf("lodestar: update: %w", err)
	}

	ix.setState(StateDiffing)
	base := ix.current()
	changes, refreshed := ix.diff(base.files, paths)
	if changes.empty() && len(refreshed) == 0 {
		report.Duration = time.Since(start)
		return report, nil
	}

	ix.setState(StateUpdating)
	snap := base.clone()
	for path, meta := range refreshed {
		snap.files[path] = meta
	}

	deletedDependents := removeFiles(snap, changes.deleted)
	report.DeletedFiles = changes.deleted

	// Wave one: the files that themselves changed.
	wave := append(append([]string(nil), changes.added...), changes.modified...)
	sort.Strings(wave)

	results, err := ix.parseFiles(ctx, wave)
	if err != nil {
		return nil, fmt.Errorf("lodestar: update: %w", err)
	}
	ferrs, changedModules, rebind := ix.applyParsed(snap, results)
	report.Errors = ferrs
	report.UpdatedFiles = append(report.UpdatedFiles, applied(results)...)

	// Conservative propagation: direct importers of any module whose
	// public API signature changed (or that disappeared) are reparsed.
	// Propagation continues only from modules whose own signature
	// changed in turn, so an importer reparsed with unchanged content
	// stops the wave there.
	seeds := ix.apiChangeSeeds(base, snap, changedModules)
	seeds = append(seeds, deletedModules(base, changes.deleted)...)
	exclude := append(append([]string(nil), report.UpdatedFiles...), changes.deleted...)

	next := directImporters(base, seeds, exclude)
	if len(changes.added) > 0 {
		next = append(next, retryUnresolved(base, exclude)...)
	}
	for len(next) > 0 {
		files := dedupe(next)
		more, err := ix.parseFiles(ctx, files)
		if err != nil {
			return nil, fmt.Errorf("lodestar: update: %w", err)
		}
		moreErrs, moreModules, moreRebind := ix.applyParsed(snap, more)
		report.Errors = append(report.Errors, moreErrs...)
		report.UpdatedFiles = append(report.UpdatedFiles, applied(more)...)
		changedModules = append(changedModules, moreModules...)
		rebind = append(rebind, moreRebind...)
		exclude = append(exclude, files...)
		next = directImporters(base, ix.apiChangeSeeds(base, snap, moreModules), exclude)
	}

	// Relationship resolution: reanalyzed modules, importers of every
	// changed module (their references may bind to shifted symbol IDs),
	// modules whose arenas lost edges into replaced symbols, and
	// importers of deleted modules.
	resolve := make(map[string]bool)
	for _, m := range changedModules {
		resolve[m] = true
		for _, dep := range snap.graph.Dependents(m) {
			resolve[dep] = true
		}
	}
	for _, m := range rebind {
		resolve[m] = true
	}
	for _, m := range deletedDependents {
		resolve[m] = true
	}
	ix.resolveModules(snap, resolve)

	if err := ix.commit(snap); err != nil {
		return nil, fmt.Errorf("lodestar: update: %w", err)
	}

	sort.Strings(report.UpdatedFiles)
	report.Duration = time.Since(start)
	ix.log.Info("incremental update complete",
		"id", report.ID,
		"updated", len(report.UpdatedFiles), "deleted", len(report.DeletedFiles),
		"errors", len(report.Errors), "duration", report.Duration)
	return report, nil
}

// diff classifies every on-disk file against the cached fingerprints.
// Checksums are computed only when (mtime, size) differ; files whose
// content proves unchanged anyway get their fingerprint refreshed so
// they are not re-hashed next cycle.
func (ix *Index) diff(cached map[string]store.FileMeta, paths []string) (changeSet, map[string]store.FileMeta) {
	var changes changeSet
	refreshed := make(map[string]store.FileMeta)
	onDisk := make(map[string]bool, len(paths))

	for _, path := range paths {
		onDisk[path] = true
		info, err := os.Stat(ix.absPath(path))
		if err != nil {
			continue // vanished between walk and stat; next cycle sees it as deleted
		}
		prior, ok := cached[path]
		if !ok {
			changes.added = append(changes.added, path)
			continue
		}
		if prior.MTimeNS == info.ModTime().UnixNano() && prior.Size == info.Size() {
			continue
		}
		src, err := os.ReadFile(ix.absPath(path))
		if err != nil {
			continue
		}
		if checksum(src) == prior.Checksum {
			prior.MTimeNS = info.ModTime().UnixNano()
			prior.Size = info.Size()
			refreshed[path] = prior
			continue
		}
		changes.modified = append(changes.modified, path)
	}

	for path := range cached {
		if !onDisk[path] {
			changes.deleted = append(changes.deleted, path)
		}
	}
	sort.Strings(changes.added)
	sort.Strings(changes.modified)
	sort.Strings(changes.deleted)
	return changes, refreshed
}

// apiChangeSeeds returns the modules out of changedModules whose public
// API signature differs from the base snapshot, plus modules that are
// new outright.
func (ix *Index) apiChangeSeeds(base, snap *snapshot, changedModules []string) []string {
	var seeds []string
	for _, m := range changedModules {
		after, ok := snap.modules[m]
		if !ok {
			continue
		}
		before, existed := base.modules[m]
		if !existed || before.APIHash != after.APIHash {
			seeds = append(seeds, m)
		}
	}
	return seeds
}

// deletedModules maps deleted file paths back to their module paths in
// the base snapshot.
func deletedModules(base *snapshot, deleted []string) []string {
	var out []string
	for _, path := range deleted {
		if m, ok := base.byFile[path]; ok {
			out = append(out, m)
		}
	}
	return out
}

// directImporters returns the files backing the modules with a direct
// import edge to any seed, minus anything already handled this cycle
// (parsed or deleted).
func directImporters(base *snapshot, seeds, exclude []string) []string {
	if len(seeds) == 0 {
		return nil
	}
	parsed := make(map[string]bool, len(exclude))
	for _, p := range exclude {
		parsed[p] = true
	}
	importers := make(map[string]bool)
	for _, s := range seeds {
		for _, m := range base.graph.Dependents(s) {
			importers[m] = true
		}
	}
	var files []string
	for m := range importers {
		facts, ok := base.modules[m]
		if !ok {
			continue
		}
		if !parsed[facts.File] {
			files = append(files, facts.File)
		}
	}
	return files
}

// retryUnresolved returns files whose modules recorded unresolved
// imports: a newly added file may be exactly what they were missing.
func retryUnresolved(base *snapshot, exclude []string) []string {
	parsed := make(map[string]bool, len(exclude))
	for _, p := range exclude {
		parsed[p] = true
	}
	var files []string
	for _, facts := range base.modules {
		if len(facts.Unresolved) > 0 && !parsed[facts.File] {
			files = append(files, facts.File)
		}
	}
	return files
}

// applied lists the paths that produced a usable analysis this wave.
func applied(results []parsedFile) []string {
	var out []string
	for _, res := range results {
		if res.err == nil && res.perr == nil {
			out = append(out, res.path)
		}
	}
	return out
}

func dedupe(paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	sort.Strings(paths)
	out := paths[:1]
	for _, p := range paths[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}
	return out
}
