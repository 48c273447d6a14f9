package lodestar

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/jpaulson/lodestar/internal/lang"
	"github.com/jpaulson/lodestar/internal/store"
)

// parsedFile is one parse-phase result flowing from a worker to the
// serial apply loop.
type parsedFile struct {
	path string
	meta store.FileMeta
	fa   *lang.FileAnalysis
	perr *lang.ParseError // malformed source, partial analysis available
	err  error            // read or stat failure
}

// moduleSet adapts a plain set to the analyzer's resolution interface.
type moduleSet map[string]bool

func (m moduleSet) Has(path string) bool { return m[path] }

// IndexDirectory runs a full scan: every indexable file is parsed and
// the whole project resolved, replacing whatever the index held for
// files that no longer exist. Safe to call repeatedly; unchanged
// source yields an identical index.
func (ix *Index) IndexDirectory(ctx context.Context) (*IndexStats, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	start := time.Now()

	ix.setState(StateScanning)
	defer ix.setState(StateClean)

	paths, err := ix.scan()
	if err != nil {
		return nil, fmt.Errorf("lodestar: index directory: %w", err)
	}

	base := ix.current()
	onDisk := make(map[string]bool, len(paths))
	for _, p := range paths {
		onDisk[p] = true
	}
	var deleted []string
	for p := range base.files {
		if !onDisk[p] {
			deleted = append(deleted, p)
		}
	}
	sort.Strings(deleted)

	ix.setState(StateUpdating)
	snap := base.clone()
	removeFiles(snap, deleted)

	results, err := ix.parseFiles(ctx, paths)
	if err != nil {
		return nil, fmt.Errorf("lodestar: index directory: %w", err)
	}
	ferrs, _, _ := ix.applyParsed(snap, results)

	// Full scan resolves every module.
	all := make(map[string]bool, len(snap.modules))
	for m := range snap.modules {
		all[m] = true
	}
	ix.resolveModules(snap, all)

	if err := ix.commit(snap); err != nil {
		return nil, fmt.Errorf("lodestar: index directory: %w", err)
	}

	stats := ix.Stats()
	stats.Errors = ferrs
	stats.Duration = time.Since(start)
	ix.log.Info("full index complete",
		"files", stats.Files, "symbols", stats.Symbols, "errors", len(ferrs),
		"duration", stats.Duration)
	return &stats, nil
}

// parseFiles is the parallel phase: a bounded worker pool, one parser
// per worker, no shared mutable state. Cancellation abandons the batch
// and leaves the previous snapshot live.
func (ix *Index) parseFiles(ctx context.Context, paths []string) ([]parsedFile, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	workers := ix.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(paths))

	workCh := make(chan string, len(paths))
	for _, p := range paths {
		workCh <- p
	}
	close(workCh)

	resultCh := make(chan parsedFile, len(paths))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			parser := lang.NewParser()
			for path := range workCh {
				select {
				case <-ctx.Done():
					return
				default:
				}
				resultCh <- ix.parseOne(ctx, parser, path)
			}
		}()
	}
	wg.Wait()
	close(resultCh)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]parsedFile, 0, len(paths))
	for res := range resultCh {
		results = append(results, res)
	}
	// Deterministic apply order regardless of worker scheduling.
	sort.Slice(results, func(i, j int) bool { return results[i].path < results[j].path })
	return results, nil
}

func (ix *Index) parseOne(ctx context.Context, parser *lang.Parser, path string) parsedFile {
	abs := ix.absPath(path)
	info, err := os.Stat(abs)
	if err != nil {
		return parsedFile{path: path, err: fmt.Errorf("stat: %w", err)}
	}
	src, err := os.ReadFile(abs)
	if err != nil {
		return parsedFile{path: path, err: fmt.Errorf("read: %w", err)}
	}

	meta := store.FileMeta{
		Path:         path,
		MTimeNS:      info.ModTime().UnixNano(),
		Size:         info.Size(),
		Checksum:     checksum(src),
		LastAnalyzed: time.Now().UTC(),
	}

	ix.parseCount.Add(1)
	fa, err := parser.Parse(ctx, path, src)
	if err != nil {
		var perr *lang.ParseError
		if errors.As(err, &perr) {
			meta.ParseError = true
			return parsedFile{path: path, meta: meta, perr: perr}
		}
		return parsedFile{path: path, err: err}
	}
	return parsedFile{path: path, meta: meta, fa: fa}
}

// applyParsed is the serial apply loop: single writer over the working
// snapshot. Returns collected per-file errors, the module paths whose
// facts were replaced, and the modules whose relationship arenas lost
// edges into replaced symbols. The latter bound references without an
// import edge (same-package or global-fallback resolution), so the
// dependency graph alone cannot find them for re-resolution.
func (ix *Index) applyParsed(snap *snapshot, results []parsedFile) ([]FileError, []string, []string) {
	// The module set the analyzer resolves imports against must cover
	// this batch's files as well as everything already indexed.
	known := make(moduleSet, len(snap.byFile)+len(results))
	for _, m := range snap.byFile {
		known[m] = true
	}
	for _, res := range results {
		if res.err == nil && res.perr == nil {
			known[ix.analyzer.ModulePath(res.path)] = true
		}
	}

	var ferrs []FileError
	var changed, rebind []string
	for _, res := range results {
		switch {
		case res.err != nil:
			// Unreadable file: previous symbols stay, fingerprint stays,
			// so the next cycle retries it.
			ferrs = append(ferrs, FileError{File: res.path, Message: res.err.Error()})
		case res.perr != nil:
			// Malformed source: previous symbols are retained but
			// flagged stale. The fingerprint is updated so the file is
			// not re-hashed every cycle; an edit re-triggers a parse.
			snap.table.MarkStale(res.path)
			snap.files[res.path] = res.meta
			ferrs = append(ferrs, FileError{File: res.path, Message: res.perr.Error()})
		default:
			facts := ix.analyzer.Analyze(res.fa, known)
			if prev, ok := snap.byFile[res.path]; ok && prev != facts.Path {
				snap.graph.Remove(prev)
				delete(snap.modules, prev)
			}
			snap.modules[facts.Path] = facts
			snap.byFile[res.path] = facts.Path
			targets := make([]string, 0, len(facts.Imports))
			for _, edge := range facts.Imports {
				targets = append(targets, edge.Target)
			}
			snap.graph.SetEdges(facts.Path, targets)
			for _, f := range snap.table.UpsertFile(res.path, buildSymbols(facts, res.fa), nil) {
				if m, ok := snap.byFile[f]; ok {
					rebind = append(rebind, m)
				}
			}
			snap.files[res.path] = res.meta
			changed = append(changed, facts.Path)
		}
	}
	return ferrs, changed, rebind
}

// removeFiles drops deleted files from the snapshot and returns the
// modules that directly imported them, which need their relationships
// re-resolved.
func removeFiles(snap *snapshot, deleted []string) []string {
	dependents := make(map[string]bool)
	for _, path := range deleted {
		module, ok := snap.byFile[path]
		if ok {
			for _, dep := range snap.graph.Dependents(module) {
				dependents[dep] = true
			}
			snap.graph.Remove(module)
			delete(snap.modules, module)
			delete(snap.byFile, path)
		}
		snap.table.RemoveFile(path)
		delete(snap.files, path)
	}
	out := make([]string, 0, len(dependents))
	for m := range dependents {
		if _, still := snap.modules[m]; still {
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out
}

// resolveModules re-resolves the raw references of each module into
// relationships. Cached refs make this independent of reparsing.
func (ix *Index) resolveModules(snap *snapshot, modules map[string]bool) {
	paths := make([]string, 0, len(modules))
	for m := range modules {
		paths = append(paths, m)
	}
	sort.Strings(paths)
	for _, m := range paths {
		facts, ok := snap.modules[m]
		if !ok {
			continue
		}
		snap.table.ReplaceRelationships(facts.File, resolveRefs(snap, facts))
	}
}

// commit persists the snapshot and swaps it live. The database write
// is the all-or-nothing boundary: if it fails, the previous snapshot
// and cache remain authoritative.
func (ix *Index) commit(snap *snapshot) error {
	err := ix.db.Save(&store.Snapshot{
		Table:   snap.table,
		Modules: snap.modules,
		Files:   snap.files,
	})
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	if err := ix.writeFileCache(snap.files); err != nil {
		// Best effort: the database already holds the same data.
		ix.log.Warn("write file cache", "error", err)
	}
	ix.snap.Store(snap)
	return nil
}

// writeFileCache mirrors the file fingerprints into a small JSON file
// so tooling can bootstrap a diff pass without opening the database.
func (ix *Index) writeFileCache(files map[string]store.FileMeta) error {
	data, err := json.MarshalIndent(files, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(ix.cfg.ResolveStateDir(ix.root), "filecache.json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func checksum(src []byte) string {
	sum := sha256.Sum256(src)
	return hex.EncodeToString(sum[:])
}
