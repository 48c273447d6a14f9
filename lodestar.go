package lodestar

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/jpaulson/lodestar/internal/analyzer"
	"github.com/jpaulson/lodestar/internal/config"
	"github.com/jpaulson/lodestar/internal/depgraph"
	"github.com/jpaulson/lodestar/internal/slogutil"
	"github.com/jpaulson/lodestar/internal/store"
	"github.com/jpaulson/lodestar/internal/symtab"
)

// ErrCacheCorrupt re-exports the store sentinel: the persisted index
// could not be loaded and a full reindex will rebuild it.
var ErrCacheCorrupt = store.ErrCacheCorrupt

// snapshot is the immutable state queries read. A new snapshot is
// built per batch and swapped in only after the whole batch commits.
type snapshot struct {
	table   *symtab.Table
	graph   *depgraph.Graph
	modules map[string]*analyzer.ModuleFacts // module path -> facts
	byFile  map[string]string                // project-relative file -> module path
	files   map[string]store.FileMeta        // project-relative file -> fingerprint
}

func newSnapshot() *snapshot {
	return &snapshot{
		table:   symtab.NewTable(),
		graph:   depgraph.New(),
		modules: make(map[string]*analyzer.ModuleFacts),
		byFile:  make(map[string]string),
		files:   make(map[string]store.FileMeta),
	}
}

// clone deep-copies the mutable containers; symbols themselves are
// immutable and shared.
func (s *snapshot) clone() *snapshot {
	out := &snapshot{
		table:   s.table.Clone(),
		graph:   s.graph.Clone(),
		modules: make(map[string]*analyzer.ModuleFacts, len(s.modules)),
		byFile:  make(map[string]string, len(s.byFile)),
		files:   make(map[string]store.FileMeta, len(s.files)),
	}
	for k, v := range s.modules {
		out.modules[k] = v
	}
	for k, v := range s.byFile {
		out.byFile[k] = v
	}
	for k, v := range s.files {
		out.files[k] = v
	}
	return out
}

// Index is the entry point: it owns the persisted store, the live
// snapshot, and the update machinery. Queries are safe from any
// goroutine; updates are serialized internally.
type Index struct {
	root     string
	cfg      *config.Config
	log      *slog.Logger
	db       *store.Store
	analyzer *analyzer.Analyzer
	matcher  *ignore.GitIgnore
	langs    map[string]bool // nil means all supported languages
	workers  int

	snap  atomic.Pointer[snapshot]
	mu    sync.Mutex // single logical writer per update cycle
	state atomic.Int32

	// parseCount observes parser invocations across all workers.
	parseCount atomic.Int64
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger. The default discards all output.
func WithLogger(log *slog.Logger) Option {
	return func(ix *Index) { ix.log = log }
}

// WithLanguages restricts indexing to the named languages.
func WithLanguages(languages ...string) Option {
	return func(ix *Index) {
		ix.langs = make(map[string]bool, len(languages))
		for _, l := range languages {
			ix.langs[l] = true
		}
	}
}

// WithWorkers caps the parallel parse phase. Zero means one per CPU.
func WithWorkers(n int) Option {
	return func(ix *Index) { ix.workers = n }
}

// WithConfig supplies configuration directly instead of loading
// .lodestar.yaml from the project root.
func WithConfig(cfg *config.Config) Option {
	return func(ix *Index) { ix.cfg = cfg }
}

// newIndex resolves the root, applies options, and wires configuration
// and the ignore matcher. It does not touch the state directory, so
// read-only entry points (Status) share it with Open.
func newIndex(root string, opts ...Option) (*Index, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("lodestar: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("lodestar: project root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("lodestar: project root %s is not a directory", abs)
	}

	ix := &Index{
		root:     abs,
		analyzer: analyzer.New("."),
	}
	for _, opt := range opts {
		opt(ix)
	}
	if ix.log == nil {
		ix.log = slogutil.NewDiscardLogger()
	}
	if ix.cfg == nil {
		cfg, err := config.Load(abs)
		if err != nil {
			return nil, fmt.Errorf("lodestar: %w", err)
		}
		ix.cfg = cfg
	}
	if ix.workers == 0 {
		ix.workers = ix.cfg.Workers
	}
	if len(ix.langs) == 0 && len(ix.cfg.Languages) > 0 {
		ix.langs = make(map[string]bool, len(ix.cfg.Languages))
		for _, l := range ix.cfg.Languages {
			ix.langs[l] = true
		}
	}
	ix.matcher = compileIgnore(abs, ix.cfg)
	return ix, nil
}

// Open opens (or creates) the index for the project rooted at root. A
// missing or unreadable root is the only hard failure; a corrupt
// persisted index is logged and replaced by the next full scan.
func Open(root string, opts ...Option) (*Index, error) {
	ix, err := newIndex(root, opts...)
	if err != nil {
		return nil, err
	}

	stateDir := ix.cfg.ResolveStateDir(ix.root)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("lodestar: create state dir: %w", err)
	}
	db, err := store.Open(filepath.Join(stateDir, "index.db"))
	if err != nil {
		return nil, fmt.Errorf("lodestar: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("lodestar: %w", err)
	}
	ix.db = db

	snap := newSnapshot()
	persisted, err := db.Load()
	switch {
	case err == nil:
		snap = rebuild(persisted)
		ix.log.Debug("loaded persisted index", "files", len(snap.files), "modules", len(snap.modules))
	case errors.Is(err, store.ErrCacheCorrupt):
		ix.log.Warn("persisted index unusable, will reindex", "error", err)
	default:
		ix.log.Warn("persisted index unreadable, will reindex", "error", err)
	}
	ix.snap.Store(snap)
	return ix, nil
}

// rebuild derives the in-memory snapshot from a loaded store snapshot:
// the dependency graph and the file-to-module map come from the
// persisted module facts.
func rebuild(persisted *store.Snapshot) *snapshot {
	snap := &snapshot{
		table:   persisted.Table,
		graph:   depgraph.New(),
		modules: persisted.Modules,
		byFile:  make(map[string]string, len(persisted.Modules)),
		files:   persisted.Files,
	}
	for path, facts := range persisted.Modules {
		snap.byFile[facts.File] = path
		targets := make([]string, 0, len(facts.Imports))
		for _, edge := range facts.Imports {
			targets = append(targets, edge.Target)
		}
		snap.graph.SetEdges(path, targets)
	}
	return snap
}

// compileIgnore merges the project's .gitignore with configured
// patterns. Either source may be absent.
func compileIgnore(root string, cfg *config.Config) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(path); err == nil {
		if m, err := ignore.CompileIgnoreFileAndLines(path, cfg.Ignore...); err == nil {
			return m
		}
	}
	return ignore.CompileIgnoreLines(cfg.Ignore...)
}

// Close releases the index's database resources.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// Root returns the absolute project root.
func (ix *Index) Root() string {
	return ix.root
}

// State reports where the incremental analyzer currently is in its
// cycle.
func (ix *Index) State() State {
	return State(ix.state.Load())
}

func (ix *Index) setState(s State) {
	ix.state.Store(int32(s))
}

// current returns the live snapshot. Never nil.
func (ix *Index) current() *snapshot {
	return ix.snap.Load()
}

// Stats summarizes the live snapshot.
func (ix *Index) Stats() IndexStats {
	snap := ix.current()
	symbols, rels := snap.table.Counts()
	return IndexStats{
		Files:         len(snap.files),
		Modules:       len(snap.modules),
		Symbols:       symbols,
		Relationships: rels,
	}
}
