package lodestar

import (
	"time"

	"github.com/jpaulson/lodestar/internal/analyzer"
	"github.com/jpaulson/lodestar/internal/store"
	"github.com/jpaulson/lodestar/internal/symtab"
)

// Public type aliases for internal types surfaced by the query API.
// These are Go type aliases (=), identical to the internal types at
// compile time.

type Symbol = symtab.Symbol
type SymbolID = symtab.ID
type SymbolKind = symtab.Kind
type Relationship = symtab.Relationship
type RelKind = symtab.RelKind
type CallGraph = symtab.CallGraph
type CallGraphNode = symtab.CallGraphNode
type ModuleFacts = analyzer.ModuleFacts
type ModuleMetrics = analyzer.Metrics
type FileMeta = store.FileMeta

const (
	KindModule   = symtab.KindModule
	KindClass    = symtab.KindClass
	KindFunction = symtab.KindFunction
	KindVariable = symtab.KindVariable
	KindConstant = symtab.KindConstant

	RelCalls    = symtab.RelCalls
	RelInherits = symtab.RelInherits
	RelImports  = symtab.RelImports
	RelUses     = symtab.RelUses
)

// State is the incremental analyzer's cycle position. Updates move
// Clean -> Scanning -> Diffing -> Updating -> Clean; failures return to
// Clean with the previous snapshot still live.
type State int32

const (
	StateClean State = iota
	StateScanning
	StateDiffing
	StateUpdating
)

func (s State) String() string {
	switch s {
	case StateClean:
		return "clean"
	case StateScanning:
		return "scanning"
	case StateDiffing:
		return "diffing"
	case StateUpdating:
		return "updating"
	default:
		return "unknown"
	}
}

// CandidateRank orders go-to-definition results from strongest to
// weakest evidence.
type CandidateRank int

const (
	RankEnclosingScope CandidateRank = iota // defined in the context file, nearest enclosing range
	RankImported                            // reachable through the context file's import edges
	RankQualifiedMatch                      // global: exact qualified-name match
	RankSamePackage                         // global: shares the context module's package prefix
	RankGlobal                              // global: any name match
)

func (r CandidateRank) String() string {
	switch r {
	case RankEnclosingScope:
		return "enclosing-scope"
	case RankImported:
		return "imported"
	case RankQualifiedMatch:
		return "qualified-match"
	case RankSamePackage:
		return "same-package"
	case RankGlobal:
		return "global"
	default:
		return "unknown"
	}
}

// Candidate is one ranked go-to-definition result.
type Candidate struct {
	Symbol *Symbol       `json:"symbol"`
	Rank   CandidateRank `json:"rank"`
}

// Location is one reference to a symbol.
type Location struct {
	File string   `json:"file"`
	Line int      `json:"line"`
	Kind RelKind  `json:"kind"`
	From SymbolID `json:"from"`
}

// HoverInfo is the summary shown for a symbol: signature, docstring,
// and declaring position.
type HoverInfo struct {
	Name          string     `json:"name"`
	QualifiedName string     `json:"qualified_name"`
	Kind          SymbolKind `json:"kind"`
	Signature     string     `json:"signature,omitempty"`
	Docstring     string     `json:"docstring,omitempty"`
	File          string     `json:"file"`
	StartLine     int        `json:"start_line"`
	EndLine       int        `json:"end_line"`
	Stale         bool       `json:"stale,omitempty"`
}

// ModuleInfo summarizes one module in the project structure.
type ModuleInfo struct {
	Path     string        `json:"path"`
	File     string        `json:"file"`
	Language string        `json:"language"`
	Exports  []string      `json:"exports,omitempty"`
	Metrics  ModuleMetrics `json:"metrics"`
}

// DependencyEdge is one resolved module-level import.
type DependencyEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Structure is the project-level view: modules, the dependency graph's
// edges, and any import cycles.
type Structure struct {
	Modules         []ModuleInfo     `json:"modules"`
	DependencyEdges []DependencyEdge `json:"dependency_edges"`
	Cycles          [][]string       `json:"cycles,omitempty"`
}

// FileError records a per-file failure collected during a batch. Batch
// processing never aborts on these.
type FileError struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// IndexStats summarizes a full scan.
type IndexStats struct {
	Files         int           `json:"files"`
	Modules       int           `json:"modules"`
	Symbols       int           `json:"symbols"`
	Relationships int           `json:"relationships"`
	Errors        []FileError   `json:"errors,omitempty"`
	Duration      time.Duration `json:"duration"`
}

// UpdateReport summarizes one incremental cycle.
type UpdateReport struct {
	ID           string        `json:"id"`
	UpdatedFiles []string      `json:"updated_files"`
	DeletedFiles []string      `json:"deleted_files"`
	Errors       []FileError   `json:"errors,omitempty"`
	Duration     time.Duration `json:"duration"`
}
