// Package lang parses single source files into a language-agnostic
// FileAnalysis using tree-sitter grammars. Extraction is an explicit
// visitor over a closed node-kind set so new languages only need a
// languageSpec, never changes to downstream consumers.
package lang

import "fmt"

// NodeKind classifies the tree-sitter node types lodestar cares about.
// Everything else is traversal noise.
type NodeKind int

const (
	KindNone NodeKind = iota
	KindImport
	KindFunction
	KindClass
	KindConstant
	KindDecision
	KindCall
	KindComment
)

// FileAnalysis is the parser's output for one file.
type FileAnalysis struct {
	Path      string
	Language  string
	Imports   []Import
	Functions []Function
	Classes   []Class
	Constants []Constant

	// ModuleCalls and ModuleUses are call sites and imported-name uses
	// appearing outside any function body, at module scope.
	ModuleCalls []CallSite
	ModuleUses  []UseSite

	Lines LineCounts
}

// Import is a raw, unresolved module reference. RelativeDepth counts
// leading dots in Python-style relative imports (0 for absolute).
type Import struct {
	Module        string
	Names         []string // imported names ("from m import a, b"); empty for whole-module imports
	Alias         string
	RelativeDepth int
	Line          int
}

// Param describes one function parameter.
type Param struct {
	Name       string
	Annotation string
	Default    string
}

// Function describes a function or method definition.
type Function struct {
	Name       string
	Params     []Param
	Returns    string
	Decorators []string
	Async      bool
	StartLine  int
	EndLine    int
	Complexity int
	Docstring  string
	Calls      []CallSite
	Uses       []UseSite
}

// Class describes a class (or struct/interface) definition.
type Class struct {
	Name      string
	Bases     []string
	Methods   []Function
	StartLine int
	EndLine   int
	Docstring string
}

// Constant is a module-level constant binding.
type Constant struct {
	Name  string
	Value string
	Line  int
}

// CallSite records a call expression inside a function body. Name is the
// full dotted callee text ("foo", "mod.foo", "obj.method").
type CallSite struct {
	Name string
	Line int
}

// UseSite records a non-call identifier reference to a name that was
// brought into scope by an import.
type UseSite struct {
	Name string
	Line int
}

// LineCounts are simple line-level metrics for a file.
type LineCounts struct {
	Total   int
	Comment int
	Blank   int
}

// ParseError reports malformed source. Partial carries whatever was
// extracted before (and around) the error; callers keep prior valid
// symbols and flag the file stale rather than aborting the batch.
type ParseError struct {
	Path    string
	Line    int
	Partial *FileAnalysis
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: syntax error near line %d", e.Path, e.Line)
}
