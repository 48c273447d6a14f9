// Package analyzer derives module-level facts from a single file's
// parse output: the resolved import edges, the public API surface with
// its deterministic signature hash, and aggregate metrics.
package analyzer

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/jpaulson/lodestar/internal/lang"
	"github.com/jpaulson/lodestar/internal/symtab"
)

// ModuleSet answers "is this dotted module path part of the project?"
// during import resolution. The index supplies its current module map.
type ModuleSet interface {
	Has(path string) bool
}

// ImportEdge is a resolved project-internal import.
type ImportEdge struct {
	Target string   // dotted module path
	Names  []string // names pulled from the target, if any
	Line   int
}

// Metrics are the per-module aggregates computed from parser output.
type Metrics struct {
	LOC               int
	CommentLines      int
	BlankLines        int
	AvgComplexity     float64
	DocstringCoverage float64
}

// Ref is a raw, unresolved reference from a symbol in this module to a
// name written in its source. Refs survive in the file cache so that
// relationship resolution after a dependency changed needs no reparse.
type Ref struct {
	Owner string // qualified name of the referencing symbol
	Name  string // referenced name as written, possibly dotted
	Kind  symtab.RelKind
	Line  int
}

// ModuleFacts is the Module Analyzer's output for one file.
type ModuleFacts struct {
	Path       string // dotted module path derived from the file location
	File       string
	Language   string
	Imports    []ImportEdge
	Unresolved []string // external/third-party references, recorded but never errors
	Exports    []string // public top-level function/class/constant names
	APIHash    string   // signature hash gating affected-set propagation
	Refs       []Ref
	Metrics    Metrics
}

// Analyzer resolves files against a project root.
type Analyzer struct {
	root string
}

// New returns an Analyzer for the given project root.
func New(root string) *Analyzer {
	return &Analyzer{root: root}
}

// ModulePath converts a file path into its dotted module path relative
// to the project root: "pkg/sub/mod.py" -> "pkg.sub.mod". Package
// initializers map to the package itself.
func (a *Analyzer) ModulePath(file string) string {
	rel, err := filepath.Rel(a.root, file)
	if err != nil {
		rel = file
	}
	rel = filepath.ToSlash(rel)
	ext := filepath.Ext(rel)
	rel = strings.TrimSuffix(rel, ext)
	rel = strings.TrimSuffix(rel, "/__init__")
	return strings.ReplaceAll(rel, "/", ".")
}

// Analyze aggregates a FileAnalysis into ModuleFacts. Import targets
// are resolved against modules; anything the project doesn't contain is
// recorded under Unresolved.
func (a *Analyzer) Analyze(fa *lang.FileAnalysis, modules ModuleSet) *ModuleFacts {
	facts := &ModuleFacts{
		Path:     a.ModulePath(fa.Path),
		File:     fa.Path,
		Language: fa.Language,
	}

	seen := make(map[string]bool)
	for _, imp := range fa.Imports {
		target, ok := a.resolveImport(facts.Path, imp, modules)
		if !ok {
			facts.Unresolved = append(facts.Unresolved, rawImportLabel(imp))
			continue
		}
		edge := ImportEdge{Target: target, Names: imp.Names, Line: imp.Line}
		if seen[target] {
			// Merge names into the existing edge rather than duplicating it.
			for i := range facts.Imports {
				if facts.Imports[i].Target == target {
					facts.Imports[i].Names = append(facts.Imports[i].Names, imp.Names...)
				}
			}
			continue
		}
		seen[target] = true
		facts.Imports = append(facts.Imports, edge)
	}

	facts.Exports = publicAPI(fa)
	facts.APIHash = APISignature(fa)
	facts.Refs = collectRefs(facts.Path, fa, facts.Imports)
	facts.Metrics = computeMetrics(fa)
	return facts
}

// collectRefs flattens the parser's call, use, and inheritance sites
// into raw references keyed by the owning symbol's qualified name.
// Import edges become module-to-module references.
func collectRefs(modulePath string, fa *lang.FileAnalysis, imports []ImportEdge) []Ref {
	var refs []Ref

	for _, edge := range imports {
		refs = append(refs, Ref{Owner: modulePath, Name: edge.Target, Kind: symtab.RelImports, Line: edge.Line})
	}
	for _, call := range fa.ModuleCalls {
		refs = append(refs, Ref{Owner: modulePath, Name: call.Name, Kind: symtab.RelCalls, Line: call.Line})
	}
	for _, use := range fa.ModuleUses {
		refs = append(refs, Ref{Owner: modulePath, Name: use.Name, Kind: symtab.RelUses, Line: use.Line})
	}

	fnRefs := func(owner string, fn lang.Function) {
		for _, call := range fn.Calls {
			refs = append(refs, Ref{Owner: owner, Name: call.Name, Kind: symtab.RelCalls, Line: call.Line})
		}
		for _, use := range fn.Uses {
			refs = append(refs, Ref{Owner: owner, Name: use.Name, Kind: symtab.RelUses, Line: use.Line})
		}
	}
	for _, fn := range fa.Functions {
		fnRefs(modulePath+"."+fn.Name, fn)
	}
	for _, cls := range fa.Classes {
		owner := modulePath + "." + cls.Name
		for _, base := range cls.Bases {
			refs = append(refs, Ref{Owner: owner, Name: base, Kind: symtab.RelInherits, Line: cls.StartLine})
		}
		for _, method := range cls.Methods {
			fnRefs(owner+"."+method.Name, method)
		}
	}
	return refs
}

// resolveImport maps a raw import onto a project module path. Relative
// imports walk up from the importing module's package; absolute ones
// are tried verbatim, then against each enclosing package prefix.
func (a *Analyzer) resolveImport(fromModule string, imp lang.Import, modules ModuleSet) (string, bool) {
	pkg := parentPackage(fromModule)

	if imp.RelativeDepth > 0 {
		base := pkg
		for i := 1; i < imp.RelativeDepth; i++ {
			base = parentPackage(base)
		}
		candidate := joinModule(base, imp.Module)
		if modules.Has(candidate) {
			return candidate, true
		}
		// "from . import sibling" resolves the names as submodules.
		for _, name := range imp.Names {
			if sub := joinModule(candidate, name); modules.Has(sub) {
				return sub, true
			}
		}
		return "", false
	}

	for _, candidate := range []string{imp.Module, joinModule(pkg, imp.Module)} {
		if candidate != "" && modules.Has(candidate) {
			return candidate, true
		}
	}
	// Walk remaining ancestors of the importing package.
	for base := parentPackage(pkg); base != ""; base = parentPackage(base) {
		if candidate := joinModule(base, imp.Module); modules.Has(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func parentPackage(module string) string {
	if i := strings.LastIndexByte(module, '.'); i >= 0 {
		return module[:i]
	}
	return ""
}

func joinModule(base, name string) string {
	switch {
	case base == "":
		return name
	case name == "":
		return base
	default:
		return base + "." + name
	}
}

func rawImportLabel(imp lang.Import) string {
	label := strings.Repeat(".", imp.RelativeDepth) + imp.Module
	if label == "" && len(imp.Names) > 0 {
		label = imp.Names[0]
	}
	return label
}

// publicAPI lists the exported top-level names: functions, classes, and
// constants whose names are public by the language's convention.
func publicAPI(fa *lang.FileAnalysis) []string {
	var names []string
	for _, fn := range fa.Functions {
		if !lang.IsPrivate(fa.Language, fn.Name) {
			names = append(names, fn.Name)
		}
	}
	for _, cls := range fa.Classes {
		if !lang.IsPrivate(fa.Language, cls.Name) {
			names = append(names, cls.Name)
		}
	}
	for _, c := range fa.Constants {
		if !lang.IsPrivate(fa.Language, c.Name) {
			names = append(names, c.Name)
		}
	}
	sort.Strings(names)
	return names
}

func computeMetrics(fa *lang.FileAnalysis) Metrics {
	m := Metrics{
		LOC:          fa.Lines.Total,
		CommentLines: fa.Lines.Comment,
		BlankLines:   fa.Lines.Blank,
	}

	var complexitySum, fnCount int
	var documented, documentable int
	count := func(fn lang.Function) {
		complexitySum += fn.Complexity
		fnCount++
		if !lang.IsPrivate(fa.Language, fn.Name) {
			documentable++
			if fn.Docstring != "" {
				documented++
			}
		}
	}
	for _, fn := range fa.Functions {
		count(fn)
	}
	for _, cls := range fa.Classes {
		if !lang.IsPrivate(fa.Language, cls.Name) {
			documentable++
			if cls.Docstring != "" {
				documented++
			}
		}
		for _, method := range cls.Methods {
			count(method)
		}
	}
	if fnCount > 0 {
		m.AvgComplexity = float64(complexitySum) / float64(fnCount)
	}
	if documentable > 0 {
		m.DocstringCoverage = float64(documented) / float64(documentable)
	}
	return m
}
