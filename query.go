package lodestar

import (
	"sort"
	"strings"

	"github.com/jpaulson/lodestar/internal/symtab"
)

// KindAny disables kind filtering in SearchSymbols.
const KindAny = symtab.Kind(-1)

// DefaultSearchLimit caps SearchSymbols results when the caller passes
// a non-positive limit.
const DefaultSearchLimit = 100

// GoToDefinition resolves an identifier as written at a position.
// Resolution order: a definition in the context file whose line range
// most tightly encloses the position, then names reachable through the
// context file's import edges, then a ranked global search. An empty
// result means "unresolved", a normal outcome for external or stdlib
// names.
func (ix *Index) GoToDefinition(identifier, contextFile string, contextLine int) []Candidate {
	snap := ix.current()
	var out []Candidate
	seen := make(map[symtab.ID]bool)
	add := func(sym *symtab.Symbol, rank CandidateRank) {
		if sym == nil || seen[sym.ID] {
			return
		}
		seen[sym.ID] = true
		out = append(out, Candidate{Symbol: sym, Rank: rank})
	}

	base := lastSegment(identifier)

	// (a) Definitions in the context file, nearest enclosing range first.
	local := make([]*symtab.Symbol, 0, 2)
	for _, sym := range snap.table.FileSymbols(contextFile) {
		if sym.Name == base {
			local = append(local, sym)
		}
	}
	sort.SliceStable(local, func(i, j int) bool {
		return scopeDistance(local[i], contextLine) < scopeDistance(local[j], contextLine)
	})
	for _, sym := range local {
		add(sym, RankEnclosingScope)
	}

	// (b) Names reachable through the context file's import edges.
	if facts, ok := snap.modules[snap.byFile[contextFile]]; ok {
		head, rest, dotted := strings.Cut(identifier, ".")
		for _, edge := range facts.Imports {
			for _, bound := range edge.Names {
				if bound != head {
					continue
				}
				if dotted {
					add(snap.table.ByQualified(edge.Target+"."+identifier), RankImported)
				}
				add(snap.table.ByQualified(edge.Target+"."+head), RankImported)
			}
			if lastSegment(edge.Target) == head {
				if dotted {
					add(snap.table.ByQualified(edge.Target+"."+rest), RankImported)
				} else {
					add(snap.table.ByQualified(edge.Target), RankImported)
				}
			}
		}
	}

	// (c) Global search: exact qualified match, then same package, then
	// any match; ties broken by shortest qualified name.
	add(snap.table.ByQualified(identifier), RankQualifiedMatch)
	global := snap.table.ByName(base)
	pkg := parentPackage(snap.byFile[contextFile])
	sort.SliceStable(global, func(i, j int) bool {
		a, b := global[i], global[j]
		ap, bp := samePackage(a.QualifiedName, pkg), samePackage(b.QualifiedName, pkg)
		if ap != bp {
			return ap
		}
		if len(a.QualifiedName) != len(b.QualifiedName) {
			return len(a.QualifiedName) < len(b.QualifiedName)
		}
		return a.QualifiedName < b.QualifiedName
	})
	for _, sym := range global {
		rank := RankGlobal
		if samePackage(sym.QualifiedName, pkg) {
			rank = RankSamePackage
		}
		add(sym, rank)
	}
	return out
}

// scopeDistance orders context-file candidates: a range enclosing the
// position wins, tighter ranges first; non-enclosing definitions come
// after, nearest first.
func scopeDistance(sym *symtab.Symbol, line int) int {
	if sym.StartLine <= line && line <= sym.EndLine {
		return sym.EndLine - sym.StartLine
	}
	d := sym.StartLine - line
	if d < 0 {
		d = -d
	}
	return 1<<20 + d
}

// FindReferences returns every relationship targeting the named symbol,
// across all kinds, sorted by file then line. Unknown names yield an
// empty slice.
func (ix *Index) FindReferences(qualifiedName string) []Location {
	snap := ix.current()
	sym := snap.table.ByQualified(qualifiedName)
	if sym == nil {
		return nil
	}
	rels := snap.table.References(sym.ID)
	out := make([]Location, 0, len(rels))
	for _, rel := range rels {
		out = append(out, Location{File: rel.File, Line: rel.Line, Kind: rel.Kind, From: rel.From})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		return out[i].Line < out[j].Line
	})
	return out
}

// SearchSymbols scans the by-name index for names starting with prefix.
// Pass KindAny to skip kind filtering; a non-positive limit applies
// DefaultSearchLimit. Ordering is alphabetical by name, then file.
func (ix *Index) SearchSymbols(prefix string, kind SymbolKind, limit int) []*Symbol {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	snap := ix.current()
	var out []*Symbol
	for _, name := range snap.table.NamesWithPrefix(prefix) {
		matches := snap.table.ByName(name)
		sort.Slice(matches, func(i, j int) bool {
			if matches[i].File != matches[j].File {
				return matches[i].File < matches[j].File
			}
			return matches[i].QualifiedName < matches[j].QualifiedName
		})
		for _, sym := range matches {
			if kind != KindAny && sym.Kind != kind {
				continue
			}
			out = append(out, sym)
			if len(out) == limit {
				return out
			}
		}
	}
	return out
}

// Hover returns the display summary for a symbol ID.
func (ix *Index) Hover(id SymbolID) (*HoverInfo, bool) {
	sym := ix.current().table.Get(id)
	if sym == nil {
		return nil, false
	}
	return &HoverInfo{
		Name:          sym.Name,
		QualifiedName: sym.QualifiedName,
		Kind:          sym.Kind,
		Signature:     sym.Signature,
		Docstring:     sym.Docstring,
		File:          sym.File,
		StartLine:     sym.StartLine,
		EndLine:       sym.EndLine,
		Stale:         sym.Stale,
	}, true
}

// SymbolByQualifiedName looks up the unique holder of a qualified name.
func (ix *Index) SymbolByQualifiedName(qualifiedName string) *Symbol {
	return ix.current().table.ByQualified(qualifiedName)
}

// CallGraph walks Calls relationships breadth-first from root, bounded
// by depth.
func (ix *Index) CallGraph(root SymbolID, depth int) *CallGraph {
	return ix.current().table.GetCallGraph(root, depth)
}

// InheritanceChain follows Inherits edges from the symbol to the root
// of its hierarchy.
func (ix *Index) InheritanceChain(id SymbolID) []*Symbol {
	return ix.current().table.GetInheritanceChain(id)
}

// ProjectStructure summarizes the indexed project: every module with
// its metrics, the dependency edges, and any import cycles.
func (ix *Index) ProjectStructure() *Structure {
	snap := ix.current()
	s := &Structure{}
	modules := make([]string, 0, len(snap.modules))
	for m := range snap.modules {
		modules = append(modules, m)
	}
	sort.Strings(modules)
	for _, m := range modules {
		facts := snap.modules[m]
		s.Modules = append(s.Modules, ModuleInfo{
			Path:     facts.Path,
			File:     facts.File,
			Language: facts.Language,
			Exports:  facts.Exports,
			Metrics:  facts.Metrics,
		})
	}
	for _, edge := range snap.graph.Edges() {
		s.DependencyEdges = append(s.DependencyEdges, DependencyEdge{From: edge.From, To: edge.To})
	}
	s.Cycles = snap.graph.Cycles()
	return s
}
