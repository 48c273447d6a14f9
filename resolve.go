package lodestar

import (
	"sort"
	"strings"

	"github.com/jpaulson/lodestar/internal/analyzer"
	"github.com/jpaulson/lodestar/internal/symtab"
)

// resolveRefs turns one module's raw references into relationships
// against the snapshot's current symbol table. References that resolve
// to nothing are dropped: external and stdlib names are a normal
// outcome, not an error.
func resolveRefs(snap *snapshot, facts *analyzer.ModuleFacts) []symtab.Relationship {
	rels := make([]symtab.Relationship, 0, len(facts.Refs))
	for _, ref := range facts.Refs {
		from := snap.table.ByQualified(ref.Owner)
		if from == nil {
			continue
		}
		var to *symtab.Symbol
		if ref.Kind == symtab.RelImports {
			// Import targets were resolved to module paths during analysis.
			to = snap.table.ByQualified(ref.Name)
		} else {
			to = resolveName(snap, facts, ref.Name)
		}
		if to == nil || to.ID == from.ID {
			continue
		}
		rels = append(rels, symtab.Relationship{
			From: from.ID,
			To:   to.ID,
			Kind: ref.Kind,
			File: facts.File,
			Line: ref.Line,
		})
	}
	return rels
}

// resolveName finds the definition a name written in this module most
// plausibly refers to: same-module first, then names reachable through
// the module's import edges, then a ranked global search.
func resolveName(snap *snapshot, facts *analyzer.ModuleFacts, name string) *symtab.Symbol {
	// Same module. Handles both "foo" and "Class.method" spellings.
	if sym := snap.table.ByQualified(facts.Path + "." + name); sym != nil {
		return sym
	}

	head, rest, dotted := strings.Cut(name, ".")
	for _, edge := range facts.Imports {
		// "from m import foo" binds foo locally.
		for _, bound := range edge.Names {
			if bound == head {
				target := edge.Target + "." + head
				if dotted {
					target = edge.Target + "." + name
				}
				if sym := snap.table.ByQualified(target); sym != nil {
					return sym
				}
			}
		}
		// "import pkg.m" makes m.foo reachable through the module name.
		if dotted && lastSegment(edge.Target) == head {
			if sym := snap.table.ByQualified(edge.Target + "." + rest); sym != nil {
				return sym
			}
		}
		// A bare reference to the imported module itself.
		if !dotted && lastSegment(edge.Target) == name {
			if sym := snap.table.ByQualified(edge.Target); sym != nil {
				return sym
			}
		}
	}

	// Global fallback over the by-name index.
	if sym := snap.table.ByQualified(name); sym != nil {
		return sym
	}
	candidates := snap.table.ByName(lastSegment(name))
	if len(candidates) == 0 {
		return nil
	}
	rankGlobal(candidates, facts.Path)
	return candidates[0]
}

// rankGlobal orders global candidates: same package prefix as the
// referencing module first, then shortest qualified name, then
// alphabetical for determinism.
func rankGlobal(candidates []*symtab.Symbol, fromModule string) {
	pkg := parentPackage(fromModule)
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		ap := samePackage(a.QualifiedName, pkg)
		bp := samePackage(b.QualifiedName, pkg)
		if ap != bp {
			return ap
		}
		if len(a.QualifiedName) != len(b.QualifiedName) {
			return len(a.QualifiedName) < len(b.QualifiedName)
		}
		return a.QualifiedName < b.QualifiedName
	})
}

func samePackage(qualified, pkg string) bool {
	return pkg != "" && strings.HasPrefix(qualified, pkg+".")
}

func parentPackage(module string) string {
	if i := strings.LastIndexByte(module, '.'); i >= 0 {
		return module[:i]
	}
	return ""
}
