package symtab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sym(qname, file string, line int, kind Kind) *Symbol {
	name := qname
	for i := len(qname) - 1; i >= 0; i-- {
		if qname[i] == '.' {
			name = qname[i+1:]
			break
		}
	}
	return &Symbol{
		ID:            MakeID(qname, file, line),
		Name:          name,
		QualifiedName: qname,
		Kind:          kind,
		File:          file,
		StartLine:     line,
		EndLine:       line + 2,
		Public:        true,
	}
}

func rel(from, to *Symbol, kind RelKind, line int) Relationship {
	return Relationship{From: from.ID, To: to.ID, Kind: kind, Line: line}
}

func TestMakeIDStable(t *testing.T) {
	t.Parallel()

	a := MakeID("app.main.run", "app/main.py", 4)
	b := MakeID("app.main.run", "app/main.py", 4)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, MakeID("app.main.run", "app/main.py", 5))
	assert.NotEqual(t, a, MakeID("app.main.run", "app/other.py", 4))
	assert.Len(t, string(a), 16)
}

func TestKindStringBounds(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "function", KindFunction.String())
	assert.Equal(t, "unknown", Kind(-1).String())
	assert.Equal(t, "unknown", Kind(len(kindNames)).String())

	assert.Equal(t, "calls", RelCalls.String())
	assert.Equal(t, "unknown", RelKind(-1).String())
	assert.Equal(t, "unknown", RelKind(len(relNames)).String())
}

func TestUpsertFileReplacesPriorEntries(t *testing.T) {
	t.Parallel()

	tab := NewTable()
	old := sym("m.f", "m.py", 1, KindFunction)
	tab.UpsertFile("m.py", []*Symbol{old}, nil)

	// Same qualified name, new line: the old ID must be gone.
	moved := sym("m.f", "m.py", 10, KindFunction)
	tab.UpsertFile("m.py", []*Symbol{moved}, nil)

	assert.Nil(t, tab.Get(old.ID))
	assert.Equal(t, moved, tab.Get(moved.ID))
	assert.Equal(t, moved, tab.ByQualified("m.f"))
	require.Len(t, tab.FileSymbols("m.py"), 1)

	count, _ := tab.Counts()
	assert.Equal(t, 1, count)
}

func TestQualifiedNameUniquenessAcrossFiles(t *testing.T) {
	t.Parallel()

	tab := NewTable()
	first := sym("pkg.f", "a.py", 1, KindFunction)
	second := sym("pkg.f", "b.py", 1, KindFunction)
	tab.UpsertFile("a.py", []*Symbol{first}, nil)
	tab.UpsertFile("b.py", []*Symbol{second}, nil)

	assert.Nil(t, tab.Get(first.ID))
	assert.Equal(t, second, tab.ByQualified("pkg.f"))
	assert.Empty(t, tab.FileSymbols("a.py"))
}

func TestRemoveFileDropsInboundEdges(t *testing.T) {
	t.Parallel()

	tab := NewTable()
	target := sym("a.greet", "a.py", 3, KindFunction)
	caller := sym("b.run", "b.py", 5, KindFunction)
	tab.UpsertFile("a.py", []*Symbol{target}, nil)
	tab.UpsertFile("b.py", []*Symbol{caller}, []Relationship{rel(caller, target, RelCalls, 6)})

	require.Len(t, tab.References(target.ID), 1)

	tab.RemoveFile("a.py")

	assert.Nil(t, tab.Get(target.ID))
	assert.Empty(t, tab.References(target.ID))
	// The edge left b.py's arena too.
	assert.Empty(t, tab.FileRelationships("b.py"))
	assert.Empty(t, tab.Outgoing(caller.ID))
	// Caller itself survives.
	assert.NotNil(t, tab.Get(caller.ID))
}

func TestUpsertFileReportsUnlinkedArenas(t *testing.T) {
	t.Parallel()

	tab := NewTable()
	target := sym("a.greet", "a.py", 3, KindFunction)
	caller := sym("b.run", "b.py", 5, KindFunction)
	tab.UpsertFile("a.py", []*Symbol{target}, nil)
	tab.UpsertFile("b.py", []*Symbol{caller}, []Relationship{rel(caller, target, RelCalls, 6)})

	// Replacing a.py drops b.py's edge even though the new symbol keeps
	// the same ID; the caller needs to know b.py must re-resolve.
	replacement := sym("a.greet", "a.py", 3, KindFunction)
	unlinked := tab.UpsertFile("a.py", []*Symbol{replacement}, nil)

	assert.Equal(t, []string{"b.py"}, unlinked)
	assert.Empty(t, tab.FileRelationships("b.py"))
	assert.Empty(t, tab.References(replacement.ID))

	// Without inbound edges there is nothing to report.
	assert.Empty(t, tab.UpsertFile("a.py", []*Symbol{replacement}, nil))
}

func TestUpsertFileDoesNotReportOwnFile(t *testing.T) {
	t.Parallel()

	tab := NewTable()
	target := sym("m.f", "m.py", 1, KindFunction)
	caller := sym("m.g", "m.py", 5, KindFunction)
	tab.UpsertFile("m.py", []*Symbol{target, caller}, []Relationship{rel(caller, target, RelCalls, 6)})

	// Edges inside the replaced file are rebuilt with it.
	assert.Empty(t, tab.UpsertFile("m.py", []*Symbol{target, caller}, nil))
}

func TestReplaceRelationshipsDropsDanglingFrom(t *testing.T) {
	t.Parallel()

	tab := NewTable()
	target := sym("a.f", "a.py", 1, KindFunction)
	tab.UpsertFile("a.py", []*Symbol{target}, nil)

	ghost := Relationship{From: ID("deadbeefdeadbeef"), To: target.ID, Kind: RelCalls, Line: 2}
	tab.ReplaceRelationships("b.py", []Relationship{ghost})

	assert.Empty(t, tab.FileRelationships("b.py"))
	assert.Empty(t, tab.References(target.ID))
}

func TestReplaceRelationshipsSetsFile(t *testing.T) {
	t.Parallel()

	tab := NewTable()
	a := sym("a.f", "a.py", 1, KindFunction)
	b := sym("b.g", "b.py", 1, KindFunction)
	tab.UpsertFile("a.py", []*Symbol{a}, nil)
	tab.UpsertFile("b.py", []*Symbol{b}, []Relationship{rel(b, a, RelCalls, 2)})

	rels := tab.FileRelationships("b.py")
	require.Len(t, rels, 1)
	assert.Equal(t, "b.py", rels[0].File)
}

func TestMarkStale(t *testing.T) {
	t.Parallel()

	tab := NewTable()
	s := sym("m.f", "m.py", 1, KindFunction)
	tab.UpsertFile("m.py", []*Symbol{s}, nil)
	tab.MarkStale("m.py")

	got := tab.Get(s.ID)
	require.NotNil(t, got)
	assert.True(t, got.Stale)
	// The original value is untouched; staleness is applied copy-on-write.
	assert.False(t, s.Stale)
}

func TestByNameDeterministicOrder(t *testing.T) {
	t.Parallel()

	tab := NewTable()
	b := sym("b.run", "b.py", 1, KindFunction)
	a := sym("a.run", "a.py", 1, KindFunction)
	tab.UpsertFile("b.py", []*Symbol{b}, nil)
	tab.UpsertFile("a.py", []*Symbol{a}, nil)

	got := tab.ByName("run")
	require.Len(t, got, 2)
	assert.Equal(t, "a.run", got[0].QualifiedName)
	assert.Equal(t, "b.run", got[1].QualifiedName)
}

func TestNamesWithPrefix(t *testing.T) {
	t.Parallel()

	tab := NewTable()
	tab.UpsertFile("m.py", []*Symbol{
		sym("m.parse", "m.py", 1, KindFunction),
		sym("m.parseAll", "m.py", 5, KindFunction),
		sym("m.render", "m.py", 9, KindFunction),
	}, nil)

	assert.Equal(t, []string{"parse", "parseAll"}, tab.NamesWithPrefix("parse"))
	assert.Equal(t, []string{"parse", "parseAll", "render"}, tab.NamesWithPrefix(""))
	assert.Empty(t, tab.NamesWithPrefix("zz"))
}

func TestCloneIsolation(t *testing.T) {
	t.Parallel()

	tab := NewTable()
	a := sym("a.f", "a.py", 1, KindFunction)
	b := sym("b.g", "b.py", 1, KindFunction)
	tab.UpsertFile("a.py", []*Symbol{a}, nil)
	tab.UpsertFile("b.py", []*Symbol{b}, []Relationship{rel(b, a, RelCalls, 2)})

	clone := tab.Clone()
	clone.RemoveFile("a.py")
	clone.UpsertFile("b.py", []*Symbol{sym("b.h", "b.py", 9, KindFunction)}, nil)

	// The original still answers every query it did before.
	assert.NotNil(t, tab.Get(a.ID))
	assert.Equal(t, b, tab.ByQualified("b.g"))
	require.Len(t, tab.References(a.ID), 1)
	require.Len(t, tab.FileRelationships("b.py"), 1)

	assert.Nil(t, clone.Get(a.ID))
	assert.Nil(t, clone.ByQualified("b.g"))
}

func TestAllSymbolsAndRelationships(t *testing.T) {
	t.Parallel()

	tab := NewTable()
	a := sym("a.f", "a.py", 1, KindFunction)
	b := sym("b.g", "b.py", 1, KindFunction)
	tab.UpsertFile("b.py", []*Symbol{b}, nil)
	tab.UpsertFile("a.py", []*Symbol{a}, nil)
	tab.ReplaceRelationships("b.py", []Relationship{rel(b, a, RelCalls, 2)})

	all := tab.AllSymbols()
	require.Len(t, all, 2)
	assert.Equal(t, "a.f", all[0].QualifiedName)

	rels := tab.AllRelationships()
	require.Len(t, rels, 1)
	assert.Equal(t, "b.py", rels[0].File)

	symbols, relationships := tab.Counts()
	assert.Equal(t, 2, symbols)
	assert.Equal(t, 1, relationships)
}

// ===== Call graph & inheritance =====

func TestGetCallGraphBoundedBFS(t *testing.T) {
	t.Parallel()

	tab := NewTable()
	main := sym("app.main", "app.py", 1, KindFunction)
	helper := sym("app.helper", "app.py", 5, KindFunction)
	deep := sym("app.deep", "app.py", 9, KindFunction)
	tab.UpsertFile("app.py", []*Symbol{main, helper, deep}, []Relationship{
		rel(main, helper, RelCalls, 2),
		rel(helper, deep, RelCalls, 6),
		rel(main, deep, RelUses, 3), // not a call, must not traverse
	})

	g := tab.GetCallGraph(main.ID, 1)
	require.NotNil(t, g)
	assert.Equal(t, 1, g.Depth)
	require.Len(t, g.Nodes, 2)
	assert.Equal(t, "app.main", g.Nodes[0].Symbol.QualifiedName)
	assert.Equal(t, "app.helper", g.Nodes[1].Symbol.QualifiedName)
	require.Len(t, g.Edges, 1)

	g = tab.GetCallGraph(main.ID, 5)
	assert.Equal(t, 2, g.Depth)
	assert.Len(t, g.Nodes, 3)
	assert.Len(t, g.Edges, 2)

	assert.Nil(t, tab.GetCallGraph(ID("missing"), 3))
}

func TestGetCallGraphHandlesCycles(t *testing.T) {
	t.Parallel()

	tab := NewTable()
	a := sym("m.a", "m.py", 1, KindFunction)
	b := sym("m.b", "m.py", 5, KindFunction)
	tab.UpsertFile("m.py", []*Symbol{a, b}, []Relationship{
		rel(a, b, RelCalls, 2),
		rel(b, a, RelCalls, 6),
	})

	g := tab.GetCallGraph(a.ID, 10)
	require.NotNil(t, g)
	assert.Len(t, g.Nodes, 2)
	// Both directions of the cycle appear as edges between visited nodes.
	assert.Len(t, g.Edges, 2)
}

func TestGetInheritanceChain(t *testing.T) {
	t.Parallel()

	tab := NewTable()
	base := sym("m.Base", "m.py", 1, KindClass)
	mid := sym("m.Mid", "m.py", 5, KindClass)
	leaf := sym("m.Leaf", "m.py", 9, KindClass)
	tab.UpsertFile("m.py", []*Symbol{base, mid, leaf}, []Relationship{
		rel(leaf, mid, RelInherits, 9),
		rel(mid, base, RelInherits, 5),
	})

	chain := tab.GetInheritanceChain(leaf.ID)
	require.Len(t, chain, 3)
	assert.Equal(t, "m.Leaf", chain[0].QualifiedName)
	assert.Equal(t, "m.Mid", chain[1].QualifiedName)
	assert.Equal(t, "m.Base", chain[2].QualifiedName)

	assert.Nil(t, tab.GetInheritanceChain(ID("missing")))
}

func TestGetInheritanceChainCycleGuard(t *testing.T) {
	t.Parallel()

	tab := NewTable()
	a := sym("m.A", "m.py", 1, KindClass)
	b := sym("m.B", "m.py", 5, KindClass)
	tab.UpsertFile("m.py", []*Symbol{a, b}, []Relationship{
		rel(a, b, RelInherits, 1),
		rel(b, a, RelInherits, 5),
	})

	chain := tab.GetInheritanceChain(a.ID)
	assert.Len(t, chain, 2)
}
