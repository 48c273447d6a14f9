package depgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetEdgesAndDependents(t *testing.T) {
	t.Parallel()

	g := New()
	g.SetEdges("b", []string{"a"})
	g.SetEdges("c", []string{"a", "b"})

	assert.True(t, g.Has("a"))
	assert.Equal(t, []string{"a", "b", "c"}, g.Nodes())
	assert.Equal(t, []string{"b", "c"}, g.Dependents("a"))

	// Replacing edges drops the old reverse links.
	g.SetEdges("b", []string{"c"})
	assert.Equal(t, []string{"c"}, g.Dependents("a"))
	assert.Equal(t, []string{"b"}, g.Dependents("c"))
}

func TestSetEdgesIgnoresSelfLoop(t *testing.T) {
	t.Parallel()

	g := New()
	g.SetEdges("a", []string{"a", "b"})
	assert.Equal(t, []Edge{{From: "a", To: "b"}}, g.Edges())
	assert.Empty(t, g.Dependents("a"))
}

func TestRemove(t *testing.T) {
	t.Parallel()

	g := New()
	g.SetEdges("b", []string{"a"})
	g.SetEdges("c", []string{"b"})
	g.Remove("b")

	assert.False(t, g.Has("b"))
	assert.True(t, g.Has("a"))
	assert.Empty(t, g.Dependents("a"))
	assert.Empty(t, g.Edges())
}

func TestDependentsChain(t *testing.T) {
	t.Parallel()

	// d -> c -> b -> a, e -> a
	g := New()
	g.SetEdges("b", []string{"a"})
	g.SetEdges("c", []string{"b"})
	g.SetEdges("d", []string{"c"})
	g.SetEdges("e", []string{"a"})

	// Dependents is one hop only; transitive reach is the caller's
	// concern and is gated per wave.
	assert.Equal(t, []string{"b", "e"}, g.Dependents("a"))
	assert.Equal(t, []string{"d"}, g.Dependents("c"))
	assert.Empty(t, g.Dependents("d"))
}

func TestCycles(t *testing.T) {
	t.Parallel()

	g := New()
	g.SetEdges("a", []string{"b"})
	g.SetEdges("b", []string{"a"})
	g.SetEdges("c", []string{"a"})

	cycles := g.Cycles()
	assert.Equal(t, [][]string{{"a", "b"}}, cycles)
}

func TestCyclesDeduplicatesRotations(t *testing.T) {
	t.Parallel()

	// One three-module cycle plus a two-module cycle sharing a node.
	g := New()
	g.SetEdges("a", []string{"b"})
	g.SetEdges("b", []string{"c"})
	g.SetEdges("c", []string{"a"})
	g.SetEdges("x", []string{"a"})
	g.SetEdges("a", []string{"b", "x"})

	cycles := g.Cycles()
	assert.Len(t, cycles, 2)
	for _, c := range cycles {
		// Canonical form starts at the smallest member.
		assert.Equal(t, "a", c[0])
	}
}

func TestCloneIsIndependent(t *testing.T) {
	t.Parallel()

	g := New()
	g.SetEdges("b", []string{"a"})
	c := g.Clone()
	c.SetEdges("b", nil)
	c.Remove("a")

	assert.True(t, g.Has("a"))
	assert.Equal(t, []string{"b"}, g.Dependents("a"))
	assert.False(t, c.Has("a"))
}

func TestNoCyclesInDAG(t *testing.T) {
	t.Parallel()

	g := New()
	g.SetEdges("b", []string{"a"})
	g.SetEdges("c", []string{"a", "b"})
	assert.Empty(t, g.Cycles())
}
