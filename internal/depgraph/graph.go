// Package depgraph maintains the directed module import graph used for
// cycle detection and for computing the affected set during incremental
// updates. The graph is mutated in place per file change, never rebuilt
// from scratch unless the persisted cache is corrupt.
package depgraph

import "sort"

// Edge is a single import relation between two modules.
type Edge struct {
	From string
	To   string
}

// Graph is a directed graph of module paths. It is not safe for
// concurrent mutation; the indexing pipeline has a single writer and
// queries run against cloned snapshots.
type Graph struct {
	forward map[string]map[string]bool
	reverse map[string]map[string]bool
	nodes   map[string]bool
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{
		forward: make(map[string]map[string]bool),
		reverse: make(map[string]map[string]bool),
		nodes:   make(map[string]bool),
	}
}

// SetEdges replaces the outgoing edges of from. Targets are added as
// nodes so edges to not-yet-analyzed modules survive ordering.
func (g *Graph) SetEdges(from string, targets []string) {
	g.nodes[from] = true
	for to := range g.forward[from] {
		delete(g.reverse[to], from)
	}
	delete(g.forward, from)
	if len(targets) == 0 {
		return
	}
	out := make(map[string]bool, len(targets))
	for _, to := range targets {
		if to == from {
			continue
		}
		out[to] = true
		g.nodes[to] = true
		if g.reverse[to] == nil {
			g.reverse[to] = make(map[string]bool)
		}
		g.reverse[to][from] = true
	}
	g.forward[from] = out
}

// Remove deletes a node and every edge touching it.
func (g *Graph) Remove(node string) {
	for to := range g.forward[node] {
		delete(g.reverse[to], node)
	}
	for from := range g.reverse[node] {
		delete(g.forward[from], node)
	}
	delete(g.forward, node)
	delete(g.reverse, node)
	delete(g.nodes, node)
}

// Has reports whether node is present.
func (g *Graph) Has(node string) bool {
	return g.nodes[node]
}

// Nodes returns all module paths in deterministic order.
func (g *Graph) Nodes() []string {
	out := make([]string, 0, len(g.nodes))
	for n := range g.nodes {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Edges returns every import relation, sorted for determinism.
func (g *Graph) Edges() []Edge {
	var out []Edge
	for from, tos := range g.forward {
		for to := range tos {
			out = append(out, Edge{From: from, To: to})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// Dependents returns the modules with a direct import edge to node.
func (g *Graph) Dependents(node string) []string {
	out := make([]string, 0, len(g.reverse[node]))
	for from := range g.reverse[node] {
		out = append(out, from)
	}
	sort.Strings(out)
	return out
}

// Cycles finds minimal import cycles by depth-first traversal with an
// explicit recursion stack; every back edge yields the stack slice from
// the revisited node. Cycles are canonicalized (rotated to start at the
// smallest module) and deduplicated.
func (g *Graph) Cycles() [][]string {
	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[string]int, len(g.nodes))
	var stack []string
	seen := make(map[string]bool)
	var cycles [][]string

	var visit func(node string)
	visit = func(node string) {
		state[node] = inStack
		stack = append(stack, node)
		for _, to := range sortedKeys(g.forward[node]) {
			switch state[to] {
			case unvisited:
				visit(to)
			case inStack:
				// Back edge: the cycle is the stack from `to` onward.
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i] == to {
						cycle := canonicalCycle(stack[i:])
						key := cycleKey(cycle)
						if !seen[key] {
							seen[key] = true
							cycles = append(cycles, cycle)
						}
						break
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[node] = done
	}

	for _, node := range g.Nodes() {
		if state[node] == unvisited {
			visit(node)
		}
	}
	return cycles
}

// Clone returns an independent copy for snapshot isolation.
func (g *Graph) Clone() *Graph {
	c := New()
	for n := range g.nodes {
		c.nodes[n] = true
	}
	for from, tos := range g.forward {
		out := make(map[string]bool, len(tos))
		for to := range tos {
			out[to] = true
			if c.reverse[to] == nil {
				c.reverse[to] = make(map[string]bool)
			}
			c.reverse[to][from] = true
		}
		c.forward[from] = out
	}
	return c
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// canonicalCycle rotates a cycle so it starts at its smallest member.
func canonicalCycle(cycle []string) []string {
	if len(cycle) == 0 {
		return nil
	}
	minIdx := 0
	for i, n := range cycle {
		if n < cycle[minIdx] {
			minIdx = i
		}
	}
	out := make([]string, 0, len(cycle))
	out = append(out, cycle[minIdx:]...)
	out = append(out, cycle[:minIdx]...)
	return out
}

func cycleKey(cycle []string) string {
	key := ""
	for _, n := range cycle {
		key += n + "\x00"
	}
	return key
}
