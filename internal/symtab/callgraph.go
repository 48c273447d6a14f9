package symtab

import "sort"

// CallGraphNode is a symbol reached during call-graph traversal with
// its BFS distance from the root.
type CallGraphNode struct {
	Symbol *Symbol
	Depth  int
}

// CallGraph is the bounded-depth subgraph of Calls edges rooted at one
// symbol.
type CallGraph struct {
	Root  ID
	Nodes []CallGraphNode
	Edges []Relationship
	Depth int // actual depth reached, may be less than the requested bound
}

// GetCallGraph walks Calls edges breadth-first from root, bounded by
// maxDepth. A depth of 0 returns only the root. Returns nil if root
// does not exist.
func (t *Table) GetCallGraph(root ID, maxDepth int) *CallGraph {
	rootSym, ok := t.symbols[root]
	if !ok {
		return nil
	}
	if maxDepth < 0 {
		maxDepth = 0
	}

	result := &CallGraph{
		Root:  root,
		Nodes: []CallGraphNode{{Symbol: rootSym, Depth: 0}},
	}
	visited := map[ID]int{root: 0}

	type entry struct {
		id    ID
		depth int
	}
	queue := []entry{{id: root, depth: 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		for _, rel := range t.outgoing[cur.id] {
			if rel.Kind != RelCalls {
				continue
			}
			if _, seen := visited[rel.To]; seen {
				continue
			}
			callee, ok := t.symbols[rel.To]
			if !ok {
				continue
			}
			depth := cur.depth + 1
			visited[rel.To] = depth
			if depth > result.Depth {
				result.Depth = depth
			}
			result.Nodes = append(result.Nodes, CallGraphNode{Symbol: callee, Depth: depth})
			queue = append(queue, entry{id: rel.To, depth: depth})
		}
	}

	// Collect the Calls edges connecting visited nodes.
	for id := range visited {
		for _, rel := range t.outgoing[id] {
			if rel.Kind != RelCalls {
				continue
			}
			if _, ok := visited[rel.To]; ok {
				result.Edges = append(result.Edges, rel)
			}
		}
	}
	sort.Slice(result.Edges, func(i, j int) bool {
		if result.Edges[i].From != result.Edges[j].From {
			return result.Edges[i].From < result.Edges[j].From
		}
		return result.Edges[i].To < result.Edges[j].To
	})
	sort.SliceStable(result.Nodes, func(i, j int) bool {
		if result.Nodes[i].Depth != result.Nodes[j].Depth {
			return result.Nodes[i].Depth < result.Nodes[j].Depth
		}
		return result.Nodes[i].Symbol.QualifiedName < result.Nodes[j].Symbol.QualifiedName
	})
	return result
}

// GetInheritanceChain follows Inherits edges from a class to its root
// base, guarding against inheritance cycles. The result starts at the
// symbol itself.
func (t *Table) GetInheritanceChain(id ID) []*Symbol {
	sym, ok := t.symbols[id]
	if !ok {
		return nil
	}
	chain := []*Symbol{sym}
	seen := map[ID]bool{id: true}
	cur := id
	for {
		var next *Symbol
		for _, rel := range t.outgoing[cur] {
			if rel.Kind != RelInherits {
				continue
			}
			if base, ok := t.symbols[rel.To]; ok && !seen[rel.To] {
				next = base
				break
			}
		}
		if next == nil {
			return chain
		}
		seen[next.ID] = true
		chain = append(chain, next)
		cur = next.ID
	}
}
