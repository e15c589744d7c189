package graph

// Arena is a pruning view over a graph. Removing a node marks it inactive
// instead of mutating the graph, so the underlying graph and its node
// identities are never touched.
type Arena struct {
	g        *Graph
	active   []bool
	children []int // active child count per node, counting parallel arcs
	parents  []int
	live     int
}

// Arena returns a fresh view with every node active
func (g *Graph) Arena() *Arena {
	a := &Arena{
		g:        g,
		active:   make([]bool, len(g.nodes)),
		children: make([]int, len(g.nodes)),
		parents:  make([]int, len(g.nodes)),
		live:     len(g.nodes),
	}
	for i := range g.nodes {
		a.active[i] = true
		a.children[i] = len(g.out[i])
		a.parents[i] = len(g.in[i])
	}
	return a
}

// Len returns the number of active nodes
func (a *Arena) Len() int {
	return a.live
}

// Active reports whether index i is still part of the view
func (a *Arena) Active(i int) bool {
	return a.active[i]
}

// ChildCount counts arcs from i to active nodes
func (a *Arena) ChildCount(i int) int {
	return a.children[i]
}

// ParentCount counts arcs into i from active nodes
func (a *Arena) ParentCount(i int) int {
	return a.parents[i]
}

// Remove deactivates index i and detaches it from its neighbours
func (a *Arena) Remove(i int) {
	if !a.active[i] {
		return
	}
	a.active[i] = false
	a.live--
	for _, ai := range a.g.in[i] {
		a.children[a.g.tails[ai]]--
	}
	for _, ai := range a.g.out[i] {
		a.parents[a.g.heads[ai]]--
	}
}
