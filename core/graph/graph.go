// Package graph is the node/arc container shared by influence diagrams and
// decision trees.
//
// Nodes live in an arena addressed by stable integer indices assigned in
// insertion order. Forward and reverse adjacency hold arc indices, so
// parallel arcs between the same pair are kept.
package graph

import (
	"github.com/google/uuid"

	"decisionkit/core/node"
	"decisionkit/internal/errors"
)

// Graph is a directed multigraph of nodes
type Graph struct {
	nodes []*node.Node
	index map[uuid.UUID]int

	arcs  []*node.Arc
	tails []int
	heads []int

	// Forward edges (tail → arcs)
	out [][]int

	// Reverse edges (head → arcs) for upstream lookups
	in [][]int
}

// New creates an empty graph
func New() *Graph {
	return &Graph{
		index: make(map[uuid.UUID]int),
	}
}

// AddNode inserts n. Re-adding the same node is a no-op; a different node
// carrying an identity already present is rejected.
func (g *Graph) AddNode(n *node.Node) error {
	if n == nil {
		return errors.Validation("node", "cannot add a nil node")
	}
	if i, ok := g.index[n.ID()]; ok {
		if g.nodes[i] == n {
			return nil
		}
		return errors.Validationf("uniqueness", "a different node with id %s is already present", n.ID())
	}
	g.index[n.ID()] = len(g.nodes)
	g.nodes = append(g.nodes, n)
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	return nil
}

// AddArc inserts a, adding missing endpoints first. Endpoints are resolved
// at insertion; re-pointing the arc afterwards does not move it.
func (g *Graph) AddArc(a *node.Arc) error {
	if a == nil || a.Tail() == nil || a.Head() == nil {
		return errors.Validation("arc", "arc needs both a tail and a head")
	}
	if err := g.AddNode(a.Tail()); err != nil {
		return err
	}
	if err := g.AddNode(a.Head()); err != nil {
		return err
	}

	t, h := g.index[a.Tail().ID()], g.index[a.Head().ID()]
	ai := len(g.arcs)
	g.arcs = append(g.arcs, a)
	g.tails = append(g.tails, t)
	g.heads = append(g.heads, h)
	g.out[t] = append(g.out[t], ai)
	g.in[h] = append(g.in[h], ai)
	return nil
}

// Connect builds and inserts an arc from tail to head
func (g *Graph) Connect(tail, head *node.Node, label string) (*node.Arc, error) {
	a, err := node.NewArc(tail, head, label)
	if err != nil {
		return nil, err
	}
	if err := g.AddArc(a); err != nil {
		return nil, err
	}
	return a, nil
}

// Size returns node count
func (g *Graph) Size() int {
	return len(g.nodes)
}

// ArcCount returns arc count
func (g *Graph) ArcCount() int {
	return len(g.arcs)
}

// Nodes returns all nodes in insertion order
func (g *Graph) Nodes() []*node.Node {
	return append([]*node.Node(nil), g.nodes...)
}

// Arcs returns all arcs in insertion order
func (g *Graph) Arcs() []*node.Arc {
	return append([]*node.Arc(nil), g.arcs...)
}

// Node looks a node up by identity
func (g *Graph) Node(id uuid.UUID) (*node.Node, error) {
	i, ok := g.index[id]
	if !ok {
		return nil, errors.NotFound("node", id.String())
	}
	return g.nodes[i], nil
}

// Contains reports whether n itself is part of the graph
func (g *Graph) Contains(n *node.Node) bool {
	if n == nil {
		return false
	}
	i, ok := g.index[n.ID()]
	return ok && g.nodes[i] == n
}

// IndexOf returns the arena index of n
func (g *Graph) IndexOf(n *node.Node) (int, error) {
	if !g.Contains(n) {
		return -1, errors.Structural("node is not part of the graph").WithContext("node", nodeName(n))
	}
	return g.index[n.ID()], nil
}

// At returns the node stored at arena index i
func (g *Graph) At(i int) *node.Node {
	return g.nodes[i]
}

// Parents returns the distinct immediate predecessors of n in arc order
func (g *Graph) Parents(n *node.Node) ([]*node.Node, error) {
	i, err := g.IndexOf(n)
	if err != nil {
		return nil, err
	}
	return g.distinct(g.in[i], g.tails), nil
}

// Children returns the distinct immediate successors of n in arc order
func (g *Graph) Children(n *node.Node) ([]*node.Node, error) {
	i, err := g.IndexOf(n)
	if err != nil {
		return nil, err
	}
	return g.distinct(g.out[i], g.heads), nil
}

// InArcs returns the arcs whose head is n
func (g *Graph) InArcs(n *node.Node) ([]*node.Arc, error) {
	i, err := g.IndexOf(n)
	if err != nil {
		return nil, err
	}
	return g.arcsAt(g.in[i]), nil
}

// OutArcs returns the arcs whose tail is n
func (g *Graph) OutArcs(n *node.Node) ([]*node.Arc, error) {
	i, err := g.IndexOf(n)
	if err != nil {
		return nil, err
	}
	return g.arcsAt(g.out[i]), nil
}

// Roots returns nodes with no incoming arcs
func (g *Graph) Roots() []*node.Node {
	var roots []*node.Node
	for i, n := range g.nodes {
		if len(g.in[i]) == 0 {
			roots = append(roots, n)
		}
	}
	return roots
}

// Sinks returns nodes with no outgoing arcs
func (g *Graph) Sinks() []*node.Node {
	var sinks []*node.Node
	for i, n := range g.nodes {
		if len(g.out[i]) == 0 {
			sinks = append(sinks, n)
		}
	}
	return sinks
}

// TopologicalOrder returns the nodes ordered so that every arc points
// forward. Ties keep insertion order. A cycle is a structural error.
func (g *Graph) TopologicalOrder() ([]*node.Node, error) {
	indegree := make([]int, len(g.nodes))
	for i := range g.nodes {
		indegree[i] = len(g.in[i])
	}

	order := make([]*node.Node, 0, len(g.nodes))
	placed := make([]bool, len(g.nodes))
	for len(order) < len(g.nodes) {
		progressed := false
		for i := range g.nodes {
			if placed[i] || indegree[i] > 0 {
				continue
			}
			placed[i] = true
			progressed = true
			order = append(order, g.nodes[i])
			for _, ai := range g.out[i] {
				indegree[g.heads[ai]]--
			}
		}
		if !progressed {
			return nil, errors.Structural("graph contains a cycle")
		}
	}
	return order, nil
}

// IsAcyclic reports whether the graph has no directed cycle
func (g *Graph) IsAcyclic() bool {
	_, err := g.TopologicalOrder()
	return err == nil
}

func (g *Graph) distinct(arcIdx []int, ends []int) []*node.Node {
	seen := make(map[int]bool, len(arcIdx))
	out := make([]*node.Node, 0, len(arcIdx))
	for _, ai := range arcIdx {
		e := ends[ai]
		if seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, g.nodes[e])
	}
	return out
}

func (g *Graph) arcsAt(arcIdx []int) []*node.Arc {
	out := make([]*node.Arc, len(arcIdx))
	for i, ai := range arcIdx {
		out[i] = g.arcs[ai]
	}
	return out
}

func nodeName(n *node.Node) string {
	if n == nil {
		return "<nil>"
	}
	return n.ShortName + " " + n.ID().String()
}
