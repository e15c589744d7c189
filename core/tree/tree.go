// Package tree holds decision trees derived from influence diagrams.
package tree

import (
	"decisionkit/core/graph"
	"decisionkit/core/node"
	"decisionkit/internal/errors"
)

// DecisionTree is a directed tree whose arcs carry branch labels.
//
// The container does not enforce the single-parent shape; the converter,
// its only writer, maintains it.
type DecisionTree struct {
	g *graph.Graph
}

// New creates an empty tree
func New() *DecisionTree {
	return &DecisionTree{g: graph.New()}
}

// AddNode inserts n
func (t *DecisionTree) AddNode(n *node.Node) error {
	return t.g.AddNode(n)
}

// AddArc inserts a together with any endpoint not yet present
func (t *DecisionTree) AddArc(a *node.Arc) error {
	return t.g.AddArc(a)
}

// Branch connects parent to child under label
func (t *DecisionTree) Branch(parent, child *node.Node, label string) (*node.Arc, error) {
	return t.g.Connect(parent, child, label)
}

// Nodes returns nodes in insertion order
func (t *DecisionTree) Nodes() []*node.Node {
	return t.g.Nodes()
}

// Arcs returns arcs in insertion order
func (t *DecisionTree) Arcs() []*node.Arc {
	return t.g.Arcs()
}

// Size returns node count
func (t *DecisionTree) Size() int {
	return t.g.Size()
}

// Root returns the unique node without a parent, or nil when there is none
// or more than one
func (t *DecisionTree) Root() *node.Node {
	roots := t.g.Roots()
	if len(roots) != 1 {
		return nil
	}
	return roots[0]
}

// Parent returns n's unique predecessor, or nil
func (t *DecisionTree) Parent(n *node.Node) *node.Node {
	parents, err := t.g.Parents(n)
	if err != nil || len(parents) != 1 {
		return nil
	}
	return parents[0]
}

// Children returns n's successors in branch order
func (t *DecisionTree) Children(n *node.Node) ([]*node.Node, error) {
	return t.g.Children(n)
}

// BranchLabel returns the label of the arc entering n
func (t *DecisionTree) BranchLabel(n *node.Node) (string, bool) {
	in, err := t.g.InArcs(n)
	if err != nil || len(in) != 1 {
		return "", false
	}
	return in[0].Label, true
}

// Leaves returns nodes without children in insertion order
func (t *DecisionTree) Leaves() []*node.Node {
	return t.g.Sinks()
}

// Path returns the branch labels from the root down to n
func (t *DecisionTree) Path(n *node.Node) ([]string, error) {
	if !t.g.Contains(n) {
		return nil, errors.Structural("node is not part of the tree").WithContext("node", nodeName(n))
	}
	var labels []string
	for cur := n; ; {
		label, ok := t.BranchLabel(cur)
		if !ok {
			break
		}
		labels = append(labels, label)
		cur = t.Parent(cur)
	}
	for i, j := 0, len(labels)-1; i < j; i, j = i+1, j-1 {
		labels[i], labels[j] = labels[j], labels[i]
	}
	return labels, nil
}

func nodeName(n *node.Node) string {
	if n == nil {
		return "<nil>"
	}
	return n.ShortName
}
