// Package diagram models sequential decision problems as influence diagrams
// and derives the decision-elimination and partial orders used to expand
// them into decision trees.
package diagram

import (
	"github.com/google/uuid"

	"decisionkit/core/graph"
	"decisionkit/core/node"
)

// InfluenceDiagram is a directed graph of decision, uncertainty and utility
// nodes. Acyclicity is checked when an algorithm needs it, not on insertion.
type InfluenceDiagram struct {
	g *graph.Graph
}

// New creates an empty diagram
func New() *InfluenceDiagram {
	return &InfluenceDiagram{g: graph.New()}
}

// AddNode inserts n
func (d *InfluenceDiagram) AddNode(n *node.Node) error {
	return d.g.AddNode(n)
}

// AddArc inserts a together with any endpoint not yet present
func (d *InfluenceDiagram) AddArc(a *node.Arc) error {
	return d.g.AddArc(a)
}

// Connect builds and inserts an arc from tail to head
func (d *InfluenceDiagram) Connect(tail, head *node.Node) (*node.Arc, error) {
	return d.g.Connect(tail, head, "")
}

// Nodes returns nodes in insertion order
func (d *InfluenceDiagram) Nodes() []*node.Node {
	return d.g.Nodes()
}

// Arcs returns arcs in insertion order
func (d *InfluenceDiagram) Arcs() []*node.Arc {
	return d.g.Arcs()
}

// Node looks a node up by uuid; an unknown uuid is a NotFound error
func (d *InfluenceDiagram) Node(id uuid.UUID) (*node.Node, error) {
	return d.g.Node(id)
}

// Parents returns n's immediate predecessors
func (d *InfluenceDiagram) Parents(n *node.Node) ([]*node.Node, error) {
	return d.g.Parents(n)
}

// Children returns n's immediate successors
func (d *InfluenceDiagram) Children(n *node.Node) ([]*node.Node, error) {
	return d.g.Children(n)
}

// DecisionNodes returns decision nodes in insertion order
func (d *InfluenceDiagram) DecisionNodes() []*node.Node {
	return d.filter(node.KindDecision)
}

// UncertaintyNodes returns uncertainty nodes in insertion order
func (d *InfluenceDiagram) UncertaintyNodes() []*node.Node {
	return d.filter(node.KindUncertainty)
}

// UtilityNodes returns utility nodes in insertion order
func (d *InfluenceDiagram) UtilityNodes() []*node.Node {
	return d.filter(node.KindUtility)
}

// IsAcyclic reports whether the diagram is a DAG
func (d *InfluenceDiagram) IsAcyclic() bool {
	return d.g.IsAcyclic()
}

// TopologicalOrder orders nodes so every arc points forward
func (d *InfluenceDiagram) TopologicalOrder() ([]*node.Node, error) {
	return d.g.TopologicalOrder()
}

func (d *InfluenceDiagram) filter(kind node.Kind) []*node.Node {
	var out []*node.Node
	for _, n := range d.g.Nodes() {
		if n.Kind() == kind {
			out = append(out, n)
		}
	}
	return out
}
