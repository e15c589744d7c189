package tree

import (
	"decisionkit/core/node"
	"decisionkit/internal/errors"
)

// ExportNode is the nested plain form of a tree, rooted at the tree's root
type ExportNode struct {
	ID          string        `json:"id"`
	Category    string        `json:"category"`
	Description string        `json:"description"`
	ShortName   string        `json:"shortname"`
	Branch      string        `json:"branch,omitempty"`
	Values      []float64     `json:"values,omitempty"`
	Children    []*ExportNode `json:"children,omitempty"`
}

// Export serializes the tree. It fails when the tree has no unique root.
func (t *DecisionTree) Export() (*ExportNode, error) {
	root := t.Root()
	if root == nil {
		return nil, errors.Structural("decision tree has no unique root").
			WithContext("roots", len(t.g.Roots()))
	}
	return t.export(root, "")
}

func (t *DecisionTree) export(n *node.Node, branch string) (*ExportNode, error) {
	out := &ExportNode{
		ID:          n.ID().String(),
		Category:    n.Kind().String(),
		Description: n.Description,
		ShortName:   n.ShortName,
		Branch:      branch,
	}
	if u, ok := n.Variant().(*node.Utility); ok {
		out.Values = append([]float64(nil), u.Values...)
	}

	arcs, err := t.g.OutArcs(n)
	if err != nil {
		return nil, err
	}
	for _, a := range arcs {
		child, err := t.export(a.Head(), a.Label)
		if err != nil {
			return nil, err
		}
		out.Children = append(out.Children, child)
	}
	return out, nil
}

// Count returns the number of nodes in the exported subtree
func (e *ExportNode) Count() int {
	n := 1
	for _, c := range e.Children {
		n += c.Count()
	}
	return n
}
