package diagram

import (
	"decisionkit/core/node"
	"decisionkit/internal/errors"
)

// Mode selects whether a partial order hands out the diagram's own nodes or
// independent copies
type Mode string

const (
	// ModeView returns references to the diagram's nodes
	ModeView Mode = "view"
	// ModeCopy returns deep copies with fresh identities
	ModeCopy Mode = "copy"
)

// ParseMode validates a mode name
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeView, ModeCopy:
		return Mode(s), nil
	default:
		return "", errors.Configf("unknown partial order mode %q (want %q or %q)", s, ModeView, ModeCopy)
	}
}

// EliminationOrder returns the decisions in backward-induction order: the
// decision taken last comes first.
//
// Childless nodes are pruned repeatedly, scanning in insertion order; a
// pruned decision is appended to the order. Pruning happens on an arena view,
// so the diagram is not modified. Among decisions that become childless in
// the same pass, insertion order decides.
func (d *InfluenceDiagram) EliminationOrder() ([]*node.Node, error) {
	remaining := len(d.DecisionNodes())
	order := make([]*node.Node, 0, remaining)
	arena := d.g.Arena()

	for remaining > 0 {
		pruned := false
		for i := 0; i < d.g.Size() && remaining > 0; i++ {
			if !arena.Active(i) || arena.ChildCount(i) > 0 {
				continue
			}
			if n := d.g.At(i); n.IsDecisionNode() {
				order = append(order, n)
				remaining--
			}
			arena.Remove(i)
			pruned = true
		}
		if !pruned {
			return nil, errors.Structural("cannot order decisions: diagram contains a cycle").
				WithContext("unordered_decisions", remaining)
		}
	}
	return order, nil
}

// PartialOrder linearizes decisions and uncertainties for tree expansion.
// Decisions are taken from the end of the elimination order; each is preceded
// by its not yet placed uncertainty parents. Uncertainties that precede no
// decision come last.
func (d *InfluenceDiagram) PartialOrder(mode Mode) ([]*node.Node, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}

	elimination, err := d.EliminationOrder()
	if err != nil {
		return nil, err
	}

	placed := make(map[*node.Node]bool)
	order := make([]*node.Node, 0, len(d.DecisionNodes())+len(d.UncertaintyNodes()))
	for i := len(elimination) - 1; i >= 0; i-- {
		decision := elimination[i]
		parents, err := d.g.Parents(decision)
		if err != nil {
			return nil, err
		}
		for _, p := range parents {
			if p.IsUncertaintyNode() && !placed[p] {
				placed[p] = true
				order = append(order, p)
			}
		}
		placed[decision] = true
		order = append(order, decision)
	}

	for _, u := range d.UncertaintyNodes() {
		if !placed[u] {
			placed[u] = true
			order = append(order, u)
		}
	}

	if mode == ModeCopy {
		for i, n := range order {
			order[i] = n.Copy()
		}
	}
	return order, nil
}
