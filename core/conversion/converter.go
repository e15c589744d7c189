// Package conversion expands an influence diagram into a decision tree.
package conversion

import (
	"go.uber.org/zap"

	"decisionkit/core/diagram"
	"decisionkit/core/node"
	"decisionkit/core/tree"
	"decisionkit/internal/errors"
	"decisionkit/internal/logging"
)

// Converter turns influence diagrams into decision trees
type Converter struct {
	logger          *zap.Logger
	reversePush     bool
	leafDescription string
}

// Option configures a Converter
type Option func(*Converter)

// WithLogger sets the diagnostics logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Converter) {
		c.logger = logging.OrNop(l)
	}
}

// WithReversePush controls whether branches are pushed in reverse so that
// they are attached in label order. It defaults to true.
func WithReversePush(reverse bool) Option {
	return func(c *Converter) {
		c.reversePush = reverse
	}
}

// WithLeafDescription names the utility leaves created for diagrams that
// have no utility node
func WithLeafDescription(desc string) Option {
	return func(c *Converter) {
		c.leafDescription = desc
	}
}

// New creates a converter
func New(opts ...Option) *Converter {
	c := &Converter{
		logger:          logging.Nop(),
		reversePush:     true,
		leafDescription: "Utility",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// step is one unit of work on the expansion stack: either expand a tree
// node into its branches, or attach one branch to the next element of the
// partial order.
type step struct {
	expand bool
	pos    int
	at     *node.Node
	label  string
}

// Convert expands d along its partial order. Every tree node is a copy of its
// partial order element, so repeated appearances of a variable are
// independent nodes. Branches leaving the last element end in utility leaves.
// d is not modified.
func (c *Converter) Convert(d *diagram.InfluenceDiagram) (*tree.DecisionTree, error) {
	order, err := d.PartialOrder(diagram.ModeView)
	if err != nil {
		return nil, err
	}
	if len(order) == 0 {
		return nil, errors.Structural("diagram has no decision or uncertainty nodes to expand")
	}

	leaf := c.leafFactory(d)
	t := tree.New()
	root := order[0].Copy()
	if err := t.AddNode(root); err != nil {
		return nil, err
	}

	c.logger.Debug("converting influence diagram",
		zap.Int("partial_order_length", len(order)),
		zap.Stringer("root", root))

	stack := []step{{expand: true, pos: 0, at: root}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if s.expand {
			states := s.at.States()
			if len(states) == 0 {
				c.logger.Warn("node has no states; branch truncated",
					zap.Stringer("node", s.at), zap.Int("position", s.pos))
				continue
			}
			stack = append(stack, c.branches(s, states)...)
			continue
		}

		last := s.pos == len(order)-1
		var child *node.Node
		if last {
			child, err = leaf()
			if err != nil {
				return nil, err
			}
		} else {
			child = order[s.pos+1].Copy()
		}
		if _, err := t.Branch(s.at, child, s.label); err != nil {
			return nil, err
		}
		if !last {
			stack = append(stack, step{expand: true, pos: s.pos + 1, at: child})
		}
	}

	c.logger.Debug("decision tree built",
		zap.Int("nodes", t.Size()),
		zap.Int("leaves", len(t.Leaves())))
	return t, nil
}

func (c *Converter) branches(s step, states []string) []step {
	out := make([]step, len(states))
	for i, label := range states {
		j := i
		if c.reversePush {
			j = len(states) - 1 - i
		}
		out[j] = step{pos: s.pos, at: s.at, label: label}
	}
	return out
}

func (c *Converter) leafFactory(d *diagram.InfluenceDiagram) func() (*node.Node, error) {
	if utilities := d.UtilityNodes(); len(utilities) > 0 {
		template := utilities[0]
		return func() (*node.Node, error) {
			return template.Copy(), nil
		}
	}
	return func() (*node.Node, error) {
		return node.NewUtility(c.leafDescription, "U", nil)
	}
}
