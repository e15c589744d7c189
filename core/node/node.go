// Package node defines influence diagram nodes and the arcs between them.
//
// A node is exactly one of Decision, Uncertainty or Utility. The variant set
// is closed: Variant has an unexported method, and every operation that
// depends on the variant uses an exhaustive type switch.
package node

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"decisionkit/core/probability"
	"decisionkit/internal/errors"
)

// Kind names a node variant
type Kind int

const (
	// KindDecision is a choice made by the decision maker
	KindDecision Kind = iota
	// KindUncertainty is a chance variable with a probability table
	KindUncertainty
	// KindUtility is a value node ending every path
	KindUtility
)

// String returns the category name used in external records
func (k Kind) String() string {
	switch k {
	case KindDecision:
		return "decision"
	case KindUncertainty:
		return "uncertainty"
	case KindUtility:
		return "utility"
	default:
		return "unknown"
	}
}

// ParseKind maps a record category onto a Kind
func ParseKind(category string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(category)) {
	case "decision":
		return KindDecision, nil
	case "uncertainty":
		return KindUncertainty, nil
	case "utility":
		return KindUtility, nil
	default:
		return 0, errors.Validationf("category", "unknown node category %q", category)
	}
}

// Variant is the variant-specific payload of a node
type Variant interface {
	Kind() Kind
	states() []string
	clone() Variant
	validate() error
}

// Decision is a choice among ordered, unique alternatives
type Decision struct {
	Alternatives []string
}

// Kind implements Variant
func (d *Decision) Kind() Kind { return KindDecision }

func (d *Decision) states() []string {
	return append([]string{}, d.Alternatives...)
}

func (d *Decision) clone() Variant {
	return &Decision{Alternatives: append([]string(nil), d.Alternatives...)}
}

func (d *Decision) validate() error {
	seen := make(map[string]bool, len(d.Alternatives))
	for _, a := range d.Alternatives {
		if a == "" {
			return errors.Validation("alternatives", "decision alternatives must be non-empty")
		}
		if seen[a] {
			return errors.Validationf("alternatives", "duplicate alternative %q", a)
		}
		seen[a] = true
	}
	return nil
}

// Uncertainty is a chance variable; Probability is nil until assessed
type Uncertainty struct {
	Probability *probability.Table
}

// Kind implements Variant
func (u *Uncertainty) Kind() Kind { return KindUncertainty }

func (u *Uncertainty) states() []string {
	if u.Probability == nil {
		return []string{}
	}
	outcomes := u.Probability.Outcomes()
	states := make([]string, len(outcomes))
	for i, o := range outcomes {
		states[i] = strings.Join(o, ", ")
	}
	return states
}

func (u *Uncertainty) clone() Variant {
	if u.Probability == nil {
		return &Uncertainty{}
	}
	return &Uncertainty{Probability: u.Probability.Clone()}
}

func (u *Uncertainty) validate() error { return nil }

// Utility holds the value entries of a payoff node
type Utility struct {
	Values []float64
}

// Kind implements Variant
func (u *Utility) Kind() Kind { return KindUtility }

func (u *Utility) states() []string {
	states := make([]string, len(u.Values))
	for i, v := range u.Values {
		states[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return states
}

func (u *Utility) clone() Variant {
	return &Utility{Values: append([]float64(nil), u.Values...)}
}

func (u *Utility) validate() error { return nil }

// Node is a vertex of an influence diagram or decision tree
type Node struct {
	id          uuid.UUID
	Description string
	ShortName   string
	variant     Variant
}

// Option configures a node under construction
type Option func(*Node) error

// WithID restores a known identity; it must be a version 4 uuid
func WithID(id uuid.UUID) Option {
	return func(n *Node) error {
		if id.Version() != 4 || id.Variant() != uuid.RFC4122 {
			return errors.Validationf("id", "node id %s is not a uuid v4", id)
		}
		n.id = id
		return nil
	}
}

// WithIDString parses and restores a known identity
func WithIDString(id string) Option {
	return func(n *Node) error {
		parsed, err := uuid.Parse(id)
		if err != nil {
			return errors.Wrapf(errors.TypeValidation, err, "node id %q", id).WithContext("check", "id")
		}
		return WithID(parsed)(n)
	}
}

// New builds a node around variant
func New(description, shortName string, variant Variant, opts ...Option) (*Node, error) {
	if variant == nil {
		return nil, errors.Validation("variant", "node variant is required")
	}
	n := &Node{
		id:          uuid.New(),
		Description: strings.TrimSpace(description),
		ShortName:   strings.TrimSpace(shortName),
		variant:     variant,
	}
	if n.ShortName == "" {
		return nil, errors.Validation("shortname", "node shortname is required")
	}
	for _, opt := range opts {
		if err := opt(n); err != nil {
			return nil, err
		}
	}
	if err := variant.validate(); err != nil {
		return nil, err
	}
	return n, nil
}

// NewDecision builds a decision node
func NewDecision(description, shortName string, alternatives []string, opts ...Option) (*Node, error) {
	return New(description, shortName, &Decision{Alternatives: append([]string(nil), alternatives...)}, opts...)
}

// NewUncertainty builds an uncertainty node; table may be nil
func NewUncertainty(description, shortName string, table *probability.Table, opts ...Option) (*Node, error) {
	return New(description, shortName, &Uncertainty{Probability: table}, opts...)
}

// NewUtility builds a utility node
func NewUtility(description, shortName string, values []float64, opts ...Option) (*Node, error) {
	return New(description, shortName, &Utility{Values: append([]float64(nil), values...)}, opts...)
}

// ID returns the node identity
func (n *Node) ID() uuid.UUID {
	return n.id
}

// Kind returns the variant kind
func (n *Node) Kind() Kind {
	return n.variant.Kind()
}

// Variant returns the variant payload
func (n *Node) Variant() Variant {
	return n.variant
}

// IsDecisionNode reports whether n is a decision
func (n *Node) IsDecisionNode() bool {
	_, ok := n.variant.(*Decision)
	return ok
}

// IsUncertaintyNode reports whether n is an uncertainty
func (n *Node) IsUncertaintyNode() bool {
	_, ok := n.variant.(*Uncertainty)
	return ok
}

// IsUtilityNode reports whether n is a utility
func (n *Node) IsUtilityNode() bool {
	_, ok := n.variant.(*Utility)
	return ok
}

// States returns the alternatives, outcomes or utility entries of n.
// It is never nil.
func (n *Node) States() []string {
	return n.variant.states()
}

// SetAlternatives replaces a decision's alternatives
func (n *Node) SetAlternatives(alternatives []string) error {
	d, ok := n.variant.(*Decision)
	if !ok {
		return errors.Validationf("variant", "node %s is a %s node, not a decision", n.id, n.Kind())
	}
	next := &Decision{Alternatives: append([]string(nil), alternatives...)}
	if err := next.validate(); err != nil {
		return err
	}
	d.Alternatives = next.Alternatives
	return nil
}

// SetProbability replaces an uncertainty's table
func (n *Node) SetProbability(table *probability.Table) error {
	u, ok := n.variant.(*Uncertainty)
	if !ok {
		return errors.Validationf("variant", "node %s is a %s node, not an uncertainty", n.id, n.Kind())
	}
	u.Probability = table
	return nil
}

// Copy deep-copies n under a freshly minted identity
func (n *Node) Copy() *Node {
	return &Node{
		id:          uuid.New(),
		Description: n.Description,
		ShortName:   n.ShortName,
		variant:     n.variant.clone(),
	}
}

// String returns the shortname and kind
func (n *Node) String() string {
	return n.ShortName + " (" + n.Kind().String() + ")"
}
