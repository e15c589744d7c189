package node

import (
	"github.com/google/uuid"

	"decisionkit/internal/errors"
)

// DType classifies an arc by the variant of its head
type DType int

const (
	DTypeNone DType = iota
	DTypeInformational
	DTypeConditional
	DTypeFunctional
)

// String returns the arc type name
func (t DType) String() string {
	switch t {
	case DTypeInformational:
		return "informational"
	case DTypeConditional:
		return "conditional"
	case DTypeFunctional:
		return "functional"
	default:
		return "none"
	}
}

// Arc is a directed, labeled edge from Tail to Head
type Arc struct {
	id    uuid.UUID
	tail  *Node
	head  *Node
	Label string
}

// NewArc builds an arc; a utility tail may only feed another utility
func NewArc(tail, head *Node, label string) (*Arc, error) {
	if err := checkSuccessor(tail, head); err != nil {
		return nil, err
	}
	return &Arc{id: uuid.New(), tail: tail, head: head, Label: label}, nil
}

// ID returns the arc identity
func (a *Arc) ID() uuid.UUID {
	return a.id
}

// Tail returns the source node
func (a *Arc) Tail() *Node {
	return a.tail
}

// Head returns the target node
func (a *Arc) Head() *Node {
	return a.head
}

// SetTail re-points the arc's source
func (a *Arc) SetTail(tail *Node) error {
	if err := checkSuccessor(tail, a.head); err != nil {
		return err
	}
	a.tail = tail
	return nil
}

// SetHead re-points the arc's target
func (a *Arc) SetHead(head *Node) error {
	if err := checkSuccessor(a.tail, head); err != nil {
		return err
	}
	a.head = head
	return nil
}

// DType derives the arc type from the head's variant
func (a *Arc) DType() DType {
	if a.head == nil {
		return DTypeNone
	}
	switch a.head.variant.(type) {
	case *Decision:
		return DTypeInformational
	case *Uncertainty:
		return DTypeConditional
	case *Utility:
		return DTypeFunctional
	default:
		return DTypeNone
	}
}

// Copy returns an arc with a new identity between the same endpoints
func (a *Arc) Copy() *Arc {
	return &Arc{id: uuid.New(), tail: a.tail, head: a.head, Label: a.Label}
}

func checkSuccessor(tail, head *Node) error {
	if tail == nil || head == nil {
		return nil
	}
	if tail.IsUtilityNode() && !head.IsUtilityNode() {
		return errors.Validationf("utility-successor",
			"utility node %s cannot precede %s node %s", tail.id, head.Kind(), head.id).
			WithContext("tail", tail.id.String()).
			WithContext("head", head.id.String())
	}
	return nil
}
