package diagram

import (
	"github.com/google/uuid"

	"decisionkit/core/node"
	"decisionkit/core/probability"
	"decisionkit/internal/errors"
)

// NodeRecord is the plain form of a node exchanged with storage, transport
// and Bayesian-network exporters
type NodeRecord struct {
	ID           string             `json:"id,omitempty"`
	Category     string             `json:"category"`
	Description  string             `json:"description"`
	ShortName    string             `json:"shortname"`
	Alternatives []string           `json:"alternatives,omitempty"`
	Probability  *probability.Table `json:"probability,omitempty"`
	Values       []float64          `json:"values,omitempty"`
}

// ArcRecord is the plain form of an arc. Tail and Head hold node ids or,
// when unambiguous, node shortnames.
type ArcRecord struct {
	ID    string `json:"id,omitempty"`
	Tail  string `json:"tail"`
	Head  string `json:"head"`
	Type  string `json:"type,omitempty"`
	Label string `json:"label,omitempty"`
}

// Records is the plain form of a whole diagram
type Records struct {
	Nodes []NodeRecord `json:"nodes"`
	Arcs  []ArcRecord  `json:"arcs"`
}

// FromRecords builds a diagram from plain records. Arc identities are minted
// anew; node identities are kept when supplied.
func FromRecords(r Records) (*InfluenceDiagram, error) {
	d := New()
	byShortName := make(map[string][]*node.Node)

	for i, rec := range r.Nodes {
		n, err := nodeFromRecord(rec)
		if err != nil {
			return nil, errors.Wrapf(errors.TypeValidation, err, "node record %d (%s)", i, rec.ShortName)
		}
		if err := d.AddNode(n); err != nil {
			return nil, err
		}
		byShortName[n.ShortName] = append(byShortName[n.ShortName], n)
	}

	resolve := func(ref string) (*node.Node, error) {
		if id, err := uuid.Parse(ref); err == nil {
			return d.Node(id)
		}
		matches := byShortName[ref]
		switch len(matches) {
		case 0:
			return nil, errors.NotFound("node", ref)
		case 1:
			return matches[0], nil
		default:
			return nil, errors.Validationf("reference", "shortname %q names %d nodes; reference by id", ref, len(matches))
		}
	}

	for i, rec := range r.Arcs {
		tail, err := resolve(rec.Tail)
		if err != nil {
			return nil, errors.Wrapf(errors.TypeValidation, err, "arc record %d tail", i)
		}
		head, err := resolve(rec.Head)
		if err != nil {
			return nil, errors.Wrapf(errors.TypeValidation, err, "arc record %d head", i)
		}
		if _, err := d.g.Connect(tail, head, rec.Label); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func nodeFromRecord(rec NodeRecord) (*node.Node, error) {
	kind, err := node.ParseKind(rec.Category)
	if err != nil {
		return nil, err
	}

	var opts []node.Option
	if rec.ID != "" {
		opts = append(opts, node.WithIDString(rec.ID))
	}

	switch kind {
	case node.KindDecision:
		return node.NewDecision(rec.Description, rec.ShortName, rec.Alternatives, opts...)
	case node.KindUncertainty:
		return node.NewUncertainty(rec.Description, rec.ShortName, rec.Probability, opts...)
	case node.KindUtility:
		return node.NewUtility(rec.Description, rec.ShortName, rec.Values, opts...)
	default:
		return nil, errors.Validationf("category", "unhandled node kind %s", kind)
	}
}

// Records exports the diagram's nodes, arcs and probability tables
func (d *InfluenceDiagram) Records() Records {
	nodes := d.g.Nodes()
	arcs := d.g.Arcs()
	r := Records{
		Nodes: make([]NodeRecord, 0, len(nodes)),
		Arcs:  make([]ArcRecord, 0, len(arcs)),
	}
	for _, n := range nodes {
		r.Nodes = append(r.Nodes, NodeToRecord(n))
	}
	for _, a := range arcs {
		r.Arcs = append(r.Arcs, ArcToRecord(a))
	}
	return r
}

// NodeToRecord converts n to its plain form
func NodeToRecord(n *node.Node) NodeRecord {
	rec := NodeRecord{
		ID:          n.ID().String(),
		Category:    n.Kind().String(),
		Description: n.Description,
		ShortName:   n.ShortName,
	}
	switch v := n.Variant().(type) {
	case *node.Decision:
		rec.Alternatives = append([]string(nil), v.Alternatives...)
	case *node.Uncertainty:
		if v.Probability != nil {
			rec.Probability = v.Probability.Clone()
		}
	case *node.Utility:
		rec.Values = append([]float64(nil), v.Values...)
	}
	return rec
}

// ArcToRecord converts a to its plain form
func ArcToRecord(a *node.Arc) ArcRecord {
	return ArcRecord{
		ID:    a.ID().String(),
		Tail:  a.Tail().ID().String(),
		Head:  a.Head().ID().String(),
		Type:  a.DType().String(),
		Label: a.Label,
	}
}
