package mep

import (
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"decisionkit/internal/errors"
)

// relational operator of a constraint source
type relop string

const (
	relEq relop = "="
	relLe relop = "<="
	relGe relop = ">="
)

// CompileConstraint turns a constraint such as "P00 + P01 >= 2 * P11" into
// an expression with "== 0" or ">= 0" semantics. The source must contain
// exactly one of =, <= or >=. Cell codes of layout and the layout's tag
// (the sum of every cell) may appear, combined with + - * /, parentheses,
// numeric literals and sum(...).
func CompileConstraint(src string, layout *Layout) (*Constraint, error) {
	op, at, err := findRelation(src)
	if err != nil {
		return nil, err
	}
	lhsSrc, rhsSrc := src[:at], src[at+len(op):]

	c := &compiler{layout: layout, src: src}
	lhs, err := c.side(lhsSrc)
	if err != nil {
		return nil, err
	}
	rhs, err := c.side(rhsSrc)
	if err != nil {
		return nil, err
	}

	out := &Constraint{Source: strings.TrimSpace(src)}
	switch op {
	case relEq:
		out.Relation = EqualZero
		out.Expr = Binary{Op: OpSub, L: lhs, R: rhs}
	case relGe:
		out.Relation = AtLeastZero
		out.Expr = Binary{Op: OpSub, L: lhs, R: rhs}
	case relLe:
		out.Relation = AtLeastZero
		out.Expr = Neg{X: Binary{Op: OpSub, L: lhs, R: rhs}}
	}
	return out, nil
}

// findRelation locates the single relational operator in src
func findRelation(src string) (relop, int, error) {
	var (
		found []relop
		at    int
	)
	for i := 0; i < len(src); i++ {
		switch {
		case strings.HasPrefix(src[i:], "<="):
			found, at = append(found, relLe), i
			i++
		case strings.HasPrefix(src[i:], ">="):
			found, at = append(found, relGe), i
			i++
		case src[i] == '=':
			found, at = append(found, relEq), i
		case src[i] == '<' || src[i] == '>':
			return "", 0, errors.Configf("constraint %q: strict comparison %q is not supported", src, string(src[i]))
		}
	}
	if len(found) != 1 {
		return "", 0, errors.Configf("constraint %q must contain exactly one of =, <=, >= (found %d)", src, len(found)).
			WithContext("constraint", src)
	}
	return found[0], at, nil
}

type compiler struct {
	layout *Layout
	src    string
}

func (c *compiler) side(src string) (Expr, error) {
	if strings.TrimSpace(src) == "" {
		return nil, errors.Configf("constraint %q has an empty side", c.src)
	}
	expr, diags := hclsyntax.ParseExpression([]byte(spaceMinus(src)), "constraint", hcl.Pos{Line: 1, Column: 1, Byte: 0})
	if diags.HasErrors() {
		return nil, errors.Wrapf(errors.TypeConfig, diags, "constraint %q does not parse", c.src)
	}
	return c.lower(expr)
}

func (c *compiler) lower(e hclsyntax.Expression) (Expr, error) {
	switch e := e.(type) {
	case *hclsyntax.LiteralValueExpr:
		if e.Val.IsNull() || !e.Val.IsKnown() || e.Val.Type() != cty.Number {
			return nil, errors.Configf("constraint %q: only numeric literals are allowed", c.src)
		}
		f, _ := e.Val.AsBigFloat().Float64()
		return Const(f), nil

	case *hclsyntax.ScopeTraversalExpr:
		if len(e.Traversal) != 1 {
			return nil, errors.Configf("constraint %q: attribute or index access is not allowed", c.src)
		}
		name := e.Traversal.RootName()
		if name == c.layout.Tag {
			return Aggregate{Symbol: name}, nil
		}
		if i, ok := c.layout.Index(name); ok {
			return Cell{Index: i, Code: name}, nil
		}
		return nil, errors.Configf("constraint %q references unknown cell %q", c.src, name)

	case *hclsyntax.ParenthesesExpr:
		return c.lower(e.Expression)

	case *hclsyntax.UnaryOpExpr:
		if e.Op != hclsyntax.OpNegate {
			return nil, errors.Configf("constraint %q: unsupported unary operator", c.src)
		}
		x, err := c.lower(e.Val)
		if err != nil {
			return nil, err
		}
		return Neg{X: x}, nil

	case *hclsyntax.BinaryOpExpr:
		var op Op
		switch e.Op {
		case hclsyntax.OpAdd:
			op = OpAdd
		case hclsyntax.OpSubtract:
			op = OpSub
		case hclsyntax.OpMultiply:
			op = OpMul
		case hclsyntax.OpDivide:
			op = OpDiv
		default:
			return nil, errors.Configf("constraint %q: only + - * / are allowed", c.src)
		}
		l, err := c.lower(e.LHS)
		if err != nil {
			return nil, err
		}
		r, err := c.lower(e.RHS)
		if err != nil {
			return nil, err
		}
		return Binary{Op: op, L: l, R: r}, nil

	case *hclsyntax.FunctionCallExpr:
		if e.Name != "sum" {
			return nil, errors.Configf("constraint %q: unknown function %q", c.src, e.Name)
		}
		terms := make(Sum, 0, len(e.Args))
		for _, arg := range e.Args {
			t, err := c.lower(arg)
			if err != nil {
				return nil, err
			}
			terms = append(terms, t)
		}
		return terms, nil

	default:
		return nil, errors.Configf("constraint %q: unsupported expression %T", c.src, e)
	}
}

// spaceMinus separates subtraction signs from the operands around them.
// HCL identifiers may contain '-', so "P00-P01" would otherwise lex as one
// name. Exponent signs such as 1e-3 are left alone.
func spaceMinus(src string) string {
	var b strings.Builder
	b.Grow(len(src) + 8)
	for i := 0; i < len(src); i++ {
		ch := src[i]
		if ch == '-' && !isExponentSign(src, i) {
			b.WriteString(" - ")
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}

func isExponentSign(src string, i int) bool {
	if i < 2 || (src[i-1] != 'e' && src[i-1] != 'E') {
		return false
	}
	prev := src[i-2]
	if prev != '.' && (prev < '0' || prev > '9') {
		return false
	}
	// walk back over the mantissa; it must not be the tail of an identifier
	j := i - 2
	for j >= 0 && (src[j] == '.' || (src[j] >= '0' && src[j] <= '9')) {
		j--
	}
	return j < 0 || !isIdentByte(src[j])
}

func isIdentByte(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}
