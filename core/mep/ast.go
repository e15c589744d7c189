package mep

import (
	"strconv"
	"strings"
)

// Expr is a node of a compiled constraint expression over the cell vector
type Expr interface {
	// Eval computes the expression at x
	Eval(x []float64) float64
	// Grad adds scale times the gradient at x into g
	Grad(x []float64, scale float64, g []float64)
	String() string
}

// Const is a numeric literal
type Const float64

// Eval implements Expr
func (c Const) Eval([]float64) float64 { return float64(c) }

// Grad implements Expr
func (c Const) Grad([]float64, float64, []float64) {}

func (c Const) String() string { return strconv.FormatFloat(float64(c), 'g', -1, 64) }

// Cell references one joint cell
type Cell struct {
	Index int
	Code  string
}

// Eval implements Expr
func (c Cell) Eval(x []float64) float64 { return x[c.Index] }

// Grad implements Expr
func (c Cell) Grad(_ []float64, scale float64, g []float64) { g[c.Index] += scale }

func (c Cell) String() string { return c.Code }

// Aggregate is the whole vector, evaluated as the sum of its cells
type Aggregate struct {
	Symbol string
}

// Eval implements Expr
func (a Aggregate) Eval(x []float64) float64 {
	sum := 0.0
	for _, v := range x {
		sum += v
	}
	return sum
}

// Grad implements Expr
func (a Aggregate) Grad(_ []float64, scale float64, g []float64) {
	for i := range g {
		g[i] += scale
	}
}

func (a Aggregate) String() string { return a.Symbol }

// Sum adds its terms
type Sum []Expr

// Eval implements Expr
func (s Sum) Eval(x []float64) float64 {
	total := 0.0
	for _, e := range s {
		total += e.Eval(x)
	}
	return total
}

// Grad implements Expr
func (s Sum) Grad(x []float64, scale float64, g []float64) {
	for _, e := range s {
		e.Grad(x, scale, g)
	}
}

func (s Sum) String() string {
	parts := make([]string, len(s))
	for i, e := range s {
		parts[i] = e.String()
	}
	return "sum(" + strings.Join(parts, ", ") + ")"
}

// Neg negates its operand
type Neg struct {
	X Expr
}

// Eval implements Expr
func (n Neg) Eval(x []float64) float64 { return -n.X.Eval(x) }

// Grad implements Expr
func (n Neg) Grad(x []float64, scale float64, g []float64) { n.X.Grad(x, -scale, g) }

func (n Neg) String() string { return "-" + n.X.String() }

// Op is an arithmetic operator
type Op byte

const (
	// OpAdd adds both operands
	OpAdd Op = '+'
	// OpSub subtracts the right operand
	OpSub Op = '-'
	// OpMul multiplies both operands
	OpMul Op = '*'
	// OpDiv divides by the right operand
	OpDiv Op = '/'
)

// Binary applies an arithmetic operator
type Binary struct {
	Op   Op
	L, R Expr
}

// Eval implements Expr
func (b Binary) Eval(x []float64) float64 {
	l, r := b.L.Eval(x), b.R.Eval(x)
	switch b.Op {
	case OpAdd:
		return l + r
	case OpSub:
		return l - r
	case OpMul:
		return l * r
	case OpDiv:
		return l / r
	default:
		panic("mep: unknown operator " + string(b.Op))
	}
}

// Grad implements Expr
func (b Binary) Grad(x []float64, scale float64, g []float64) {
	switch b.Op {
	case OpAdd:
		b.L.Grad(x, scale, g)
		b.R.Grad(x, scale, g)
	case OpSub:
		b.L.Grad(x, scale, g)
		b.R.Grad(x, -scale, g)
	case OpMul:
		l, r := b.L.Eval(x), b.R.Eval(x)
		b.L.Grad(x, scale*r, g)
		b.R.Grad(x, scale*l, g)
	case OpDiv:
		l, r := b.L.Eval(x), b.R.Eval(x)
		b.L.Grad(x, scale/r, g)
		b.R.Grad(x, -scale*l/(r*r), g)
	default:
		panic("mep: unknown operator " + string(b.Op))
	}
}

func (b Binary) String() string {
	return "(" + b.L.String() + " " + string(b.Op) + " " + b.R.String() + ")"
}

// Relation is the comparison a constraint enforces against zero
type Relation int

const (
	// EqualZero requires Expr(x) == 0
	EqualZero Relation = iota
	// AtLeastZero requires Expr(x) >= 0
	AtLeastZero
)

// Constraint is a compiled equality or inequality
type Constraint struct {
	Source   string
	Relation Relation
	Expr     Expr
}

// Value evaluates the constraint function at x
func (c *Constraint) Value(x []float64) float64 {
	return c.Expr.Eval(x)
}

// Violation returns how far x is from satisfying the constraint
func (c *Constraint) Violation(x []float64) float64 {
	v := c.Expr.Eval(x)
	if c.Relation == AtLeastZero {
		if v >= 0 {
			return 0
		}
		return -v
	}
	if v < 0 {
		return -v
	}
	return v
}
