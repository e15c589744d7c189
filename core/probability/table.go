package probability

import (
	"math"

	"decisionkit/internal/errors"
)

// Tolerance is the slack allowed when checking that a distribution sums to one
const Tolerance = 1e-6

// Kind distinguishes joint tables from conditional ones
type Kind int

const (
	// Unconditional tables treat every dimension symmetrically; the whole
	// array sums to one.
	Unconditional Kind = iota
	// Conditional tables describe the first variable given the rest.
	Conditional
)

// String returns kind name
func (k Kind) String() string {
	switch k {
	case Unconditional:
		return "unconditional"
	case Conditional:
		return "conditional"
	default:
		return "unknown"
	}
}

// ParseKind parses the output of Kind.String
func ParseKind(s string) (Kind, error) {
	switch s {
	case "unconditional":
		return Unconditional, nil
	case "conditional":
		return Conditional, nil
	default:
		return 0, errors.Validationf("dimensionality", "unknown table kind %q", s)
	}
}

// Outcome is one labeled cell coordinate; it has a single entry for
// conditional and one-dimensional tables.
type Outcome []string

// Table maps every combination of variable labels to a probability.
// Values are stored row-major; NaN marks an unknown cell.
type Table struct {
	kind      Kind
	variables []Variable
	values    []float64
}

// New validates and builds a table. variables and values are copied.
func New(kind Kind, variables []Variable, values []float64) (*Table, error) {
	if kind != Unconditional && kind != Conditional {
		return nil, errors.Validationf("dimensionality", "unknown table kind %d", int(kind))
	}

	vars := make([]Variable, len(variables))
	for i, v := range variables {
		vars[i] = v.clone()
	}
	if err := validateVariables(vars); err != nil {
		return nil, err
	}

	t := &Table{
		kind:      kind,
		variables: vars,
		values:    append([]float64(nil), values...),
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// NewUnconditional builds a joint table
func NewUnconditional(variables []Variable, values []float64) (*Table, error) {
	return New(Unconditional, variables, values)
}

// NewConditional builds a table of variables[0] given variables[1:]
func NewConditional(variables []Variable, values []float64) (*Table, error) {
	return New(Conditional, variables, values)
}

// InitializeNaN builds an all-unknown table
func InitializeNaN(kind Kind, variables []Variable) (*Table, error) {
	values := make([]float64, cellCount(variables))
	for i := range values {
		values[i] = math.NaN()
	}
	return New(kind, variables, values)
}

// InitializeUniform builds a table with every distribution uniform
func InitializeUniform(kind Kind, variables []Variable) (*Table, error) {
	n := cellCount(variables)
	if n == 0 {
		return New(kind, variables, nil)
	}
	p := 1 / float64(n)
	if kind == Conditional {
		p = 1 / float64(len(variables[0].Labels))
	}
	values := make([]float64, n)
	for i := range values {
		values[i] = p
	}
	return New(kind, variables, values)
}

func cellCount(variables []Variable) int {
	if len(variables) == 0 {
		return 0
	}
	n := 1
	for _, v := range variables {
		n *= len(v.Labels)
	}
	return n
}

func (t *Table) validate() error {
	expected := cellCount(t.variables)
	if len(t.values) != expected {
		return errors.Validationf("shape",
			"value array has %d cells, variables declare %v (%d cells)", len(t.values), t.Shape(), expected)
	}

	unknown := 0
	for i, v := range t.values {
		if math.IsNaN(v) {
			unknown++
			continue
		}
		if v < 0 || v > 1 {
			return errors.Validationf("bounds", "cell %d = %g outside [0,1]", i, v)
		}
	}
	if unknown == len(t.values) {
		return nil
	}
	if unknown > 0 {
		return errors.Validationf("bounds", "%d of %d cells are unknown; a table is either fully known or fully unknown",
			unknown, len(t.values))
	}

	for r, sum := range t.axisSums() {
		if math.Abs(sum-1) > Tolerance {
			return errors.Validationf("normalization",
				"distribution %d of %q sums to %g", r, t.variables[0].Name, sum).
				WithContext("sum", sum)
		}
	}
	return nil
}

// axisSums returns, per conditioning combination, the sum over the
// conditioned axis. Unconditional tables have a single sum.
func (t *Table) axisSums() []float64 {
	if t.kind == Unconditional {
		sum := 0.0
		for _, v := range t.values {
			sum += v
		}
		return []float64{sum}
	}

	k := len(t.variables[0].Labels)
	inner := len(t.values) / k
	sums := make([]float64, inner)
	for i := 0; i < k; i++ {
		for r := 0; r < inner; r++ {
			sums[r] += t.values[i*inner+r]
		}
	}
	return sums
}

// Kind returns the table variant
func (t *Table) Kind() Kind {
	return t.kind
}

// Variables returns a copy of the variables in dimension order
func (t *Table) Variables() []Variable {
	out := make([]Variable, len(t.variables))
	for i, v := range t.variables {
		out[i] = v.clone()
	}
	return out
}

// Shape returns the cardinality of each dimension
func (t *Table) Shape() []int {
	shape := make([]int, len(t.variables))
	for i, v := range t.variables {
		shape[i] = len(v.Labels)
	}
	return shape
}

// Values returns a copy of the row-major value array
func (t *Table) Values() []float64 {
	return append([]float64(nil), t.values...)
}

// IsUnknown reports whether every cell is the unknown sentinel
func (t *Table) IsUnknown() bool {
	for _, v := range t.values {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}

// Outcomes lists the conditioned variable's labels for conditional and
// one-dimensional tables, and the Cartesian product of all labels for
// multi-dimensional joint tables.
func (t *Table) Outcomes() []Outcome {
	if t.kind == Conditional || len(t.variables) == 1 {
		out := make([]Outcome, len(t.variables[0].Labels))
		for i, l := range t.variables[0].Labels {
			out[i] = Outcome{l}
		}
		return out
	}

	out := make([]Outcome, 0, len(t.values))
	idx := make([]int, len(t.variables))
	for range t.values {
		o := make(Outcome, len(idx))
		for d, i := range idx {
			o[d] = t.variables[d].Labels[i]
		}
		out = append(out, o)
		increment(idx, t.Shape())
	}
	return out
}

// increment advances a row-major multi-index; it wraps to zero after the last cell
func increment(idx, shape []int) {
	for d := len(idx) - 1; d >= 0; d-- {
		idx[d]++
		if idx[d] < shape[d] {
			return
		}
		idx[d] = 0
	}
}

func (t *Table) strides() []int {
	strides := make([]int, len(t.variables))
	s := 1
	for d := len(t.variables) - 1; d >= 0; d-- {
		strides[d] = s
		s *= len(t.variables[d].Labels)
	}
	return strides
}

func (t *Table) dimension(name string) int {
	for d, v := range t.variables {
		if v.Name == name {
			return d
		}
	}
	return -1
}

// Distribution is the sub-array left after fixing some dimensions
type Distribution struct {
	Variables []Variable
	Values    []float64
}

// Scalar returns the value when every dimension was fixed
func (d *Distribution) Scalar() (float64, bool) {
	if len(d.Variables) != 0 || len(d.Values) != 1 {
		return 0, false
	}
	return d.Values[0], true
}

// GetDistribution fixes the named dimensions to the given labels and returns
// what remains, in the original dimension order.
func (t *Table) GetDistribution(fixed map[string]string) (*Distribution, error) {
	pinned := make([]int, len(t.variables))
	for d := range pinned {
		pinned[d] = -1
	}
	for name, label := range fixed {
		d := t.dimension(NormalizeName(name))
		if d < 0 {
			return nil, errors.Validationf("dimensionality", "table has no variable %q", name)
		}
		i := t.variables[d].LabelIndex(label)
		if i < 0 {
			return nil, errors.Validationf("dimensionality", "variable %q has no label %q", name, label)
		}
		pinned[d] = i
	}

	var free []int
	dist := &Distribution{}
	for d, i := range pinned {
		if i < 0 {
			free = append(free, d)
			dist.Variables = append(dist.Variables, t.variables[d].clone())
		}
	}

	strides := t.strides()
	base := 0
	for d, i := range pinned {
		if i >= 0 {
			base += i * strides[d]
		}
	}

	shape := make([]int, len(free))
	n := 1
	for j, d := range free {
		shape[j] = len(t.variables[d].Labels)
		n *= shape[j]
	}
	idx := make([]int, len(free))
	dist.Values = make([]float64, 0, n)
	for c := 0; c < n; c++ {
		off := base
		for j, d := range free {
			off += idx[j] * strides[d]
		}
		dist.Values = append(dist.Values, t.values[off])
		increment(idx, shape)
	}
	return dist, nil
}

// ReplaceVariable swaps the dimension named v.Name for v together with a new
// value array, re-validating the whole table. On failure t is unchanged.
func (t *Table) ReplaceVariable(v Variable, values []float64) error {
	d := t.dimension(NormalizeName(v.Name))
	if d < 0 {
		return errors.Validationf("dimensionality", "table has no variable %q", v.Name)
	}

	next := &Table{
		kind:      t.kind,
		variables: t.Variables(),
		values:    append([]float64(nil), values...),
	}
	next.variables[d] = v.clone()
	if err := validateVariables(next.variables); err != nil {
		return err
	}
	if err := next.validate(); err != nil {
		return err
	}
	*t = *next
	return nil
}

// AddOutcome appends label to the named variable. Existing assessments do
// not cover the new outcome, so the table becomes all-unknown.
func (t *Table) AddOutcome(variable, label string) error {
	d := t.dimension(NormalizeName(variable))
	if d < 0 {
		return errors.Validationf("dimensionality", "table has no variable %q", variable)
	}
	v := t.variables[d].clone()
	v.Labels = append(v.Labels, label)

	n := len(t.values) / len(t.variables[d].Labels) * len(v.Labels)
	values := make([]float64, n)
	for i := range values {
		values[i] = math.NaN()
	}
	return t.ReplaceVariable(v, values)
}

// Clone returns a deep copy
func (t *Table) Clone() *Table {
	return &Table{
		kind:      t.kind,
		variables: t.Variables(),
		values:    t.Values(),
	}
}

// Equal compares kind, variables and values; unknown cells compare equal
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.kind != o.kind || len(t.variables) != len(o.variables) || len(t.values) != len(o.values) {
		return false
	}
	for i := range t.variables {
		if !t.variables[i].equal(o.variables[i]) {
			return false
		}
	}
	for i := range t.values {
		a, b := t.values[i], o.values[i]
		if math.IsNaN(a) && math.IsNaN(b) {
			continue
		}
		if a != b {
			return false
		}
	}
	return true
}
