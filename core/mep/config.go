// Package mep estimates joint probability distributions from partial
// assessments under the maximum entropy principle.
//
// A joint distribution over n discrete variables is a vector of cells named
// by fixed-width codes (P00, P01, ...). Assessments pin sums of cells
// selected by patterns with '.' wildcards; further equality and inequality
// constraints are written as algebraic strings over cell codes.
package mep

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"decisionkit/internal/errors"
)

// Config is the full input of a solve
type Config struct {
	// JointDistributions lists every joint cell code, in vector order
	JointDistributions []string `json:"joint_distributions" yaml:"joint_distributions" validate:"required,min=1,dive,required"`

	// Assessments maps cell patterns to their assessed probability
	Assessments map[string]float64 `json:"assessments" yaml:"assessments" validate:"dive,gte=0,lte=1"`

	// Equality holds constraints of the form lhs = rhs
	Equality []string `json:"equality,omitempty" yaml:"equality,omitempty" validate:"dive,required"`

	// Inequality holds constraints of the form lhs <= rhs or lhs >= rhs
	Inequality []string `json:"inequality,omitempty" yaml:"inequality,omitempty" validate:"dive,required"`

	// ConditionedVariables lists the digit positions divided out by the
	// joint-to-conditional post-processing step
	ConditionedVariables []int `json:"conditioned_variables,omitempty" yaml:"conditioned_variables,omitempty" validate:"unique,dive,gte=0"`

	// Minimization tunes the optimizer's starting point and box
	Minimization Minimization `json:"minimization" yaml:"minimization"`
}

// Minimization holds the optional initial guess and per-cell bounds
type Minimization struct {
	InitialGuess map[string]float64   `json:"initial_guess,omitempty" yaml:"initial_guess,omitempty" validate:"dive,gte=0,lte=1"`
	Bounds       map[string][]float64 `json:"bounds,omitempty" yaml:"bounds,omitempty" validate:"dive,len=2"`
}

var validate = validator.New()

// LoadConfig reads a JSON or YAML configuration, chosen by file extension
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.TypeParsing, "failed to read MEP config", err).WithContext("path", path)
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.Parsing("failed to decode MEP configuration "+path, err)
	}
	return cfg, nil
}

// Problem is a validated configuration compiled for the optimizer
type Problem struct {
	Layout      *Layout
	Equality    []*Constraint
	Inequality  []*Constraint
	Lower       []float64
	Upper       []float64
	Initial     []float64
	Conditioned []int
}

// Validate runs every check of the validation gate without compiling
func (c *Config) Validate() error {
	_, err := c.Compile()
	return err
}

// Compile validates c and builds the optimization problem. Any failure is a
// configuration error and nothing is solved.
func (c *Config) Compile() (*Problem, error) {
	if err := validate.Struct(c); err != nil {
		return nil, errors.Wrap(errors.TypeConfig, "malformed MEP configuration", err)
	}

	layout, err := NewLayout(c.JointDistributions)
	if err != nil {
		return nil, err
	}
	p := &Problem{Layout: layout}

	for _, pattern := range sortedKeys(c.Assessments) {
		cells, err := layout.Match(pattern)
		if err != nil {
			return nil, err
		}
		p.Equality = append(p.Equality, assessmentConstraint(pattern, cells, layout, c.Assessments[pattern]))
	}
	p.Equality = append(p.Equality, &Constraint{
		Source:   layout.Tag + " = 1",
		Relation: EqualZero,
		Expr:     Binary{Op: OpSub, L: Aggregate{Symbol: layout.Tag}, R: Const(1)},
	})

	for _, src := range c.Equality {
		con, err := CompileConstraint(src, layout)
		if err != nil {
			return nil, err
		}
		if con.Relation != EqualZero {
			return nil, errors.Configf("equality constraint %q uses an inequality operator", src)
		}
		p.Equality = append(p.Equality, con)
	}
	for _, src := range c.Inequality {
		con, err := CompileConstraint(src, layout)
		if err != nil {
			return nil, err
		}
		if con.Relation != AtLeastZero {
			return nil, errors.Configf("inequality constraint %q must use <= or >=", src)
		}
		p.Inequality = append(p.Inequality, con)
	}

	seen := make(map[int]bool, len(c.ConditionedVariables))
	for _, pos := range c.ConditionedVariables {
		if pos < 0 || pos >= layout.Width {
			return nil, errors.Configf("conditioned variable %d out of range [0,%d)", pos, layout.Width)
		}
		if seen[pos] {
			return nil, errors.Configf("conditioned variable %d listed twice", pos)
		}
		seen[pos] = true
	}
	p.Conditioned = append([]int(nil), c.ConditionedVariables...)

	if p.Lower, p.Upper, err = c.bounds(layout); err != nil {
		return nil, err
	}
	if p.Initial, err = c.initialGuess(layout); err != nil {
		return nil, err
	}
	return p, nil
}

func assessmentConstraint(pattern string, cells []int, layout *Layout, value float64) *Constraint {
	terms := make(Sum, len(cells))
	for i, idx := range cells {
		terms[i] = Cell{Index: idx, Code: layout.Codes[idx]}
	}
	return &Constraint{
		Source:   pattern + " = " + Const(value).String(),
		Relation: EqualZero,
		Expr:     Binary{Op: OpSub, L: terms, R: Const(value)},
	}
}

func (c *Config) bounds(layout *Layout) ([]float64, []float64, error) {
	n := layout.Size()
	lower, upper := make([]float64, n), make([]float64, n)
	for i := range upper {
		upper[i] = 1
	}
	if c.Minimization.Bounds == nil {
		return lower, upper, nil
	}
	if err := sameKeys("bounds", c.Minimization.Bounds, layout); err != nil {
		return nil, nil, err
	}
	for code, b := range c.Minimization.Bounds {
		if len(b) != 2 {
			return nil, nil, errors.Configf("bounds for %s must be a [low, high] pair", code)
		}
		lo, hi := b[0], b[1]
		if lo < 0 || hi > 1 || lo > hi {
			return nil, nil, errors.Configf("bounds for %s = [%g, %g] must satisfy 0 <= low <= high <= 1", code, lo, hi)
		}
		i, _ := layout.Index(code)
		lower[i], upper[i] = lo, hi
	}
	return lower, upper, nil
}

func (c *Config) initialGuess(layout *Layout) ([]float64, error) {
	n := layout.Size()
	x0 := make([]float64, n)
	if c.Minimization.InitialGuess == nil {
		for i := range x0 {
			x0[i] = 1 / float64(n)
		}
		return x0, nil
	}
	if err := sameKeys("initial_guess", c.Minimization.InitialGuess, layout); err != nil {
		return nil, err
	}
	for code, v := range c.Minimization.InitialGuess {
		if v < 0 || v > 1 {
			return nil, errors.Configf("initial guess for %s = %g outside [0,1]", code, v)
		}
		i, _ := layout.Index(code)
		x0[i] = v
	}
	return x0, nil
}

func sameKeys[V any](field string, m map[string]V, layout *Layout) error {
	for code := range m {
		if _, ok := layout.Index(code); !ok {
			return errors.Configf("%s names unknown cell %q", field, code)
		}
	}
	if len(m) != layout.Size() {
		return errors.Configf("%s covers %d of %d cells", field, len(m), layout.Size())
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
