// Package probability implements labeled probability tables over named
// discrete variables.
package probability

import (
	"strings"

	"decisionkit/internal/errors"
)

// Variable is a named discrete variable with ordered outcome labels
type Variable struct {
	Name   string   `json:"name"`
	Labels []string `json:"labels"`
}

// NewVariable normalizes name and copies labels
func NewVariable(name string, labels ...string) Variable {
	return Variable{
		Name:   NormalizeName(name),
		Labels: append([]string(nil), labels...),
	}
}

// NormalizeName collapses runs of whitespace to single spaces and trims the ends
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// Cardinality returns the number of labels
func (v Variable) Cardinality() int {
	return len(v.Labels)
}

// LabelIndex returns the position of label, or -1
func (v Variable) LabelIndex(label string) int {
	for i, l := range v.Labels {
		if l == label {
			return i
		}
	}
	return -1
}

func (v Variable) clone() Variable {
	return Variable{Name: v.Name, Labels: append([]string(nil), v.Labels...)}
}

func (v Variable) equal(o Variable) bool {
	if v.Name != o.Name || len(v.Labels) != len(o.Labels) {
		return false
	}
	for i := range v.Labels {
		if v.Labels[i] != o.Labels[i] {
			return false
		}
	}
	return true
}

// validateVariables normalizes names in place and checks that every variable
// describes exactly one non-empty dimension.
func validateVariables(vars []Variable) error {
	if len(vars) == 0 {
		return errors.Validation("dimensionality", "table needs at least one variable")
	}

	seen := make(map[string]bool, len(vars))
	for i := range vars {
		vars[i].Name = NormalizeName(vars[i].Name)
		v := vars[i]
		if v.Name == "" {
			return errors.Validationf("dimensionality", "variable %d has an empty name", i)
		}
		if seen[v.Name] {
			return errors.Validationf("dimensionality", "duplicate variable name %q", v.Name)
		}
		seen[v.Name] = true

		if len(v.Labels) == 0 {
			return errors.Validationf("dimensionality", "variable %q has no labels", v.Name)
		}
		labels := make(map[string]bool, len(v.Labels))
		for _, l := range v.Labels {
			if labels[l] {
				return errors.Validationf("dimensionality", "variable %q repeats label %q", v.Name, l)
			}
			labels[l] = true
		}
	}
	return nil
}
