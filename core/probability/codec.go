package probability

import (
	"encoding/json"
	"math"

	"decisionkit/internal/errors"
)

// wireTable is the external representation: values nest one array level per
// variable and unknown cells encode as null.
type wireTable struct {
	Kind      string          `json:"kind"`
	Variables []Variable      `json:"variables"`
	Values    json.RawMessage `json:"values"`
}

// MarshalJSON implements json.Marshaler
func (t *Table) MarshalJSON() ([]byte, error) {
	nested := t.nest(0, 0, t.strides())
	values, err := json.Marshal(nested)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireTable{
		Kind:      t.kind.String(),
		Variables: t.variables,
		Values:    values,
	})
}

func (t *Table) nest(depth, offset int, strides []int) interface{} {
	if depth == len(t.variables) {
		v := t.values[offset]
		if math.IsNaN(v) {
			return nil
		}
		return v
	}
	out := make([]interface{}, len(t.variables[depth].Labels))
	for i := range out {
		out[i] = t.nest(depth+1, offset+i*strides[depth], strides)
	}
	return out
}

// UnmarshalJSON implements json.Unmarshaler; the decoded table is validated
// exactly like one built with New.
func (t *Table) UnmarshalJSON(data []byte) error {
	var w wireTable
	if err := json.Unmarshal(data, &w); err != nil {
		return errors.Parsing("invalid probability table", err)
	}
	kind, err := ParseKind(w.Kind)
	if err != nil {
		return err
	}
	if err := validateVariables(w.Variables); err != nil {
		return err
	}

	var raw interface{}
	if len(w.Values) > 0 {
		if err := json.Unmarshal(w.Values, &raw); err != nil {
			return errors.Parsing("invalid probability values", err)
		}
	}

	shape := make([]int, len(w.Variables))
	for i, v := range w.Variables {
		shape[i] = len(v.Labels)
	}
	var flat []float64
	if err := flatten(raw, shape, &flat); err != nil {
		return err
	}

	built, err := New(kind, w.Variables, flat)
	if err != nil {
		return err
	}
	*t = *built
	return nil
}

func flatten(v interface{}, shape []int, out *[]float64) error {
	if len(shape) == 0 {
		switch x := v.(type) {
		case nil:
			*out = append(*out, math.NaN())
		case float64:
			*out = append(*out, x)
		default:
			return errors.Validationf("dimensionality", "expected a number, found %T", v)
		}
		return nil
	}

	arr, ok := v.([]interface{})
	if !ok {
		return errors.Validationf("dimensionality", "expected %d more array levels, found %T", len(shape), v)
	}
	if len(arr) != shape[0] {
		return errors.Validationf("shape", "array level has %d entries, variable declares %d", len(arr), shape[0])
	}
	for _, e := range arr {
		if err := flatten(e, shape[1:], out); err != nil {
			return err
		}
	}
	return nil
}
