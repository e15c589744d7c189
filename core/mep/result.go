package mep

import (
	"github.com/shopspring/decimal"
)

// Probabilities maps every cell code to its estimated probability
func (r *Result) Probabilities() map[string]float64 {
	return byCode(r.Codes, r.X)
}

// ConditionalProbabilities maps every cell code to its post-processed value,
// or returns nil when no conditioned variables were configured
func (r *Result) ConditionalProbabilities() map[string]float64 {
	if r.Conditional == nil {
		return nil
	}
	return byCode(r.Codes, r.Conditional)
}

// Rounded returns the estimate with each probability rounded half away from
// zero to places decimal digits
func (r *Result) Rounded(places int32) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(r.Codes))
	for i, code := range r.Codes {
		out[code] = decimal.NewFromFloat(r.X[i]).Round(places)
	}
	return out
}

func byCode(codes []string, values []float64) map[string]float64 {
	out := make(map[string]float64, len(codes))
	for i, code := range codes {
		out[code] = values[i]
	}
	return out
}
