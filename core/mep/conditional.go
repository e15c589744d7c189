package mep

// Conditionalize turns a joint estimate into conditional probabilities.
// Cells are grouped into buckets by replacing the digits at positions with
// the wildcard; each cell is divided by its bucket's sum. An empty bucket
// leaves its cells at zero.
func Conditionalize(layout *Layout, x []float64, positions []int) []float64 {
	sums := make(map[string]float64)
	keys := make([]string, len(x))
	for i, code := range layout.Codes {
		keys[i] = layout.bucket(code, positions)
		sums[keys[i]] += x[i]
	}

	out := make([]float64, len(x))
	for i, v := range x {
		if s := sums[keys[i]]; s > 0 {
			out[i] = v / s
		}
	}
	return out
}
