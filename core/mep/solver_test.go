package mep

import (
	"context"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"decisionkit/internal/errors"
)

func newTestSolver(t *testing.T) *Solver {
	return NewSolver(WithLogger(zaptest.NewLogger(t)))
}

func TestSolveIndependentMargins(t *testing.T) {
	res, err := newTestSolver(t).Solve(context.Background(), scenarioA())
	require.NoError(t, err)

	assert.Equal(t, []string{"P00", "P01", "P10", "P11"}, res.Codes)
	assert.InDeltaSlice(t, []float64{0.3, 0.3, 0.2, 0.2}, res.X, 1e-4)
	assert.InDelta(t, 1, res.X[0]+res.X[1]+res.X[2]+res.X[3], 1e-6)
	assert.LessOrEqual(t, res.MaxViolation, 1e-6)
	assert.Positive(t, res.OuterIterations)

	want := -(2*0.3*math.Log(0.3) + 2*0.2*math.Log(0.2))
	assert.InDelta(t, want, res.Entropy, 1e-4)
	assert.Nil(t, res.Conditional)
	assert.Nil(t, res.ConditionalProbabilities())

	probs := res.Probabilities()
	assert.InDelta(t, 0.6, probs["P00"]+probs["P01"], 1e-6)
	assert.InDelta(t, 0.5, probs["P00"]+probs["P10"], 1e-6)
}

func TestSolveSatisfiesAssessments(t *testing.T) {
	cfg := &Config{
		JointDistributions: []string{"P00", "P01", "P02", "P10", "P11", "P12"},
		Assessments:        map[string]float64{"P1.": 0.3, "P.2": 0.5, "P00": 0.1},
	}
	res, err := newTestSolver(t).Solve(context.Background(), cfg)
	require.NoError(t, err)

	p := res.Probabilities()
	assert.InDelta(t, 0.3, p["P10"]+p["P11"]+p["P12"], 1e-6)
	assert.InDelta(t, 0.5, p["P02"]+p["P12"], 1e-6)
	assert.InDelta(t, 0.1, p["P00"], 1e-6)

	total := 0.0
	for _, v := range res.X {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
		total += v
	}
	assert.InDelta(t, 1, total, 1e-6)
}

func TestSolveWithoutAssessmentsIsUniform(t *testing.T) {
	cfg := &Config{JointDistributions: []string{"P0", "P1", "P2"}}
	res, err := newTestSolver(t).Solve(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, StatusConverged, res.Status)
	assert.InDeltaSlice(t, []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}, res.X, 1e-6)
}

func TestSolveCertainAssessment(t *testing.T) {
	tests := []struct {
		name   string
		assess map[string]float64
		want   map[string]float64
	}{
		{
			"first margin certain",
			map[string]float64{"P0.": 1.0},
			map[string]float64{"P00": 0.5, "P01": 0.5, "P10": 0, "P11": 0},
		},
		{
			"cell impossible",
			map[string]float64{"P11": 0.0},
			map[string]float64{"P00": 1.0 / 3, "P01": 1.0 / 3, "P10": 1.0 / 3, "P11": 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				JointDistributions: []string{"P00", "P01", "P10", "P11"},
				Assessments:        tt.assess,
			}
			res, err := newTestSolver(t).Solve(context.Background(), cfg)
			require.NoError(t, err)
			assert.True(t, res.Success, res.Message)
			assert.Equal(t, StatusConverged, res.Status)
			assert.LessOrEqual(t, res.MaxViolation, 1e-6)

			p := res.Probabilities()
			for code, want := range tt.want {
				assert.InDelta(t, want, p[code], 1e-5, code)
			}
			total := 0.0
			for _, v := range res.X {
				total += v
			}
			assert.InDelta(t, 1, total, 1e-6)
		})
	}
}

func TestSolveInequality(t *testing.T) {
	cfg := scenarioA()
	cfg.Inequality = []string{"P11 <= 0.15"}
	res, err := newTestSolver(t).Solve(context.Background(), cfg)
	require.NoError(t, err)

	p := res.Probabilities()
	assert.LessOrEqual(t, p["P11"], 0.15+1e-6)
	assert.InDelta(t, 0.6, p["P00"]+p["P01"], 1e-6)
	assert.InDelta(t, 0.5, p["P00"]+p["P10"], 1e-6)
	// margins leave one degree of freedom, and the bound is active
	assert.InDelta(t, 0.15, p["P11"], 1e-4)
	assert.InDelta(t, 0.25, p["P10"], 1e-4)
}

func TestSolveHonoursBounds(t *testing.T) {
	cfg := &Config{
		JointDistributions: []string{"P0", "P1"},
		Minimization: Minimization{
			Bounds: map[string][]float64{"P0": {0.7, 1}, "P1": {0, 1}},
		},
	}
	res, err := newTestSolver(t).Solve(context.Background(), cfg)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.7, 0.3}, res.X, 1e-4)
}

func TestSolveConditional(t *testing.T) {
	cfg := scenarioA()
	cfg.ConditionedVariables = []int{1}
	res, err := newTestSolver(t).Solve(context.Background(), cfg)
	require.NoError(t, err)

	// P(second | first): 0.3/0.6, 0.3/0.6, 0.2/0.4, 0.2/0.4
	require.NotNil(t, res.Conditional)
	assert.InDeltaSlice(t, []float64{0.5, 0.5, 0.5, 0.5}, res.Conditional, 1e-3)
	assert.Len(t, res.ConditionalProbabilities(), 4)
}

func TestSolveRejectsInvalidConfig(t *testing.T) {
	cfg := scenarioA()
	cfg.ConditionedVariables = []int{5}
	res, err := newTestSolver(t).Solve(context.Background(), cfg)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.IsType(err, errors.TypeConfig))
}

func TestSolveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestSolver(t).Solve(ctx, scenarioA())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSolveIterationLimitIsData(t *testing.T) {
	s := NewSolver(WithMaxOuterIterations(1), WithMaxInnerIterations(1))
	res, err := s.Solve(context.Background(), scenarioA())
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, StatusIterationLimit, res.Status)
	assert.Equal(t, "iteration limit reached", res.Message)
}

func TestConditionalize(t *testing.T) {
	l, err := NewLayout([]string{"P00", "P01", "P10", "P11"})
	require.NoError(t, err)
	x := []float64{0.1, 0.3, 0.2, 0.4}

	// bucket P.0 = {P00, P10}, P.1 = {P01, P11}
	got := Conditionalize(l, x, []int{0})
	assert.InDeltaSlice(t, []float64{1.0 / 3, 3.0 / 7, 2.0 / 3, 4.0 / 7}, got, 1e-12)

	got = Conditionalize(l, []float64{0, 0, 0.5, 0.5}, []int{1})
	assert.Equal(t, []float64{0, 0, 0.5, 0.5}, got)
}

func TestResultRounded(t *testing.T) {
	res := &Result{Codes: []string{"P0", "P1"}, X: []float64{0.3333333333, 0.6666666667}}
	r := res.Rounded(3)
	assert.True(t, decimal.RequireFromString("0.333").Equal(r["P0"]))
	assert.True(t, decimal.RequireFromString("0.667").Equal(r["P1"]))
}
