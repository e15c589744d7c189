package node

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decisionkit/core/probability"
	"decisionkit/internal/errors"
)

func mustTable(t *testing.T) *probability.Table {
	t.Helper()
	table, err := probability.NewUnconditional(
		[]probability.Variable{probability.NewVariable("Demand", "low", "high")},
		[]float64{0.4, 0.6},
	)
	require.NoError(t, err)
	return table
}

func TestVariantPredicatesAndStates(t *testing.T) {
	decision, err := NewDecision("Launch product", "D", []string{"launch", "hold"})
	require.NoError(t, err)
	uncertainty, err := NewUncertainty("Market demand", "M", mustTable(t))
	require.NoError(t, err)
	unset, err := NewUncertainty("Competitor entry", "C", nil)
	require.NoError(t, err)
	utility, err := NewUtility("Profit", "U", []float64{10, -2.5})
	require.NoError(t, err)

	tests := []struct {
		node   *Node
		kind   Kind
		states []string
	}{
		{decision, KindDecision, []string{"launch", "hold"}},
		{uncertainty, KindUncertainty, []string{"low", "high"}},
		{unset, KindUncertainty, []string{}},
		{utility, KindUtility, []string{"10", "-2.5"}},
	}

	for _, tt := range tests {
		t.Run(tt.node.ShortName, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.node.Kind())
			assert.Equal(t, tt.kind == KindDecision, tt.node.IsDecisionNode())
			assert.Equal(t, tt.kind == KindUncertainty, tt.node.IsUncertaintyNode())
			assert.Equal(t, tt.kind == KindUtility, tt.node.IsUtilityNode())
			assert.NotNil(t, tt.node.States())
			assert.Equal(t, tt.states, tt.node.States())
			assert.Equal(t, uuid.Version(4), tt.node.ID().Version())
		})
	}
}

func TestConstructionValidation(t *testing.T) {
	_, err := NewDecision("Launch", "D", []string{"go", "go"})
	assert.True(t, errors.IsType(err, errors.TypeValidation))

	_, err = NewDecision("Launch", "  ", []string{"go"})
	assert.True(t, errors.IsType(err, errors.TypeValidation))

	_, err = NewUtility("Profit", "U", nil, WithIDString("not-a-uuid"))
	assert.True(t, errors.IsType(err, errors.TypeValidation))

	v1 := uuid.Must(uuid.Parse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"))
	_, err = NewUtility("Profit", "U", nil, WithID(v1))
	assert.True(t, errors.IsType(err, errors.TypeValidation))

	id := uuid.New()
	n, err := NewUtility("Profit", "U", nil, WithID(id))
	require.NoError(t, err)
	assert.Equal(t, id, n.ID())
}

func TestCopyMintsNewIdentity(t *testing.T) {
	original, err := NewUncertainty("Market demand", "M", mustTable(t))
	require.NoError(t, err)

	cp := original.Copy()
	assert.NotEqual(t, original.ID(), cp.ID())
	assert.Equal(t, original.Description, cp.Description)
	assert.Equal(t, original.ShortName, cp.ShortName)
	assert.Equal(t, original.States(), cp.States())

	require.NoError(t, cp.Variant().(*Uncertainty).Probability.AddOutcome("Demand", "flat"))
	assert.Len(t, original.States(), 2)
	assert.Len(t, cp.States(), 3)
}

func TestSetAlternatives(t *testing.T) {
	d, err := NewDecision("Launch", "D", []string{"go"})
	require.NoError(t, err)
	require.NoError(t, d.SetAlternatives([]string{"go", "wait"}))
	assert.Equal(t, []string{"go", "wait"}, d.States())

	assert.Error(t, d.SetAlternatives([]string{"go", "go"}))
	assert.Equal(t, []string{"go", "wait"}, d.States())

	u, err := NewUtility("Profit", "U", nil)
	require.NoError(t, err)
	assert.Error(t, u.SetAlternatives([]string{"x"}))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Uncertainty ")
	require.NoError(t, err)
	assert.Equal(t, KindUncertainty, k)

	_, err = ParseKind("deterministic")
	assert.True(t, errors.IsType(err, errors.TypeValidation))
}

func TestArcDType(t *testing.T) {
	d, _ := NewDecision("Launch", "D", []string{"go"})
	m, _ := NewUncertainty("Market", "M", nil)
	u, _ := NewUtility("Profit", "U", nil)
	u2, _ := NewUtility("Net profit", "U2", nil)

	tests := []struct {
		tail, head *Node
		want       DType
	}{
		{m, d, DTypeInformational},
		{d, m, DTypeConditional},
		{d, u, DTypeFunctional},
		{u, u2, DTypeFunctional},
		{d, nil, DTypeNone},
	}
	for _, tt := range tests {
		a, err := NewArc(tt.tail, tt.head, "")
		require.NoError(t, err)
		assert.Equal(t, tt.want, a.DType())
	}
}

func TestArcUtilitySuccessorInvariant(t *testing.T) {
	d, _ := NewDecision("Launch", "D", []string{"go"})
	u, _ := NewUtility("Profit", "U", nil)
	u2, _ := NewUtility("Net profit", "U2", nil)

	_, err := NewArc(u, d, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), u.ID().String())
	assert.Contains(t, err.Error(), d.ID().String())

	a, err := NewArc(u, u2, "")
	require.NoError(t, err)
	require.Error(t, a.SetHead(d))
	assert.Equal(t, u2, a.Head())

	b, err := NewArc(d, u, "")
	require.NoError(t, err)
	require.NoError(t, b.SetTail(u2))
	assert.Equal(t, u2, b.Tail())

	c, err := NewArc(d, d, "")
	require.NoError(t, err)
	require.Error(t, c.SetTail(u))
	assert.Equal(t, d, c.Tail())
}

func TestArcCopy(t *testing.T) {
	d, _ := NewDecision("Launch", "D", []string{"go"})
	u, _ := NewUtility("Profit", "U", nil)
	a, err := NewArc(d, u, "go")
	require.NoError(t, err)

	cp := a.Copy()
	assert.NotEqual(t, a.ID(), cp.ID())
	assert.Same(t, a.Tail(), cp.Tail())
	assert.Same(t, a.Head(), cp.Head())
	assert.Equal(t, "go", cp.Label)
}
