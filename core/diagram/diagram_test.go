package diagram

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decisionkit/core/node"
	"decisionkit/core/probability"
	"decisionkit/internal/errors"
)

// wildcatter builds the oil wildcatter problem: decide whether to run a
// seismic test, observe its result, decide whether to drill.
type wildcatter struct {
	d                            *InfluenceDiagram
	test, result, drill, oil, pr *node.Node
}

func newWildcatter(t *testing.T) wildcatter {
	t.Helper()
	w := wildcatter{d: New()}

	var err error
	w.test, err = node.NewDecision("Run seismic test", "T", []string{"test", "skip"})
	require.NoError(t, err)
	w.result, err = node.NewUncertainty("Test result", "R", nil)
	require.NoError(t, err)
	w.drill, err = node.NewDecision("Drill", "D", []string{"drill", "pass"})
	require.NoError(t, err)
	oilTable, err := probability.NewUnconditional(
		[]probability.Variable{probability.NewVariable("Oil", "dry", "wet", "soaking")},
		[]float64{0.5, 0.3, 0.2},
	)
	require.NoError(t, err)
	w.oil, err = node.NewUncertainty("Amount of oil", "O", oilTable)
	require.NoError(t, err)
	w.pr, err = node.NewUtility("Profit", "V", []float64{-70, 50, 200})
	require.NoError(t, err)

	for _, n := range []*node.Node{w.test, w.result, w.drill, w.oil, w.pr} {
		require.NoError(t, w.d.AddNode(n))
	}
	for _, arc := range [][2]*node.Node{
		{w.test, w.result},
		{w.oil, w.result},
		{w.result, w.drill},
		{w.test, w.drill},
		{w.test, w.pr},
		{w.drill, w.pr},
		{w.oil, w.pr},
	} {
		_, err := w.d.Connect(arc[0], arc[1])
		require.NoError(t, err)
	}
	return w
}

func shortNames(nodes []*node.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ShortName
	}
	return out
}

func TestEliminationOrder(t *testing.T) {
	w := newWildcatter(t)

	order, err := w.d.EliminationOrder()
	require.NoError(t, err)
	assert.Equal(t, []*node.Node{w.drill, w.test}, order)

	// the diagram is not pruned by the algorithm
	assert.Len(t, w.d.Nodes(), 5)
	assert.Len(t, w.d.Arcs(), 7)
}

func TestEliminationOrderContainsEveryDecisionOnce(t *testing.T) {
	d := New()
	var decisions []*node.Node
	var prev *node.Node
	for i := 0; i < 6; i++ {
		n, err := node.NewDecision("stage", string(rune('A'+i)), []string{"a", "b"})
		require.NoError(t, err)
		require.NoError(t, d.AddNode(n))
		if prev != nil && i%2 == 0 {
			_, err := d.Connect(prev, n)
			require.NoError(t, err)
		}
		decisions = append(decisions, n)
		prev = n
	}

	order, err := d.EliminationOrder()
	require.NoError(t, err)
	assert.Len(t, order, len(decisions))
	assert.ElementsMatch(t, decisions, order)
}

func TestEliminationOrderRejectsCycles(t *testing.T) {
	d := New()
	a, _ := node.NewDecision("A", "A", []string{"x"})
	b, _ := node.NewDecision("B", "B", []string{"x"})
	_, err := d.Connect(a, b)
	require.NoError(t, err)
	_, err = d.Connect(b, a)
	require.NoError(t, err)

	_, err = d.EliminationOrder()
	assert.True(t, errors.IsType(err, errors.TypeStructural))
}

func TestPartialOrder(t *testing.T) {
	w := newWildcatter(t)

	view, err := w.d.PartialOrder(ModeView)
	require.NoError(t, err)
	assert.Equal(t, []*node.Node{w.test, w.result, w.drill, w.oil}, view)

	cp, err := w.d.PartialOrder(ModeCopy)
	require.NoError(t, err)
	require.Len(t, cp, len(view))
	for i := range view {
		assert.Equal(t, view[i].ShortName, cp[i].ShortName)
		assert.Equal(t, view[i].Description, cp[i].Description)
		assert.NotSame(t, view[i], cp[i])
		assert.NotEqual(t, view[i].ID(), cp[i].ID())
	}
}

func TestPartialOrderMode(t *testing.T) {
	w := newWildcatter(t)

	_, err := w.d.PartialOrder(Mode("deep"))
	assert.True(t, errors.IsType(err, errors.TypeConfig))

	_, err = ParseMode("copy")
	assert.NoError(t, err)
}

func TestPartialOrderWithoutDecisions(t *testing.T) {
	d := New()
	a, _ := node.NewUncertainty("A", "A", nil)
	b, _ := node.NewUncertainty("B", "B", nil)
	_, err := d.Connect(a, b)
	require.NoError(t, err)

	order, err := d.PartialOrder(ModeView)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, shortNames(order))
}

func TestStructuralQueries(t *testing.T) {
	w := newWildcatter(t)

	parents, err := w.d.Parents(w.drill)
	require.NoError(t, err)
	assert.Equal(t, []*node.Node{w.result, w.test}, parents)

	children, err := w.d.Children(w.oil)
	require.NoError(t, err)
	assert.Equal(t, []*node.Node{w.result, w.pr}, children)

	_, err = w.d.Parents(w.oil.Copy())
	assert.True(t, errors.IsType(err, errors.TypeStructural))

	_, err = w.d.Node(uuid.New())
	assert.True(t, errors.IsType(err, errors.TypeNotFound))

	assert.Equal(t, []*node.Node{w.test, w.drill}, w.d.DecisionNodes())
	assert.Equal(t, []*node.Node{w.result, w.oil}, w.d.UncertaintyNodes())
	assert.Equal(t, []*node.Node{w.pr}, w.d.UtilityNodes())
	assert.True(t, w.d.IsAcyclic())
}

func TestRecordsRoundTrip(t *testing.T) {
	w := newWildcatter(t)

	data, err := json.Marshal(w.d.Records())
	require.NoError(t, err)

	var records Records
	require.NoError(t, json.Unmarshal(data, &records))
	restored, err := FromRecords(records)
	require.NoError(t, err)

	require.Len(t, restored.Nodes(), 5)
	require.Len(t, restored.Arcs(), 7)
	for i, n := range w.d.Nodes() {
		r := restored.Nodes()[i]
		assert.Equal(t, n.ID(), r.ID())
		assert.Equal(t, n.Kind(), r.Kind())
		assert.Equal(t, n.States(), r.States())
	}
	assert.Equal(t, "conditional", records.Arcs[0].Type)

	order, err := restored.EliminationOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"D", "T"}, shortNames(order))
}

func TestFromRecordsByShortName(t *testing.T) {
	records := Records{
		Nodes: []NodeRecord{
			{Category: "uncertainty", Description: "Weather", ShortName: "W"},
			{Category: "decision", Description: "Take umbrella", ShortName: "D", Alternatives: []string{"take", "leave"}},
			{Category: "utility", Description: "Comfort", ShortName: "U", Values: []float64{1, 0}},
		},
		Arcs: []ArcRecord{
			{Tail: "W", Head: "D"},
			{Tail: "D", Head: "U"},
			{Tail: "W", Head: "U"},
		},
	}
	d, err := FromRecords(records)
	require.NoError(t, err)
	assert.Len(t, d.Arcs(), 3)

	records.Arcs = append(records.Arcs, ArcRecord{Tail: "U", Head: "W"})
	_, err = FromRecords(records)
	assert.True(t, errors.IsType(err, errors.TypeValidation))

	records.Arcs = []ArcRecord{{Tail: "W", Head: "missing"}}
	_, err = FromRecords(records)
	assert.Error(t, err)

	records.Nodes[0].Category = "chance"
	_, err = FromRecords(records)
	assert.True(t, errors.IsType(err, errors.TypeValidation))
}
