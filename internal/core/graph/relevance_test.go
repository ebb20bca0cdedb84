package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addRelevance(t *testing.T, g *Graph, h NodeHandle, relevant *bool) *RelevanceComponent {
	t.Helper()
	comp := NewRelevanceComponent(RelevancePolicyFunc(func(RelevanceContext) bool {
		return *relevant
	}))
	_, err := AddComponent(g, h, comp)
	require.NoError(t, err)
	return comp
}

func TestRelevanceDisablesTicking(t *testing.T) {
	g := newTestGraph(t)
	n := &probeNode{}
	h, err := g.InsertNode(n, "guarded")
	require.NoError(t, err)

	comp := &counterComponent{}
	_, err = AddComponent(g, h, comp)
	require.NoError(t, err)

	relevant := true
	addRelevance(t, g, h, &relevant)

	g.Tick(0.016)
	assert.Len(t, n.ticks, 1)
	assert.Equal(t, 1, comp.ticks)
	assert.True(t, g.IsNodeActive(h))

	relevant = false
	g.Tick(0.016)
	assert.Len(t, n.ticks, 1)
	assert.Equal(t, 1, comp.ticks)
	assert.False(t, g.IsNodeActive(h))

	relevant = true
	g.Tick(0.016)
	assert.Len(t, n.ticks, 2)
}

func TestRelevancePrunesSubtree(t *testing.T) {
	g := newTestGraph(t)
	parent := &probeNode{}
	ph, err := g.InsertNode(parent, "parent")
	require.NoError(t, err)
	child := &probeNode{}
	ch, err := g.InsertNode(child, "child")
	require.NoError(t, err)
	require.NoError(t, g.AttachChild(ph, ch))

	relevant := false
	addRelevance(t, g, ph, &relevant)

	g.Tick(0.016)
	assert.Empty(t, parent.ticks)
	assert.Empty(t, child.ticks)
}

func TestRelevanceNilPolicyStaysRelevant(t *testing.T) {
	g := newTestGraph(t)
	h, _ := g.CreateNode("open")
	comp := NewRelevanceComponent(nil)
	_, err := AddComponent(g, h, comp)
	require.NoError(t, err)

	g.Tick(0.016)
	assert.True(t, g.IsNodeActive(h))
}

func TestRelevanceBudgetAmortizes(t *testing.T) {
	g := newTestGraph(t)
	g.SetRelevanceBudget(1)

	var evaluated int
	countingPolicy := RelevancePolicyFunc(func(RelevanceContext) bool {
		evaluated++
		return true
	})
	for i := 0; i < 3; i++ {
		h, err := g.CreateNode("n")
		require.NoError(t, err)
		_, err = AddComponent(g, h, NewRelevanceComponent(countingPolicy))
		require.NoError(t, err)
	}

	// One policy per tick; the cursor wraps over the population.
	g.Tick(0.016)
	assert.Equal(t, 1, evaluated)
	g.Tick(0.016)
	g.Tick(0.016)
	assert.Equal(t, 3, evaluated)
	g.Tick(0.016)
	assert.Equal(t, 4, evaluated)
}

func TestRelevanceZeroBudgetEvaluatesAll(t *testing.T) {
	g := newTestGraph(t)
	require.Equal(t, 0, g.RelevanceBudget())

	var evaluated int
	for i := 0; i < 5; i++ {
		h, err := g.CreateNode("n")
		require.NoError(t, err)
		_, err = AddComponent(g, h, NewRelevanceComponent(RelevancePolicyFunc(func(RelevanceContext) bool {
			evaluated++
			return true
		})))
		require.NoError(t, err)
	}

	g.Tick(0.016)
	assert.Equal(t, 5, evaluated)
}

func TestRelevanceSurvivesPopulationShrink(t *testing.T) {
	g := newTestGraph(t)
	g.SetRelevanceBudget(2)

	handles := make([]NodeHandle, 4)
	relevant := true
	for i := range handles {
		h, err := g.CreateNode("n")
		require.NoError(t, err)
		addRelevance(t, g, h, &relevant)
		handles[i] = h
	}

	g.Tick(0.016)
	for _, h := range handles[1:] {
		require.NoError(t, g.DestroyNode(h))
	}
	g.EndFrame()

	// Cursor beyond the new population resets instead of skipping forever.
	g.Tick(0.016)
	assert.True(t, g.IsNodeActive(handles[0]))
}

func TestRelevanceLastScore(t *testing.T) {
	comp := NewRelevanceComponent(nil)
	comp.SetLastScore(0.75)
	assert.Equal(t, 0.75, comp.LastScore())

	policy := RelevancePolicyFunc(func(RelevanceContext) bool { return false })
	comp.SetPolicy(policy)
	assert.NotNil(t, comp.Policy())
}
