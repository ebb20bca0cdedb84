package graph

import (
	"github.com/arborlabs/arbor/internal/core/ident"
)

// RelevanceContext is what a policy sees when evaluated.
type RelevanceContext struct {
	Graph *Graph
	Node  NodeHandle
}

// RelevancePolicy decides whether a node is currently worth ticking.
// Evaluation is amortized across frames, so policies must tolerate running
// at a lower rate than the tick itself.
type RelevancePolicy interface {
	Evaluate(ctx RelevanceContext) bool
}

// RelevancePolicyFunc adapts a plain function to a RelevancePolicy.
type RelevancePolicyFunc func(ctx RelevanceContext) bool

// Evaluate implements RelevancePolicy.
func (f RelevancePolicyFunc) Evaluate(ctx RelevanceContext) bool {
	return f(ctx)
}

// RelevanceComponent suppresses a node's whole subtree from ticking when
// its policy evaluates false. The ComponentCore active flag doubles as the
// cached evaluation result between policy runs.
type RelevanceComponent struct {
	ComponentCore
	policy    RelevancePolicy
	lastScore float64
}

// TypeName pins the component's stable identity.
func (*RelevanceComponent) TypeName() string { return "arbor.RelevanceComponent" }

// NewRelevanceComponent returns a relevance component with the given
// policy. A nil policy leaves the node permanently relevant.
func NewRelevanceComponent(policy RelevancePolicy) *RelevanceComponent {
	return &RelevanceComponent{policy: policy}
}

// Policy returns the active policy.
func (r *RelevanceComponent) Policy() RelevancePolicy { return r.policy }

// SetPolicy swaps the policy. The cached result keeps its value until the
// evaluator next reaches this component.
func (r *RelevanceComponent) SetPolicy(policy RelevancePolicy) { r.policy = policy }

// LastScore returns the score recorded by the last evaluation, for policies
// that publish one.
func (r *RelevanceComponent) LastScore() float64 { return r.lastScore }

// SetLastScore records a diagnostic score alongside the boolean result.
func (r *RelevanceComponent) SetLastScore(score float64) { r.lastScore = score }

var relevanceTypeID = ident.TypeIDFromName("arbor.RelevanceComponent")

func (g *Graph) relevanceStorage() (*Storage[RelevanceComponent], bool) {
	st, ok := g.storages[relevanceTypeID]
	if !ok {
		return nil, false
	}
	rs, ok := st.(*Storage[RelevanceComponent])
	return rs, ok
}

// evaluateRelevance runs up to relevanceBudget policies, resuming where the
// previous tick stopped. With budget zero the whole population is evaluated
// every tick. Dense positions shift on removal, which can make the cursor
// skip or repeat entries near a removal; amortized evaluation tolerates
// both.
func (g *Graph) evaluateRelevance() {
	rs, ok := g.relevanceStorage()
	if !ok {
		return
	}
	n := rs.Population()
	if n == 0 {
		g.relevanceCursor = 0
		return
	}
	budget := g.relevanceBudget
	if budget <= 0 || budget > n {
		budget = n
	}
	if g.relevanceCursor >= n {
		g.relevanceCursor = 0
	}

	for i := 0; i < budget; i++ {
		owner, comp := rs.DenseAt((g.relevanceCursor + i) % n)
		if comp == nil || comp.policy == nil {
			continue
		}
		comp.SetComponentActive(comp.policy.Evaluate(RelevanceContext{Graph: g, Node: owner}))
	}
	g.relevanceCursor = (g.relevanceCursor + budget) % n
}
