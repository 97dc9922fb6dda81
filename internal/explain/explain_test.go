package explain_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/riskmesh/riskmesh/internal/explain"
	"github.com/riskmesh/riskmesh/pkg/models"
)

func TestRecommendBands(t *testing.T) {
	require.Equal(t, models.RecommendApprove, explain.Recommend(0.0))
	require.Equal(t, models.RecommendApprove, explain.Recommend(0.299))
	require.Equal(t, models.RecommendReview, explain.Recommend(0.3))
	require.Equal(t, models.RecommendReview, explain.Recommend(0.599))
	require.Equal(t, models.RecommendChallenge, explain.Recommend(0.6))
	require.Equal(t, models.RecommendChallenge, explain.Recommend(1.0))
}

func TestAssembleNoFactorsYieldsDefaultReason(t *testing.T) {
	exp, info := explain.Assemble(explain.Inputs{
		BaseRisk: 0.1, AfterPropagation: 0.1, AfterTimeDecay: 0.1, Final: 0.1,
	})
	require.Equal(t, "no significant risk factors", exp.Reason)
	require.Empty(t, info.Rings)
}

func TestAssembleSortsRulesByAmountDescending(t *testing.T) {
	exp, _ := explain.Assemble(explain.Inputs{
		Final: 0.5,
		Rules: []models.RuleContribution{
			{Rule: "new_merchant", Amount: 0.10},
			{Rule: "high_amount", Amount: 0.30},
			{Rule: "new_device", Amount: 0.20},
		},
	})
	require.Equal(t, "flagged for: high amount, new device, new merchant", exp.Reason)
}

func TestAssembleReasonCapsAtThreeFactors(t *testing.T) {
	exp, _ := explain.Assemble(explain.Inputs{
		Final: 0.9,
		Rules: []models.RuleContribution{
			{Rule: "high_amount", Amount: 0.30},
			{Rule: "new_device", Amount: 0.20},
			{Rule: "new_ip", Amount: 0.20},
		},
		Rings:          []models.ClusterContribution{{Pattern: "ring", Amount: 0.15}},
		DenseSubgraphs: []models.ClusterContribution{{Pattern: "dense_subgraph", Amount: 0.10}},
		StarPatterns:   []models.ClusterContribution{{Pattern: "star", Amount: 0.10}},
	})
	require.Equal(t, "flagged for: high amount, new device, new ip", exp.Reason)
}

func TestAssembleMentionsElevatedNeighborRisk(t *testing.T) {
	exp, _ := explain.Assemble(explain.Inputs{
		BaseRisk: 0.2, AfterPropagation: 0.4, Final: 0.4,
	})
	require.Equal(t, "flagged for: elevated neighbor risk", exp.Reason)
}

func TestAssembleBreakdownCarriesAllStages(t *testing.T) {
	exp, info := explain.Assemble(explain.Inputs{
		BaseRisk: 0.2, AfterPropagation: 0.3, AfterTimeDecay: 0.25, ClusterBoost: 0.1, Final: 0.35,
		Rings: []models.ClusterContribution{{Pattern: "ring", Amount: 0.15, NodeIDs: []string{"user:u1"}}},
	})
	require.Equal(t, 0.2, exp.CalculationBreakdown.BaseRisk)
	require.Equal(t, 0.35, exp.CalculationBreakdown.Final)
	require.Equal(t, models.RecommendReview, exp.Recommendation)
	require.Len(t, info.Rings, 1)
}
