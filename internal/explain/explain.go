// Package explain assembles the recommendation and human-readable breakdown
// that accompanies every score. It does no graph work of its own — every
// input it needs was already computed by the rules, propagation, and
// clustering stages.
package explain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/riskmesh/riskmesh/pkg/models"
)

// Thresholds are the score bands mapped to a recommendation.
const (
	ApproveBelow  = 0.3
	ReviewBelow   = 0.6
)

// Recommend maps a final score to its recommendation band.
func Recommend(final float64) models.Recommendation {
	switch {
	case final < ApproveBelow:
		return models.RecommendApprove
	case final < ReviewBelow:
		return models.RecommendReview
	default:
		return models.RecommendChallenge
	}
}

// Inputs bundles everything Assemble needs.
type Inputs struct {
	BaseRisk         float64
	AfterPropagation float64
	AfterTimeDecay   float64
	ClusterBoost     float64
	Final            float64
	Rules            []models.RuleContribution
	Rings            []models.ClusterContribution
	DenseSubgraphs   []models.ClusterContribution
	StarPatterns     []models.ClusterContribution
}

// Assemble builds the Explanation and ClusteringInfo for a score result.
func Assemble(in Inputs) (models.Explanation, models.ClusteringInfo) {
	breakdown := models.ScoreBreakdown{
		BaseRisk:         in.BaseRisk,
		AfterPropagation: in.AfterPropagation,
		AfterTimeDecay:   in.AfterTimeDecay,
		ClusterBoost:     in.ClusterBoost,
		Final:            in.Final,
		Rules:            in.Rules,
	}

	info := models.ClusteringInfo{
		Rings:          in.Rings,
		DenseSubgraphs: in.DenseSubgraphs,
		StarPatterns:   in.StarPatterns,
	}

	return models.Explanation{
		Recommendation:       Recommend(in.Final),
		Reason:               reason(in),
		CalculationBreakdown: breakdown,
	}, info
}

// reason names the top contributing factors: triggered rules first (by
// contribution descending), then ring membership, then elevated neighbor
// risk from propagation.
func reason(in Inputs) string {
	var parts []string

	rules := append([]models.RuleContribution(nil), in.Rules...)
	sort.Slice(rules, func(i, j int) bool { return rules[i].Amount > rules[j].Amount })
	for _, r := range rules {
		parts = append(parts, strings.ReplaceAll(r.Rule, "_", " "))
	}

	if len(in.Rings) > 0 {
		parts = append(parts, "fraud ring membership")
	}
	if len(in.DenseSubgraphs) > 0 {
		parts = append(parts, "dense subgraph membership")
	}
	if len(in.StarPatterns) > 0 {
		parts = append(parts, "hub of a star pattern")
	}
	if in.AfterPropagation-in.BaseRisk > 0.001 {
		parts = append(parts, "elevated neighbor risk")
	}

	if len(parts) == 0 {
		return "no significant risk factors"
	}
	if len(parts) > 3 {
		parts = parts[:3]
	}
	return fmt.Sprintf("flagged for: %s", strings.Join(parts, ", "))
}
