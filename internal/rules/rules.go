// Package rules computes an event's base risk from its own fields and the
// graph's current edge presence, before any propagation happens.
package rules

import (
	"context"

	"github.com/riskmesh/riskmesh/pkg/models"
)

// Facts is everything a Rule needs to decide whether it fires. It carries
// pre-computed edge-presence booleans rather than a live graph handle so
// rules stay pure and unit-testable without a Store.
type Facts struct {
	Event            models.TransactionEvent
	HasUserDevice    bool // user -> device edge already existed
	HasUserIP        bool // user -> ip edge already existed
	HasAnyMerchant   bool // user->merchant or device->merchant edge already existed
}

// Rule is one pluggable scoring heuristic. New rules are added to a RuleSet
// without touching the engine that evaluates them.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, f Facts) float64
}

// RuleSet sums every rule's contribution and clamps the total to 1.0.
type RuleSet struct {
	rules []Rule
}

// Default returns the rule set named in the base-risk contribution table:
// high amount, new device, new IP, new merchant relationship.
func Default() *RuleSet {
	return &RuleSet{rules: []Rule{
		highAmountRule{},
		newDeviceRule{},
		newIPRule{},
		newMerchantRule{},
	}}
}

// New builds a RuleSet from an arbitrary rule list, for tests or deployments
// that want to add/replace rules.
func New(rules ...Rule) *RuleSet {
	return &RuleSet{rules: rules}
}

// Evaluate runs every rule and returns the clamped total plus the individual
// contributions, in rule order, for the explanation breakdown.
func (rs *RuleSet) Evaluate(ctx context.Context, f Facts) (float64, []models.RuleContribution) {
	var total float64
	var contribs []models.RuleContribution
	for _, r := range rs.rules {
		amount := r.Evaluate(ctx, f)
		if amount == 0 {
			continue
		}
		total += amount
		contribs = append(contribs, models.RuleContribution{Rule: r.Name(), Amount: amount})
	}
	if total > 1.0 {
		total = 1.0
	}
	if total < 0 {
		total = 0
	}
	return total, contribs
}

type highAmountRule struct{}

func (highAmountRule) Name() string { return "high_amount" }
func (highAmountRule) Evaluate(_ context.Context, f Facts) float64 {
	if f.Event.Amount > 1000 {
		return 0.30
	}
	return 0
}

type newDeviceRule struct{}

func (newDeviceRule) Name() string { return "new_device" }
func (newDeviceRule) Evaluate(_ context.Context, f Facts) float64 {
	if !f.HasUserDevice {
		return 0.20
	}
	return 0
}

type newIPRule struct{}

func (newIPRule) Name() string { return "new_ip" }
func (newIPRule) Evaluate(_ context.Context, f Facts) float64 {
	if !f.HasUserIP {
		return 0.20
	}
	return 0
}

type newMerchantRule struct{}

func (newMerchantRule) Name() string { return "new_merchant" }
func (newMerchantRule) Evaluate(_ context.Context, f Facts) float64 {
	if !f.HasAnyMerchant {
		return 0.10
	}
	return 0
}
