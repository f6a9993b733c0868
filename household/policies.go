/*
policies.go - Pre-built household split policy configurations

PURPOSE:
  Provides ready-to-use split policies for common household arrangements.
  These are convenience functions over split.Policy that cover the setups
  most couples and roommate groups actually pick.

AVAILABLE POLICIES:
  EvenPolicy:           Everything down the middle
  IncomeWeightedPolicy: Shares proportional to each member's income
  CustomPolicy:         Explicit percentage per member
  DefaultPolicy:        The policy a new household starts with

CUSTOMIZATION:
  These are starting points. Real households often layer category
  overrides on top, e.g. even groceries but income-weighted rent:

    policy := household.IncomeWeightedPolicy()
    policy = household.WithCategoryOverride(policy, "groceries", household.EvenPolicy())

SEE ALSO:
  - split/types.go: Policy type definition
  - factory/policy.go: JSON-based policy creation
*/
package household

import "github.com/evenly/split-engine/split"

// =============================================================================
// COMMON HOUSEHOLD POLICIES
// =============================================================================

// EvenPolicy splits every shared expense equally.
func EvenPolicy() split.Policy {
	return split.Policy{Mode: split.ModeEven}
}

// IncomeWeightedPolicy splits in proportion to monthly income.
func IncomeWeightedPolicy() split.Policy {
	return split.Policy{Mode: split.ModeIncomeWeighted}
}

// CustomPolicy splits by the given per-member weights. Weights are
// relative, they do not need to sum to 1.
func CustomPolicy(weights map[split.MemberID]float64) split.Policy {
	return split.Policy{Mode: split.ModeCustom, Weights: weights}
}

// DefaultPolicy is what a freshly created household gets. Income-weighted
// is the fairest default once income data is present. Until it is, splits
// fail with split.ErrZeroWeightSum: the API reports 400 and the sweeper
// leaves the transaction in the backlog, so nothing is silently mis-split.
func DefaultPolicy() split.Policy {
	return split.Policy{Mode: split.ModeIncomeWeighted}
}

// WithCategoryOverride returns a copy of base with an override policy
// registered for the given category. Overrides are one level deep:
// nested overrides on the override itself are ignored by the engine.
func WithCategoryOverride(base split.Policy, category split.CategoryID, override split.Policy) split.Policy {
	out := base
	out.OverridesByCategory = make(map[split.CategoryID]split.Policy, len(base.OverridesByCategory)+1)
	for k, v := range base.OverridesByCategory {
		out.OverridesByCategory[k] = v
	}
	out.OverridesByCategory[category] = override
	return out
}
