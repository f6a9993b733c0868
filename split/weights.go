/*
weights.go - Weight resolution and normalization

PURPOSE:
  Turns a policy plus the member set into one normalized weight per member
  (weights sum to 1.0). Resolution order:

    ModeEven           every member weight 1, normalized by count
    ModeIncomeWeighted each member's monthly income, normalized by total
    ModeCustom         the policy's explicit mapping, normalized by its sum
    fallback           each member's manual weight (default 1), normalized

  The fallback covers policies that carry neither a recognized mode nor a
  usable custom mapping.

FAILURE:
  Normalization fails with ErrZeroWeightSum when the contributing weights
  total exactly zero. This propagates to the caller; it is never turned into
  an empty result.
*/
package split

// resolveWeights produces the normalized weight-per-member mapping for a
// policy. Members absent from a custom mapping receive weight 0.
func resolveWeights(members []Member, policy Policy) (map[MemberID]float64, error) {
	weights := make(map[MemberID]float64, len(members))

	switch {
	case policy.Mode == ModeEven:
		for _, m := range members {
			weights[m.ID] = 1
		}

	case policy.Mode == ModeIncomeWeighted:
		for _, m := range members {
			weights[m.ID] = m.MonthlyIncome
		}

	case policy.Mode == ModeCustom && policy.Weights != nil:
		for id, w := range policy.Weights {
			weights[id] = w
		}

	default:
		// Manual per-member weights, defaulting to 1 when unset.
		for _, m := range members {
			w := m.Weight
			if w == 0 {
				w = 1
			}
			weights[m.ID] = w
		}
	}

	return normalize(weights, policy.Mode)
}

// normalize divides every weight by the total so the result sums to 1.0.
func normalize(weights map[MemberID]float64, mode Mode) (map[MemberID]float64, error) {
	var sum float64
	for _, w := range weights {
		sum += w
	}
	if sum == 0 {
		return nil, &ZeroWeightSumError{Mode: mode}
	}

	normalized := make(map[MemberID]float64, len(weights))
	for id, w := range weights {
		normalized[id] = w / sum
	}
	return normalized, nil
}
