/*
Package factory provides JSON to Go split policy conversion.

PURPOSE:
  Converts JSON policy definitions into split.Policy values. This enables
  policy configuration without code changes - a household edits its policy
  from the app, the config is stored as JSON, and the factory builds the
  proper Go structs when the engine needs them.

WHY JSON?
  - The app UI edits policies directly
  - Database storage of policy configs
  - Version history of policy changes

JSON SCHEMA:
  {
    "mode": "income_weighted",
    "weights": {"alice": 0.7, "bob": 0.3},
    "overrides_by_category": {
      "groceries": {"mode": "even"},
      "dining": {"mode": "custom", "weights": {"alice": 0.5, "bob": 0.5}}
    }
  }

KEY FEATURES:
  - Validates modes and weights
  - Rejects nested overrides (overrides are one level deep)
  - Round-trips policies back to JSON for storage

USAGE:
  factory := factory.NewPolicyFactory()

  policy, err := factory.ParsePolicy(jsonString)
  if err != nil { ... }

  entries, err := split.ComputeTransactionSplits(tx, payer, members, *policy)

SEE ALSO:
  - split/types.go: Policy type definition
  - household/policies.go: Go-based policy presets
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/evenly/split-engine/split"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// PolicyJSON is the JSON representation of a split policy.
type PolicyJSON struct {
	Mode                string                `json:"mode"`
	Weights             map[string]float64    `json:"weights,omitempty"`
	OverridesByCategory map[string]PolicyJSON `json:"overrides_by_category,omitempty"`
}

// =============================================================================
// POLICY FACTORY
// =============================================================================

// PolicyFactory converts JSON policies to Go structs and back.
type PolicyFactory struct{}

// NewPolicyFactory creates a new policy factory.
func NewPolicyFactory() *PolicyFactory {
	return &PolicyFactory{}
}

// ParsePolicy parses a JSON string into a split.Policy.
func (f *PolicyFactory) ParsePolicy(jsonStr string) (*split.Policy, error) {
	var pj PolicyJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return nil, fmt.Errorf("failed to parse policy JSON: %w", err)
	}
	return f.FromJSON(pj)
}

// FromJSON converts PolicyJSON to a split.Policy.
func (f *PolicyFactory) FromJSON(pj PolicyJSON) (*split.Policy, error) {
	policy, err := buildPolicy(pj, true)
	if err != nil {
		return nil, err
	}
	return &policy, nil
}

func buildPolicy(pj PolicyJSON, allowOverrides bool) (split.Policy, error) {
	mode, err := parseMode(pj.Mode)
	if err != nil {
		return split.Policy{}, err
	}

	policy := split.Policy{Mode: mode}

	if pj.Weights != nil {
		if mode != split.ModeCustom {
			return split.Policy{}, fmt.Errorf("weights are only valid for custom mode, got %q", pj.Mode)
		}
		weights := make(map[split.MemberID]float64, len(pj.Weights))
		for member, w := range pj.Weights {
			if w < 0 {
				return split.Policy{}, fmt.Errorf("negative weight %v for member %q", w, member)
			}
			weights[split.MemberID(member)] = w
		}
		policy.Weights = weights
	}

	if len(pj.OverridesByCategory) > 0 {
		if !allowOverrides {
			return split.Policy{}, fmt.Errorf("category overrides cannot be nested")
		}
		policy.OverridesByCategory = make(map[split.CategoryID]split.Policy, len(pj.OverridesByCategory))
		for category, oj := range pj.OverridesByCategory {
			override, err := buildPolicy(oj, false)
			if err != nil {
				return split.Policy{}, fmt.Errorf("override for category %q: %w", category, err)
			}
			policy.OverridesByCategory[split.CategoryID(category)] = override
		}
	}

	return policy, nil
}

func parseMode(s string) (split.Mode, error) {
	switch s {
	case string(split.ModeEven):
		return split.ModeEven, nil
	case string(split.ModeIncomeWeighted):
		return split.ModeIncomeWeighted, nil
	case string(split.ModeCustom):
		return split.ModeCustom, nil
	case "":
		return "", fmt.Errorf("policy mode is required")
	default:
		return "", fmt.Errorf("unknown policy mode: %q", s)
	}
}

// ToJSON converts a split.Policy back to its JSON representation.
func (f *PolicyFactory) ToJSON(policy split.Policy) PolicyJSON {
	pj := PolicyJSON{Mode: string(policy.Mode)}

	if policy.Weights != nil {
		pj.Weights = make(map[string]float64, len(policy.Weights))
		for member, w := range policy.Weights {
			pj.Weights[string(member)] = w
		}
	}

	if len(policy.OverridesByCategory) > 0 {
		pj.OverridesByCategory = make(map[string]PolicyJSON, len(policy.OverridesByCategory))
		for category, override := range policy.OverridesByCategory {
			pj.OverridesByCategory[string(category)] = f.ToJSON(override)
		}
	}

	return pj
}

// MarshalPolicy serializes a policy for storage.
func (f *PolicyFactory) MarshalPolicy(policy split.Policy) (string, error) {
	data, err := json.Marshal(f.ToJSON(policy))
	if err != nil {
		return "", fmt.Errorf("failed to marshal policy: %w", err)
	}
	return string(data), nil
}
