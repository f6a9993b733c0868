package factory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evenly/split-engine/factory"
	"github.com/evenly/split-engine/split"
)

func TestParsePolicy_Even(t *testing.T) {
	f := factory.NewPolicyFactory()

	policy, err := f.ParsePolicy(`{"mode": "even"}`)
	require.NoError(t, err)
	assert.Equal(t, split.ModeEven, policy.Mode)
	assert.Nil(t, policy.Weights)
}

func TestParsePolicy_CustomWithWeights(t *testing.T) {
	f := factory.NewPolicyFactory()

	policy, err := f.ParsePolicy(`{"mode": "custom", "weights": {"alice": 0.7, "bob": 0.3}}`)
	require.NoError(t, err)
	assert.Equal(t, split.ModeCustom, policy.Mode)
	assert.Equal(t, 0.7, policy.Weights["alice"])
	assert.Equal(t, 0.3, policy.Weights["bob"])
}

func TestParsePolicy_WithCategoryOverrides(t *testing.T) {
	f := factory.NewPolicyFactory()

	policy, err := f.ParsePolicy(`{
		"mode": "income_weighted",
		"overrides_by_category": {
			"groceries": {"mode": "even"},
			"dining": {"mode": "custom", "weights": {"alice": 0.5, "bob": 0.5}}
		}
	}`)
	require.NoError(t, err)

	require.Len(t, policy.OverridesByCategory, 2)
	assert.Equal(t, split.ModeEven, policy.OverridesByCategory["groceries"].Mode)
	assert.Equal(t, split.ModeCustom, policy.OverridesByCategory["dining"].Mode)
	assert.Equal(t, 0.5, policy.OverridesByCategory["dining"].Weights["alice"])
}

func TestParsePolicy_Rejections(t *testing.T) {
	f := factory.NewPolicyFactory()

	cases := []struct {
		name string
		json string
	}{
		{"unknown mode", `{"mode": "fifty_fifty"}`},
		{"missing mode", `{"weights": {"alice": 1}}`},
		{"weights on even mode", `{"mode": "even", "weights": {"alice": 1}}`},
		{"negative weight", `{"mode": "custom", "weights": {"alice": -0.5}}`},
		{"nested overrides", `{
			"mode": "even",
			"overrides_by_category": {
				"dining": {
					"mode": "even",
					"overrides_by_category": {"drinks": {"mode": "even"}}
				}
			}
		}`},
		{"invalid json", `{"mode": `},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := f.ParsePolicy(c.json)
			assert.Error(t, err)
		})
	}
}

func TestPolicyRoundTrip(t *testing.T) {
	// GIVEN: A policy with custom weights and an override
	f := factory.NewPolicyFactory()
	original := split.Policy{
		Mode:    split.ModeCustom,
		Weights: map[split.MemberID]float64{"alice": 0.6, "bob": 0.4},
		OverridesByCategory: map[split.CategoryID]split.Policy{
			"rent": {Mode: split.ModeIncomeWeighted},
		},
	}

	// WHEN: Marshaling for storage and parsing back
	stored, err := f.MarshalPolicy(original)
	require.NoError(t, err)

	parsed, err := f.ParsePolicy(stored)
	require.NoError(t, err)

	// THEN: The policy survives intact
	assert.Equal(t, original, *parsed)
}
