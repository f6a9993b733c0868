package split_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evenly/split-engine/split"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

var (
	alice   = split.Member{ID: "alice", MonthlyIncome: 4000}
	bob     = split.Member{ID: "bob", MonthlyIncome: 2000}
	charlie = split.Member{ID: "charlie", MonthlyIncome: 3000}

	couple = []split.Member{alice, bob}
	trio   = []split.Member{alice, bob, charlie}
)

func expense(amount float64) split.Transaction {
	return split.Transaction{ID: "tx-1", Amount: amount}
}

// =============================================================================
// EVEN SPLIT
// =============================================================================

func TestComputeSplits_EvenSplit_TwoMembers(t *testing.T) {
	// GIVEN: A $100 expense paid by alice under an even policy
	// WHEN: Computing splits
	// THEN: Bob owes alice exactly half

	entries, err := split.ComputeSplits(expense(-100), "alice", couple, split.Policy{Mode: split.ModeEven})
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, split.Entry{
		Payer:     "alice",
		Payee:     "bob",
		Amount:    50,
		Rationale: "Even split",
	}, entries[0])
}

func TestComputeSplits_OddAmount_PayerAbsorbsResidual(t *testing.T) {
	// GIVEN: -100.01, which cannot split evenly to the cent
	// THEN: Bob owes exactly 50, alice absorbs the extra cent

	entries, err := split.ComputeSplits(expense(-100.01), "alice", couple, split.Policy{Mode: split.ModeEven})
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, 50.0, entries[0].Amount)
}

func TestComputeSplits_ThreeMemberEvenSplit(t *testing.T) {
	entries, err := split.ComputeSplits(expense(-90), "alice", trio, split.Policy{Mode: split.ModeEven})
	require.NoError(t, err)

	require.Len(t, entries, 2)
	assert.Equal(t, split.MemberID("bob"), entries[0].Payee)
	assert.Equal(t, 30.0, entries[0].Amount)
	assert.Equal(t, split.MemberID("charlie"), entries[1].Payee)
	assert.Equal(t, 30.0, entries[1].Amount)
}

// =============================================================================
// INCOME-WEIGHTED SPLIT
// =============================================================================

func TestComputeSplits_IncomeWeighted(t *testing.T) {
	// Alice earns 4k, bob 2k: alice carries 2/3 of every shared expense.
	entries, err := split.ComputeSplits(expense(-100), "alice", couple, split.Policy{Mode: split.ModeIncomeWeighted})
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, split.Entry{
		Payer:     "alice",
		Payee:     "bob",
		Amount:    33.33,
		Rationale: "Income-weighted split",
	}, entries[0])
}

func TestComputeSplits_IncomeWeighted_BobPays(t *testing.T) {
	entries, err := split.ComputeSplits(expense(-150), "bob", couple, split.Policy{Mode: split.ModeIncomeWeighted})
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, split.Entry{
		Payer:     "bob",
		Payee:     "alice",
		Amount:    100,
		Rationale: "Income-weighted split",
	}, entries[0])
}

func TestComputeSplits_IncomeWeighted_ThreeMembers(t *testing.T) {
	// Incomes 4k/2k/3k over -90: shares 40/20/30.
	entries, err := split.ComputeSplits(expense(-90), "alice", trio, split.Policy{Mode: split.ModeIncomeWeighted})
	require.NoError(t, err)

	require.Len(t, entries, 2)
	assert.Equal(t, 20.0, entries[0].Amount) // bob
	assert.Equal(t, 30.0, entries[1].Amount) // charlie
}

// =============================================================================
// CUSTOM WEIGHTS
// =============================================================================

func TestComputeSplits_CustomWeights(t *testing.T) {
	policy := split.Policy{
		Mode:    split.ModeCustom,
		Weights: map[split.MemberID]float64{"alice": 0.7, "bob": 0.3},
	}

	entries, err := split.ComputeSplits(expense(-100), "alice", couple, policy)
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, split.Entry{
		Payer:     "alice",
		Payee:     "bob",
		Amount:    30,
		Rationale: "Custom split",
	}, entries[0])
}

func TestComputeSplits_CustomWeights_AbsentMemberOwesNothing(t *testing.T) {
	// GIVEN: Charlie is not in the custom mapping
	// THEN: Charlie receives no entry

	policy := split.Policy{
		Mode:    split.ModeCustom,
		Weights: map[split.MemberID]float64{"alice": 0.7, "bob": 0.3},
	}

	entries, err := split.ComputeSplits(expense(-100), "alice", trio, policy)
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, split.MemberID("bob"), entries[0].Payee)
}

// =============================================================================
// FALLBACK - manual member weights
// =============================================================================

func TestComputeSplits_UnknownMode_FallsBackToManualWeights(t *testing.T) {
	members := []split.Member{
		{ID: "alice", Weight: 3},
		{ID: "bob"}, // unset weight defaults to 1
	}

	entries, err := split.ComputeSplits(expense(-100), "alice", members, split.Policy{Mode: "whatever"})
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, 25.0, entries[0].Amount)
	assert.Equal(t, "Split", entries[0].Rationale)
}

func TestComputeSplits_CustomModeWithoutWeights_FallsBack(t *testing.T) {
	entries, err := split.ComputeSplits(expense(-100), "alice", couple, split.Policy{Mode: split.ModeCustom})
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, 50.0, entries[0].Amount)
	assert.Equal(t, "Custom split", entries[0].Rationale)
}

// =============================================================================
// CATEGORY OVERRIDES
// =============================================================================

func TestComputeSplits_CategoryOverride_Applied(t *testing.T) {
	// GIVEN: Default even policy with a custom 70/30 override for dining
	// WHEN: Bob pays a -60 dining transaction
	// THEN: Alice owes her 70% share under the override

	policy := split.Policy{
		Mode: split.ModeEven,
		OverridesByCategory: map[split.CategoryID]split.Policy{
			"dining": {
				Mode:    split.ModeCustom,
				Weights: map[split.MemberID]float64{"alice": 0.7, "bob": 0.3},
			},
		},
	}

	tx := split.Transaction{ID: "tx-6", Amount: -60, Category: "dining"}
	entries, err := split.ComputeSplits(tx, "bob", couple, policy)
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, split.Entry{
		Payer:     "bob",
		Payee:     "alice",
		Amount:    42,
		Rationale: "Custom split",
	}, entries[0])
}

func TestComputeSplits_CategoryWithoutOverride_UsesDefault(t *testing.T) {
	policy := split.Policy{
		Mode: split.ModeEven,
		OverridesByCategory: map[split.CategoryID]split.Policy{
			"dining": {
				Mode:    split.ModeCustom,
				Weights: map[split.MemberID]float64{"alice": 0.7, "bob": 0.3},
			},
		},
	}

	tx := split.Transaction{ID: "tx-7", Amount: -100, Category: "groceries"}
	entries, err := split.ComputeSplits(tx, "alice", couple, policy)
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, 50.0, entries[0].Amount)
	assert.Equal(t, "Even split", entries[0].Rationale)
}

// =============================================================================
// EXCLUSIONS
// =============================================================================

func TestComputeSplits_Exclusions_ReturnEmpty(t *testing.T) {
	policy := split.Policy{Mode: split.ModeEven}

	cases := []struct {
		name string
		tx   split.Transaction
	}{
		{"pending", split.Transaction{Amount: -100, Pending: true}},
		{"transfer", split.Transaction{Amount: -100, Transfer: true}},
		{"personal", split.Transaction{Amount: -100, Personal: true}},
		{"zero amount", split.Transaction{Amount: 0}},
		{"positive amount", split.Transaction{Amount: 50}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			entries, err := split.ComputeSplits(c.tx, "alice", couple, policy)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

// =============================================================================
// REFUNDS
// =============================================================================

func TestComputeRefundSplits_EvenRefund_ReversesDirection(t *testing.T) {
	// GIVEN: A +50 refund received by alice
	// THEN: Bob's half of the refund flows from bob back to alice

	entries, err := split.ComputeRefundSplits(expense(50), "alice", couple, split.Policy{Mode: split.ModeEven})
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, split.Entry{
		Payer:     "bob",
		Payee:     "alice",
		Amount:    25,
		Rationale: "Refund: Even split",
	}, entries[0])
}

func TestComputeRefundSplits_IncomeWeighted(t *testing.T) {
	entries, err := split.ComputeRefundSplits(expense(60), "alice", couple, split.Policy{Mode: split.ModeIncomeWeighted})
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, split.Entry{
		Payer:     "bob",
		Payee:     "alice",
		Amount:    20,
		Rationale: "Refund: Income-weighted split",
	}, entries[0])
}

func TestComputeRefundSplits_Exclusions(t *testing.T) {
	policy := split.Policy{Mode: split.ModeEven}

	cases := []struct {
		name string
		tx   split.Transaction
	}{
		{"negative amount", split.Transaction{Amount: -50}},
		{"zero amount", split.Transaction{Amount: 0}},
		{"pending refund", split.Transaction{Amount: 50, Pending: true}},
		{"transfer", split.Transaction{Amount: 50, Transfer: true}},
		{"personal", split.Transaction{Amount: 50, Personal: true}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			entries, err := split.ComputeRefundSplits(c.tx, "alice", couple, policy)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

// =============================================================================
// AUTO-DETECT DISPATCHER
// =============================================================================

func TestComputeTransactionSplits_NegativeAmount_TakesExpensePath(t *testing.T) {
	entries, err := split.ComputeTransactionSplits(expense(-100), "alice", couple, split.Policy{Mode: split.ModeEven})
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, 50.0, entries[0].Amount)
	assert.Equal(t, "Even split", entries[0].Rationale)
}

func TestComputeTransactionSplits_PositiveAmount_TakesRefundPath(t *testing.T) {
	entries, err := split.ComputeTransactionSplits(expense(50), "alice", couple, split.Policy{Mode: split.ModeEven})
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, split.MemberID("bob"), entries[0].Payer)
	assert.Equal(t, split.MemberID("alice"), entries[0].Payee)
	assert.Equal(t, 25.0, entries[0].Amount)
	assert.Equal(t, "Refund: Even split", entries[0].Rationale)
}

func TestComputeTransactionSplits_ZeroAmount_Empty(t *testing.T) {
	entries, err := split.ComputeTransactionSplits(expense(0), "alice", couple, split.Policy{Mode: split.ModeEven})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// =============================================================================
// ZERO-WEIGHT FAILURE
// =============================================================================

func TestComputeSplits_IncomeWeightedWithNoIncome_Fails(t *testing.T) {
	// GIVEN: Nobody has income data
	// THEN: The call fails with ErrZeroWeightSum instead of emitting
	//       zero or NaN entries

	members := []split.Member{{ID: "alice"}, {ID: "bob"}}

	entries, err := split.ComputeSplits(expense(-100), "alice", members, split.Policy{Mode: split.ModeIncomeWeighted})
	assert.Nil(t, entries)
	require.Error(t, err)
	assert.ErrorIs(t, err, split.ErrZeroWeightSum)

	var zws *split.ZeroWeightSumError
	require.ErrorAs(t, err, &zws)
	assert.Equal(t, split.ModeIncomeWeighted, zws.Mode)
}

func TestComputeSplits_CustomWeightsSummingToZero_Fails(t *testing.T) {
	policy := split.Policy{
		Mode:    split.ModeCustom,
		Weights: map[split.MemberID]float64{"alice": 0, "bob": 0},
	}

	_, err := split.ComputeSplits(expense(-100), "alice", couple, policy)
	assert.ErrorIs(t, err, split.ErrZeroWeightSum)
}

// =============================================================================
// ROUNDING / RESIDUAL BEHAVIOR
// =============================================================================

func TestComputeSplits_HalfCentShares_BankersRounded(t *testing.T) {
	// -10.01 even: each share is 5.005, which banker's-rounds to 5.00.
	// Residual 0.01 goes to the payer, so bob owes exactly 5.00.
	entries, err := split.ComputeSplits(expense(-10.01), "alice", couple, split.Policy{Mode: split.ModeEven})
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, 5.0, entries[0].Amount)
}

func TestComputeSplits_ResidualCents_GoToPayer(t *testing.T) {
	entries, err := split.ComputeSplits(expense(-100.33), "alice", couple, split.Policy{Mode: split.ModeEven})
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.InDelta(t, 50.16, entries[0].Amount, 0.001)
}

func TestComputeSplits_Conservation(t *testing.T) {
	// For any non-degenerate expense the emitted amounts never exceed the
	// absolute transaction amount, and the payer's implicit share plus the
	// emitted amounts reconstructs it exactly to the cent.

	policies := []split.Policy{
		{Mode: split.ModeEven},
		{Mode: split.ModeIncomeWeighted},
		{Mode: split.ModeCustom, Weights: map[split.MemberID]float64{"alice": 2, "bob": 1, "charlie": 4}},
	}

	for _, policy := range policies {
		for cents := int64(1); cents < 5000; cents += 37 {
			amount := -float64(cents) / 100

			entries, err := split.ComputeSplits(expense(amount), "alice", trio, policy)
			require.NoError(t, err)

			var owed float64
			for _, e := range entries {
				require.NotEqual(t, e.Payer, e.Payee)
				require.Greater(t, e.Amount, 0.0)
				require.Equal(t, e.Amount, split.RoundToCent(e.Amount), "entry amounts are cent-aligned")
				owed += e.Amount
			}

			total := math.Abs(amount)
			require.LessOrEqual(t, owed, total+1e-9,
				"policy %q amount %v: owed %v exceeds total", policy.Mode, amount, owed)

			payerShare := total - owed
			reconstructed := split.RoundToCent(payerShare) + split.RoundToCent(owed)
			require.InDelta(t, total, reconstructed, 0.0001,
				"policy %q amount %v: shares do not reconcile", policy.Mode, amount)
		}
	}
}

func TestComputeSplits_Deterministic(t *testing.T) {
	// Identical inputs must produce identical entries in identical order:
	// the persistence layer relies on idempotent recomputation.
	policy := split.Policy{Mode: split.ModeIncomeWeighted}
	tx := expense(-123.45)

	first, err := split.ComputeTransactionSplits(tx, "alice", trio, policy)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		again, err := split.ComputeTransactionSplits(tx, "alice", trio, policy)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

// Guard against regressions in the refund/expense pairing documented for
// the household summary: an income-weighted expense and a later partial
// refund must use the same weights in opposite directions.
func TestExpenseRefundSymmetry(t *testing.T) {
	policy := split.Policy{Mode: split.ModeIncomeWeighted}

	exp, err := split.ComputeSplits(expense(-100), "alice", couple, policy)
	require.NoError(t, err)
	require.Len(t, exp, 1)
	assert.Equal(t, 33.33, exp[0].Amount)

	ref, err := split.ComputeRefundSplits(expense(60), "alice", couple, policy)
	require.NoError(t, err)
	require.Len(t, ref, 1)
	assert.Equal(t, exp[0].Payer, ref[0].Payee)
	assert.Equal(t, exp[0].Payee, ref[0].Payer)
	assert.Equal(t, 20.0, ref[0].Amount)
}
