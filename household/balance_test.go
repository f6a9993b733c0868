package household_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evenly/split-engine/household"
)

func entry(payer, payee string, amount float64) household.LedgerEntry {
	return household.LedgerEntry{PayerID: payer, PayeeID: payee, Amount: amount}
}

func settlement(from, to string, amount float64) household.Settlement {
	return household.Settlement{FromID: from, ToID: to, Amount: amount}
}

func TestBalances_SingleEntry(t *testing.T) {
	// GIVEN: Alice paid and bob owes 50
	bal := household.NewBalances()
	bal.ApplyEntry(entry("alice", "bob", 50))

	// THEN: One net debt, bob -> alice, 50
	debts := bal.Net()
	require.Len(t, debts, 1)
	assert.Equal(t, "bob", debts[0].FromID)
	assert.Equal(t, "alice", debts[0].ToID)
	assert.True(t, debts[0].Amount.Equal(decimal.NewFromInt(50)))
}

func TestBalances_OpposingEntriesNetOut(t *testing.T) {
	// GIVEN: Bob owes alice 50, alice owes bob 20
	bal := household.NewBalances()
	bal.ApplyEntry(entry("alice", "bob", 50))
	bal.ApplyEntry(entry("bob", "alice", 20))

	// THEN: A single 30 debt from bob to alice
	debts := bal.Net()
	require.Len(t, debts, 1)
	assert.Equal(t, "bob", debts[0].FromID)
	assert.True(t, debts[0].Amount.Equal(decimal.NewFromInt(30)))
}

func TestBalances_SettlementReducesDebt(t *testing.T) {
	// GIVEN: Bob owes alice 50 and pays 30 back
	bal := household.NewBalances()
	bal.ApplyEntry(entry("alice", "bob", 50))
	bal.ApplySettlement(settlement("bob", "alice", 30))

	debts := bal.Net()
	require.Len(t, debts, 1)
	assert.True(t, debts[0].Amount.Equal(decimal.NewFromInt(20)))
}

func TestBalances_FullSettlementZeroesOut(t *testing.T) {
	bal := household.NewBalances()
	bal.ApplyEntry(entry("alice", "bob", 50))
	bal.ApplySettlement(settlement("bob", "alice", 50))

	assert.Empty(t, bal.Net())
}

func TestBalances_Overpayment_FlipsDirection(t *testing.T) {
	// GIVEN: Bob owed 50 but paid 60 back
	bal := household.NewBalances()
	bal.ApplyEntry(entry("alice", "bob", 50))
	bal.ApplySettlement(settlement("bob", "alice", 60))

	// THEN: Alice now owes bob 10
	debts := bal.Net()
	require.Len(t, debts, 1)
	assert.Equal(t, "alice", debts[0].FromID)
	assert.Equal(t, "bob", debts[0].ToID)
	assert.True(t, debts[0].Amount.Equal(decimal.NewFromInt(10)))
}

func TestBalances_NoFloatDrift(t *testing.T) {
	// 0.10 a thousand times is exactly 100.00 in decimal arithmetic.
	bal := household.NewBalances()
	for i := 0; i < 1000; i++ {
		bal.ApplyEntry(entry("alice", "bob", 0.10))
	}

	debts := bal.Net()
	require.Len(t, debts, 1)
	assert.True(t, debts[0].Amount.Equal(decimal.NewFromInt(100)),
		"got %s", debts[0].Amount)
}

func TestBalances_MemberTotals(t *testing.T) {
	// GIVEN: Bob owes alice 30 net, charlie owes bob 15
	bal := household.NewBalances()
	bal.ApplyEntry(entry("alice", "bob", 50))
	bal.ApplyEntry(entry("bob", "alice", 20))
	bal.ApplyEntry(entry("bob", "charlie", 15))

	aliceTotals := bal.MemberTotals("alice")
	assert.True(t, aliceTotals.OwedToYou.Equal(decimal.NewFromInt(30)))
	assert.True(t, aliceTotals.YouOwe.IsZero())

	bobTotals := bal.MemberTotals("bob")
	assert.True(t, bobTotals.YouOwe.Equal(decimal.NewFromInt(30)))
	assert.True(t, bobTotals.OwedToYou.Equal(decimal.NewFromInt(15)))
}

func TestBalances_SuggestSettlements(t *testing.T) {
	bal := household.NewBalances()
	bal.ApplyEntry(entry("alice", "bob", 33.33))
	bal.ApplyEntry(entry("alice", "charlie", 10))
	bal.ApplyEntry(entry("charlie", "alice", 4))

	suggestions := bal.SuggestSettlements("hh-1")
	require.Len(t, suggestions, 2)

	assert.Equal(t, "bob", suggestions[0].FromID)
	assert.Equal(t, "alice", suggestions[0].ToID)
	assert.Equal(t, 33.33, suggestions[0].Amount)

	assert.Equal(t, "charlie", suggestions[1].FromID)
	assert.Equal(t, 6.0, suggestions[1].Amount)

	for _, s := range suggestions {
		assert.Equal(t, "hh-1", s.HouseholdID)
	}
}

func TestBalances_SuggestSettlements_EmptyWhenSquare(t *testing.T) {
	bal := household.NewBalances()
	bal.ApplyEntry(entry("alice", "bob", 25))
	bal.ApplySettlement(settlement("bob", "alice", 25))

	assert.Empty(t, bal.SuggestSettlements("hh-1"))
}
