/*
balance.go - Pairwise balance aggregation and settlement suggestions

PURPOSE:
  Folds a household's split ledger and settlement history into who-owes-whom
  balances. The fold runs on decimals rather than floats: a household
  accumulates thousands of entries over time and float addition drifts.

KEY CONCEPTS:
  Gross balances: balances[payer][payee] holds the total amount payee owes
  payer. A ledger entry adds to it, a settlement from the payee back to the
  payer subtracts from it.

  Net balances: the pairwise difference, reported only on the positive
  side. If alice is owed 30 by bob and owes bob 10, the net is a single
  20 from bob to alice.

USAGE:
  bal := household.NewBalances()
  for _, e := range entries { bal.ApplyEntry(e) }
  for _, s := range settlements { bal.ApplySettlement(s) }
  totals := bal.MemberTotals("alice")
  suggestions := bal.SuggestSettlements(householdID)

SEE ALSO:
  - types.go: LedgerEntry and Settlement definitions
  - api/handlers.go: the household summary endpoint built on this
*/
package household

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// BALANCES
// =============================================================================

// Balances accumulates pairwise debts between household members.
type Balances struct {
	// owed[payer][payee] = amount payee owes payer
	owed map[string]map[string]decimal.Decimal
}

func NewBalances() *Balances {
	return &Balances{owed: make(map[string]map[string]decimal.Decimal)}
}

func (b *Balances) add(payer, payee string, amount decimal.Decimal) {
	row, ok := b.owed[payer]
	if !ok {
		row = make(map[string]decimal.Decimal)
		b.owed[payer] = row
	}
	row[payee] = row[payee].Add(amount)
}

// ApplyEntry records a split ledger entry: the payee owes the payer.
func (b *Balances) ApplyEntry(e LedgerEntry) {
	b.add(e.PayerID, e.PayeeID, decimal.NewFromFloat(e.Amount))
}

// ApplySettlement records a repayment, reducing what the sender owes
// the receiver.
func (b *Balances) ApplySettlement(s Settlement) {
	b.add(s.ToID, s.FromID, decimal.NewFromFloat(s.Amount).Neg())
}

// NetDebt is a single direction of a netted pairwise balance.
type NetDebt struct {
	FromID string // debtor
	ToID   string // creditor
	Amount decimal.Decimal
}

// Net reduces the gross balances to one debt per member pair, keeping only
// the positive direction. Results are sorted by debtor then creditor so
// callers get stable output.
func (b *Balances) Net() []NetDebt {
	type pair struct{ a, b string }
	seen := make(map[pair]bool)
	var debts []NetDebt

	for payer, row := range b.owed {
		for payee := range row {
			lo, hi := payer, payee
			if lo > hi {
				lo, hi = hi, lo
			}
			key := pair{lo, hi}
			if seen[key] {
				continue
			}
			seen[key] = true

			// hi owes lo this much once both directions cancel out
			net := b.owed[lo][hi].Sub(b.owed[hi][lo])
			switch {
			case net.IsPositive():
				debts = append(debts, NetDebt{FromID: hi, ToID: lo, Amount: net})
			case net.IsNegative():
				debts = append(debts, NetDebt{FromID: lo, ToID: hi, Amount: net.Neg()})
			}
		}
	}

	sort.Slice(debts, func(i, j int) bool {
		if debts[i].FromID != debts[j].FromID {
			return debts[i].FromID < debts[j].FromID
		}
		return debts[i].ToID < debts[j].ToID
	})
	return debts
}

// Totals summarizes one member's position after netting.
type Totals struct {
	YouOwe    decimal.Decimal
	OwedToYou decimal.Decimal
}

// MemberTotals reports how much the member owes and is owed across all
// netted pairs.
func (b *Balances) MemberTotals(memberID string) Totals {
	t := Totals{YouOwe: decimal.Zero, OwedToYou: decimal.Zero}
	for _, d := range b.Net() {
		switch memberID {
		case d.FromID:
			t.YouOwe = t.YouOwe.Add(d.Amount)
		case d.ToID:
			t.OwedToYou = t.OwedToYou.Add(d.Amount)
		}
	}
	return t
}

// SuggestSettlements proposes one repayment per netted pairwise debt.
// Paying all of them zeroes the household out.
func (b *Balances) SuggestSettlements(householdID string) []Settlement {
	var out []Settlement
	for _, d := range b.Net() {
		amount, _ := d.Amount.Round(2).Float64()
		if amount <= 0 {
			continue
		}
		out = append(out, Settlement{
			HouseholdID: householdID,
			FromID:      d.FromID,
			ToID:        d.ToID,
			Amount:      amount,
			Note:        "Suggested settlement",
		})
	}
	return out
}
