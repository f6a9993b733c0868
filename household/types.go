// Package household implements household-level expense sharing.
// It uses the split engine with household policies, balance aggregation,
// and settlement suggestions.
package household

import (
	"time"

	"github.com/evenly/split-engine/split"
)

// =============================================================================
// HOUSEHOLD TYPES
// =============================================================================

// Household groups the members that share expenses under one policy.
type Household struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Member is a household member with their sharing profile.
type Member struct {
	ID            string
	HouseholdID   string
	Name          string
	Email         string
	MonthlyIncome float64
	Weight        float64
	JoinedAt      time.Time
}

// ToSplitMember projects the member into the split engine's shape.
func (m Member) ToSplitMember() split.Member {
	return split.Member{
		ID:            split.MemberID(m.ID),
		MonthlyIncome: m.MonthlyIncome,
		Weight:        m.Weight,
	}
}

// SplitMembers projects a member list for the split engine.
func SplitMembers(members []Member) []split.Member {
	out := make([]split.Member, len(members))
	for i, m := range members {
		out[i] = m.ToSplitMember()
	}
	return out
}

// Transaction is a household transaction as ingested from a bank feed or
// manual entry. Amounts follow the engine convention: negative for
// expenses, positive for refunds and credits.
type Transaction struct {
	ID          string
	HouseholdID string
	ExternalID  string
	PayerID     string
	Amount      float64
	Vendor      string
	Category    split.CategoryID
	Date        time.Time
	Pending     bool
	Transfer    bool
	Personal    bool
	SplitDone   bool
}

// ToSplitTransaction projects the transaction into the split engine's shape.
func (t Transaction) ToSplitTransaction() split.Transaction {
	return split.Transaction{
		ID:       split.TransactionID(t.ID),
		Amount:   t.Amount,
		Category: t.Category,
		Pending:  t.Pending,
		Transfer: t.Transfer,
		Personal: t.Personal,
	}
}

// LedgerEntry is a persisted split: who owes whom for which transaction.
type LedgerEntry struct {
	ID            string
	HouseholdID   string
	TransactionID string
	PayerID       string
	PayeeID       string
	Amount        float64
	Rationale     string
	CreatedAt     time.Time
}

// Budget caps a category's spending for one month (YYYY-MM).
type Budget struct {
	ID          string
	HouseholdID string
	Category    split.CategoryID
	Month       string
	Limit       float64
	CreatedAt   time.Time
}

// Category labels spending. System categories (empty HouseholdID) are the
// shared defaults every household sees; households add their own on top.
type Category struct {
	ID              string
	HouseholdID     string
	Name            string
	Icon            string
	Color           string
	PersonalDefault bool
	System          bool
}

// Settlement records an out-of-band repayment between two members.
type Settlement struct {
	ID          string
	HouseholdID string
	FromID      string
	ToID        string
	Amount      float64
	Note        string
	SettledAt   time.Time
}
